package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gmpublish/internal/domain/workshop"
)

var (
	errTestWrite  = errors.New("disk full")
	errTestPrompt = errors.New("stdin closed")
	errTestNamed  = errors.New("package upload failed")
)

// fakeConnection replays events produced by per-call hooks.
type fakeConnection struct {
	// events queues pending events.
	events chan workshop.Event
	// onConnect returns the events produced by the n-th Connect (1-based).
	onConnect func(n int) []workshop.Event
	// onLogOn returns the events produced by a logon.
	onLogOn func(details *workshop.LogOnDetails) []workshop.Event

	// connects counts Connect calls.
	connects int
	// logOns records every logon.
	logOns []*workshop.LogOnDetails
	// acks records machine auth acknowledgments.
	acks []*workshop.MachineAuthResponse
	// loggedOff is set by LogOff.
	loggedOff bool
	// disconnected is set by Disconnect.
	disconnected bool
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		events: make(chan workshop.Event, 16),
		onConnect: func(int) []workshop.Event {
			return []workshop.Event{&workshop.ConnectedEvent{Result: workshop.ResultOK}}
		},
		onLogOn: func(*workshop.LogOnDetails) []workshop.Event {
			return []workshop.Event{&workshop.LoggedOnEvent{Result: workshop.ResultOK}}
		},
	}
}

func (c *fakeConnection) enqueue(events []workshop.Event) {
	for _, e := range events {
		c.events <- e
	}
}

func (c *fakeConnection) Connect(context.Context) {
	c.connects++
	c.enqueue(c.onConnect(c.connects))
}

func (c *fakeConnection) Wait(ctx context.Context, timeout time.Duration) (workshop.Event, bool) {
	select {
	case e := <-c.events:
		return e, true
	case <-time.After(timeout):
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (c *fakeConnection) LogOn(_ context.Context, details *workshop.LogOnDetails) error {
	c.logOns = append(c.logOns, details)
	c.enqueue(c.onLogOn(details))

	return nil
}

func (c *fakeConnection) LogOff(context.Context) error {
	c.loggedOff = true
	// The platform closes the stream after logoff; the manager must not reconnect.
	c.events <- &workshop.DisconnectedEvent{UserInitiated: true}

	return nil
}

func (c *fakeConnection) AcknowledgeMachineAuth(_ context.Context, response *workshop.MachineAuthResponse) error {
	c.acks = append(c.acks, response)

	return nil
}

func (c *fakeConnection) Disconnect() {
	c.disconnected = true
}

// fakeTrust is an in-memory TrustStore.
type fakeTrust struct {
	// digest is returned by ReadDigest.
	digest []byte
	// writeErr fails Write when set.
	writeErr error
	// writes records offsets and payloads.
	writes [][]byte
}

func (f *fakeTrust) ReadDigest() ([]byte, error) {
	return f.digest, nil
}

func (f *fakeTrust) Write(offset int64, data []byte) ([]byte, int64, error) {
	if f.writeErr != nil {
		return nil, 0, f.writeErr
	}

	f.writes = append(f.writes, data)
	f.digest = []byte{byte(offset), byte(len(data))}

	return f.digest, offset + int64(len(data)), nil
}

// fakePrompter returns canned codes per kind.
type fakePrompter struct {
	// codes maps a challenge kind to the answer.
	codes map[workshop.CodeKind]string
	// err is returned instead of a code when set.
	err error
	// challenges records the requested challenges.
	challenges []workshop.Challenge
	// acknowledged counts Acknowledge calls.
	acknowledged int
}

func (p *fakePrompter) RequestCode(_ context.Context, challenge workshop.Challenge) (string, error) {
	p.challenges = append(p.challenges, challenge)

	return p.codes[challenge.Kind], p.err
}

func (p *fakePrompter) Acknowledge(context.Context, string) {
	p.acknowledged++
}

// pipelineFunc adapts a function to Pipeline.
type pipelineFunc func(ctx context.Context) error

func (f pipelineFunc) Publish(ctx context.Context) error {
	return f(ctx)
}

// faultError is an unexpected pipeline failure.
type faultError struct{}

func (faultError) Error() string { return "boom" }
func (faultError) Fault() bool   { return true }

// countingPipeline returns a pipeline that counts invocations and returns err.
func countingPipeline(calls *int, err error) Pipeline {
	return pipelineFunc(func(context.Context) error {
		*calls++

		return err
	})
}

func newTestManager(conn Connection, trust TrustStore, prompter Prompter, pipeline Pipeline) *Manager {
	creds := Credentials{
		Username:    "alice",
		Password:    "secret",
		MachineName: "desk",
	}

	return NewManager(conn, trust, prompter, pipeline, creds,
		WithReconnectDelay(time.Millisecond),
		WithPollInterval(10*time.Millisecond))
}

// TestManager_HappyPath logs on, publishes once and logs off without reconnecting.
func TestManager_HappyPath(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	trust := &fakeTrust{digest: []byte{0xAB}}

	var calls int

	m := newTestManager(conn, trust, new(fakePrompter), countingPipeline(&calls, nil))
	require.Equal(t, StateDisconnected, m.State())

	state := m.Run(context.Background())
	require.Equal(t, StateLoggedOff, state)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, conn.connects)
	require.True(t, conn.loggedOff)
	require.Len(t, conn.logOns, 1)
	require.Equal(t, []byte{0xAB}, conn.logOns[0].SentryHash)
	require.Equal(t, "desk", conn.logOns[0].MachineName)
}

// TestManager_ConnectFailure fails without attempting a logon.
func TestManager_ConnectFailure(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onConnect = func(int) []workshop.Event {
		return []workshop.Event{&workshop.ConnectedEvent{Result: workshop.ResultNoConnection}}
	}

	var calls int

	state := newTestManager(conn, new(fakeTrust), new(fakePrompter), countingPipeline(&calls, nil)).Run(context.Background())
	require.Equal(t, StateFailed, state)
	require.Empty(t, conn.logOns)
	require.Zero(t, calls)
}

// TestManager_EmailChallenge prompts once, reconnects and logs on with the code.
func TestManager_EmailChallenge(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onLogOn = func(details *workshop.LogOnDetails) []workshop.Event {
		if details.AuthCode == "" {
			return []workshop.Event{
				&workshop.LoggedOnEvent{Result: workshop.ResultAccountLogonDenied, EmailDomain: "example.com"},
				&workshop.DisconnectedEvent{},
			}
		}

		return []workshop.Event{&workshop.LoggedOnEvent{Result: workshop.ResultOK}}
	}

	prompter := &fakePrompter{codes: map[workshop.CodeKind]string{workshop.CodeEmail: "MAIL1"}}

	var calls int

	state := newTestManager(conn, new(fakeTrust), prompter, countingPipeline(&calls, nil)).Run(context.Background())
	require.Equal(t, StateLoggedOff, state)
	require.Equal(t, 2, conn.connects)
	require.Len(t, conn.logOns, 2)
	require.Equal(t, "MAIL1", conn.logOns[1].AuthCode)
	require.Equal(t, []workshop.Challenge{{Kind: workshop.CodeEmail, EmailDomain: "example.com"}}, prompter.challenges)
	require.Equal(t, 1, calls)
}

// TestManager_BothChallenges answers a two-factor and then an email challenge.
func TestManager_BothChallenges(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onLogOn = func(details *workshop.LogOnDetails) []workshop.Event {
		switch {
		case details.TwoFactorCode == "":
			return []workshop.Event{
				&workshop.LoggedOnEvent{Result: workshop.ResultAccountLoginDeniedNeedTwoFactor},
				&workshop.DisconnectedEvent{},
			}
		case details.AuthCode == "":
			return []workshop.Event{
				&workshop.LoggedOnEvent{Result: workshop.ResultAccountLogonDenied},
				&workshop.DisconnectedEvent{},
			}
		default:
			return []workshop.Event{&workshop.LoggedOnEvent{Result: workshop.ResultOK}}
		}
	}

	prompter := &fakePrompter{codes: map[workshop.CodeKind]string{
		workshop.CodeEmail:     "MAIL1",
		workshop.CodeTwoFactor: "123456",
	}}

	var calls int

	state := newTestManager(conn, new(fakeTrust), prompter, countingPipeline(&calls, nil)).Run(context.Background())
	require.Equal(t, StateLoggedOff, state)
	require.Equal(t, 3, conn.connects)
	require.Equal(t, "123456", conn.logOns[2].TwoFactorCode)
	require.Equal(t, "MAIL1", conn.logOns[2].AuthCode)
	require.Equal(t, 1, calls)
}

// TestManager_RepeatedChallengeFails treats a second challenge of the same kind as a rejected code.
func TestManager_RepeatedChallengeFails(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onLogOn = func(*workshop.LogOnDetails) []workshop.Event {
		return []workshop.Event{
			&workshop.LoggedOnEvent{Result: workshop.ResultAccountLoginDeniedNeedTwoFactor},
			&workshop.DisconnectedEvent{},
		}
	}

	prompter := &fakePrompter{codes: map[workshop.CodeKind]string{workshop.CodeTwoFactor: "000000"}}

	var calls int

	state := newTestManager(conn, new(fakeTrust), prompter, countingPipeline(&calls, nil)).Run(context.Background())
	require.Equal(t, StateFailed, state)
	require.Len(t, prompter.challenges, 1)
	require.Len(t, conn.logOns, 2)
	require.Zero(t, calls)
}

// TestManager_PromptFailure fails when the operator cannot answer.
func TestManager_PromptFailure(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onLogOn = func(*workshop.LogOnDetails) []workshop.Event {
		return []workshop.Event{&workshop.LoggedOnEvent{Result: workshop.ResultAccountLogonDenied}}
	}

	m := newTestManager(conn, new(fakeTrust), &fakePrompter{err: errTestPrompt}, countingPipeline(new(int), nil))
	require.Equal(t, StateFailed, m.Run(context.Background()))
}

// TestManager_OtherLogonResultFails covers fatal logon results.
func TestManager_OtherLogonResultFails(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onLogOn = func(*workshop.LogOnDetails) []workshop.Event {
		return []workshop.Event{&workshop.LoggedOnEvent{Result: workshop.ResultInvalidPassword}}
	}

	var calls int

	state := newTestManager(conn, new(fakeTrust), new(fakePrompter), countingPipeline(&calls, nil)).Run(context.Background())
	require.Equal(t, StateFailed, state)
	require.Zero(t, calls)
	require.False(t, conn.loggedOff)
}

// TestManager_MachineAuth writes the payload and echoes the update in the acknowledgment.
func TestManager_MachineAuth(t *testing.T) {
	t.Parallel()

	update := &workshop.MachineAuthEvent{
		JobID:           "job-1",
		FileName:        "sentry.bin",
		Offset:          4,
		BytesToWrite:    3,
		Data:            []byte{1, 2, 3, 4, 5},
		OneTimePassword: []byte{9},
	}

	conn := newFakeConnection()
	conn.onLogOn = func(*workshop.LogOnDetails) []workshop.Event {
		return []workshop.Event{update, &workshop.LoggedOnEvent{Result: workshop.ResultOK}}
	}

	trust := new(fakeTrust)

	state := newTestManager(conn, trust, new(fakePrompter), countingPipeline(new(int), nil)).Run(context.Background())
	require.Equal(t, StateLoggedOff, state)
	require.Equal(t, [][]byte{{1, 2, 3}}, trust.writes)
	require.Len(t, conn.acks, 1)

	ack := conn.acks[0]
	require.Equal(t, "job-1", ack.JobID)
	require.Equal(t, "sentry.bin", ack.FileName)
	require.EqualValues(t, 4, ack.Offset)
	require.Equal(t, 3, ack.BytesWritten)
	require.EqualValues(t, 7, ack.FileSize)
	require.Equal(t, workshop.ResultOK, ack.Result)
	require.Equal(t, []byte{9}, ack.OneTimePassword)
	require.Equal(t, trust.digest, ack.SentryHash)
}

// TestManager_MachineAuthWriteFailure acknowledges with Fail.
func TestManager_MachineAuthWriteFailure(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onLogOn = func(*workshop.LogOnDetails) []workshop.Event {
		return []workshop.Event{
			&workshop.MachineAuthEvent{JobID: "job", BytesToWrite: 1, Data: []byte{1}},
			&workshop.LoggedOnEvent{Result: workshop.ResultOK},
		}
	}

	trust := &fakeTrust{writeErr: errTestWrite}

	newTestManager(conn, trust, new(fakePrompter), countingPipeline(new(int), nil)).Run(context.Background())
	require.Len(t, conn.acks, 1)
	require.Equal(t, workshop.ResultFail, conn.acks[0].Result)
	require.Nil(t, conn.acks[0].SentryHash)
}

// TestManager_PipelineFailures pauses for acknowledgment only on unexpected faults.
func TestManager_PipelineFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pipeline Pipeline
		wantAck  int
	}{
		{
			name:     "named failure",
			pipeline: countingPipeline(new(int), errTestNamed),
			wantAck:  0,
		},
		{
			name:     "fault",
			pipeline: countingPipeline(new(int), faultError{}),
			wantAck:  1,
		},
		{
			name: "panic",
			pipeline: pipelineFunc(func(context.Context) error {
				panic("nil map")
			}),
			wantAck: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conn := newFakeConnection()
			prompter := new(fakePrompter)

			state := newTestManager(conn, new(fakeTrust), prompter, tt.pipeline).Run(context.Background())
			require.Equal(t, StateLoggedOff, state)
			require.True(t, conn.loggedOff)
			require.Equal(t, tt.wantAck, prompter.acknowledged)
		})
	}
}

// TestManager_CanceledContextFails stops polling once the context is done.
func TestManager_CanceledContextFails(t *testing.T) {
	t.Parallel()

	conn := newFakeConnection()
	conn.onConnect = func(int) []workshop.Event { return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	state := newTestManager(conn, new(fakeTrust), new(fakePrompter), countingPipeline(new(int), nil)).Run(ctx)
	require.Equal(t, StateFailed, state)
	require.True(t, conn.disconnected)
}

// TestState_Terminal checks terminal states and names.
func TestState_Terminal(t *testing.T) {
	t.Parallel()

	require.True(t, StateLoggedOff.Terminal())
	require.True(t, StateFailed.Terminal())
	require.False(t, StateAwaitingCredentialChallenge.Terminal())
	require.Equal(t, "AwaitingCredentialChallenge", StateAwaitingCredentialChallenge.String())
	require.Equal(t, "State(42)", State(42).String())
}
