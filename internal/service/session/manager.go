package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/gmpublish/internal/domain/workshop"
	"github.com/oshokin/gmpublish/internal/logger"
)

const (
	// DefaultReconnectDelay is the pause between a disconnect and the next connection attempt.
	DefaultReconnectDelay = 5 * time.Second
	// DefaultPollInterval bounds a single wait for the next event.
	DefaultPollInterval = time.Second
)

// Connection is the platform session transport.
type Connection interface {
	Connect(ctx context.Context)
	Wait(ctx context.Context, timeout time.Duration) (workshop.Event, bool)
	LogOn(ctx context.Context, details *workshop.LogOnDetails) error
	LogOff(ctx context.Context) error
	AcknowledgeMachineAuth(ctx context.Context, response *workshop.MachineAuthResponse) error
	Disconnect()
}

// TrustStore persists the sentry file.
type TrustStore interface {
	ReadDigest() ([]byte, error)
	Write(offset int64, data []byte) ([]byte, int64, error)
}

// Prompter asks the operator for input.
type Prompter interface {
	RequestCode(ctx context.Context, challenge workshop.Challenge) (string, error)
	Acknowledge(ctx context.Context, message string)
}

// Pipeline is the work performed once the session is logged in.
type Pipeline interface {
	Publish(ctx context.Context) error
}

// Credentials identify the account. Guard codes are filled in by the manager
// when the platform asks for them.
type Credentials struct {
	Username      string
	Password      string
	AuthCode      string
	TwoFactorCode string
	MachineName   string
}

// Manager owns the single session of a publishing run.
type Manager struct {
	// conn is the platform transport.
	conn Connection
	// trust stores the sentry file.
	trust TrustStore
	// prompter answers challenges and acknowledgments.
	prompter Prompter
	// pipeline runs once after logon.
	pipeline Pipeline

	// creds are sent with every logon attempt.
	creds Credentials
	// state is the current session state.
	state State
	// published is set once the pipeline has been started.
	published bool

	// reconnectDelay is the pause before reconnecting.
	reconnectDelay time.Duration
	// pollInterval bounds a single wait for events.
	pollInterval time.Duration
}

// Option configures the manager.
type Option func(*Manager)

// WithReconnectDelay sets the pause between a disconnect and the next connection attempt.
func WithReconnectDelay(delay time.Duration) Option {
	return func(m *Manager) {
		if delay >= 0 {
			m.reconnectDelay = delay
		}
	}
}

// WithPollInterval sets the bounded wait used when polling for events.
func WithPollInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// NewManager creates a manager in the Disconnected state.
func NewManager(
	conn Connection,
	trust TrustStore,
	prompter Prompter,
	pipeline Pipeline,
	creds Credentials,
	opts ...Option,
) *Manager {
	m := &Manager{
		conn:           conn,
		trust:          trust,
		prompter:       prompter,
		pipeline:       pipeline,
		creds:          creds,
		state:          StateDisconnected,
		reconnectDelay: DefaultReconnectDelay,
		pollInterval:   DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the current session state.
func (m *Manager) State() State {
	return m.state
}

// Run connects and handles events until the session is LoggedOff or Failed.
// A canceled ctx ends the session as Failed.
func (m *Manager) Run(ctx context.Context) State {
	ctx = logger.WithFields(logger.WithName(ctx, "session"), "username", m.creds.Username)

	m.connect(ctx)

	for !m.state.Terminal() {
		if err := ctx.Err(); err != nil {
			logger.WarnKV(ctx, "Session interrupted", "error", err)
			m.transition(ctx, StateFailed)
			m.conn.Disconnect()

			break
		}

		event, ok := m.conn.Wait(ctx, m.pollInterval)
		if !ok {
			continue
		}

		m.handle(ctx, event)
	}

	return m.state
}

func (m *Manager) handle(ctx context.Context, event workshop.Event) {
	switch e := event.(type) {
	case *workshop.ConnectedEvent:
		m.onConnected(ctx, e)
	case *workshop.DisconnectedEvent:
		m.onDisconnected(ctx, e)
	case *workshop.LoggedOnEvent:
		m.onLoggedOn(ctx, e)
	case *workshop.LoggedOffEvent:
		logger.WarnKV(ctx, "Logged off by the platform", "result", e.Result)
	case *workshop.MachineAuthEvent:
		m.onMachineAuth(ctx, e)
	default:
		logger.WarnKV(ctx, "Unknown event", "event", fmt.Sprintf("%T", event))
	}
}

func (m *Manager) connect(ctx context.Context) {
	m.transition(ctx, StateConnecting)
	logger.Info(ctx, "Connecting")
	m.conn.Connect(ctx)
}

func (m *Manager) onConnected(ctx context.Context, e *workshop.ConnectedEvent) {
	if e.Result != workshop.ResultOK {
		logger.ErrorKV(ctx, "Connection failed", "result", e.Result)
		m.transition(ctx, StateFailed)

		return
	}

	logger.Info(ctx, "Connected, logging on")
	m.logOn(ctx)
}

func (m *Manager) logOn(ctx context.Context) {
	digest, err := m.trust.ReadDigest()
	if err != nil {
		logger.WarnKV(ctx, "Unable to read sentry, logging on without it", "error", err)

		digest = nil
	}

	details := &workshop.LogOnDetails{
		Username:      m.creds.Username,
		Password:      m.creds.Password,
		AuthCode:      m.creds.AuthCode,
		TwoFactorCode: m.creds.TwoFactorCode,
		SentryHash:    digest,
		MachineName:   m.creds.MachineName,
	}

	// A failed send means the stream is gone; the disconnect event triggers a reconnect.
	if err = m.conn.LogOn(ctx, details); err != nil {
		logger.WarnKV(ctx, "Unable to send logon", "error", err)
	}
}

func (m *Manager) onLoggedOn(ctx context.Context, e *workshop.LoggedOnEvent) {
	switch e.Result {
	case workshop.ResultOK:
		logger.Info(ctx, "Logged on")
		m.transition(ctx, StateLoggedIn)
		m.publish(ctx)
		m.logOff(ctx)
	case workshop.ResultAccountLogonDenied:
		m.challenge(ctx, workshop.Challenge{Kind: workshop.CodeEmail, EmailDomain: e.EmailDomain})
	case workshop.ResultAccountLoginDeniedNeedTwoFactor:
		m.challenge(ctx, workshop.Challenge{Kind: workshop.CodeTwoFactor})
	default:
		logger.ErrorKV(ctx, "Logon failed", "result", e.Result, "extended_result", e.ExtendedResult)
		m.transition(ctx, StateFailed)
	}
}

// challenge asks for the code of the given kind. A kind whose code was already
// supplied means the platform rejected it.
func (m *Manager) challenge(ctx context.Context, challenge workshop.Challenge) {
	target := &m.creds.AuthCode
	if challenge.Kind == workshop.CodeTwoFactor {
		target = &m.creds.TwoFactorCode
	}

	if *target != "" {
		logger.ErrorKV(ctx, "Guard code rejected", "kind", challenge.Kind)
		m.transition(ctx, StateFailed)

		return
	}

	m.transition(ctx, StateAwaitingCredentialChallenge)
	logger.InfoKV(ctx, "Guard code required", "kind", challenge.Kind)

	code, err := m.prompter.RequestCode(ctx, challenge)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to read guard code", "error", err)
		m.transition(ctx, StateFailed)

		return
	}

	// The platform drops the connection after a challenge; the code is sent on the next logon.
	*target = code
}

func (m *Manager) onDisconnected(ctx context.Context, e *workshop.DisconnectedEvent) {
	if m.state.Terminal() {
		logger.DebugKV(ctx, "Ignoring disconnect after the session ended", "state", m.state)

		return
	}

	m.transition(ctx, StateDisconnected)
	logger.InfoKV(ctx, "Disconnected, reconnecting", "delay", m.reconnectDelay, "user_initiated", e.UserInitiated)

	if !sleep(ctx, m.reconnectDelay) {
		return
	}

	m.connect(ctx)
}

func (m *Manager) onMachineAuth(ctx context.Context, e *workshop.MachineAuthEvent) {
	payload := e.Payload()

	response := &workshop.MachineAuthResponse{
		JobID:           e.JobID,
		FileName:        e.FileName,
		Offset:          e.Offset,
		BytesWritten:    len(payload),
		Result:          workshop.ResultOK,
		OneTimePassword: e.OneTimePassword,
	}

	digest, size, err := m.trust.Write(e.Offset, payload)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to update sentry", "error", err)

		response.Result = workshop.ResultFail
	} else {
		response.FileSize = size
		response.SentryHash = digest

		logger.InfoKV(ctx, "Sentry updated", "offset", e.Offset, "bytes", len(payload), "size", size)
	}

	if err = m.conn.AcknowledgeMachineAuth(ctx, response); err != nil {
		logger.WarnKV(ctx, "Unable to acknowledge sentry update", "error", err)
	}
}

// publish runs the pipeline once. Unexpected faults pause for acknowledgment.
func (m *Manager) publish(ctx context.Context) {
	if m.published {
		return
	}

	m.published = true

	err := m.runPipeline(ctx)
	switch {
	case err == nil:
		logger.Info(ctx, "Publish finished")
	case isFault(err):
		logger.ErrorKV(ctx, "Unexpected failure while publishing", "error", err)
		m.prompter.Acknowledge(ctx, "Unexpected error. Press Enter to log off.")
	default:
		logger.ErrorKV(ctx, "Publish failed", "error", err)
	}
}

func (m *Manager) runPipeline(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()

	return m.pipeline.Publish(ctx)
}

func (m *Manager) logOff(ctx context.Context) {
	if err := m.conn.LogOff(ctx); err != nil {
		logger.WarnKV(ctx, "Unable to log off", "error", err)
	}

	m.transition(ctx, StateLoggedOff)
	logger.Info(ctx, "Logged off")
}

func (m *Manager) transition(ctx context.Context, next State) {
	if m.state == next {
		return
	}

	logger.DebugKV(ctx, "Session state changed", "from", m.state, "to", next)
	m.state = next
}

// panicError is a recovered pipeline panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Fault marks the panic as unexpected.
func (*panicError) Fault() bool {
	return true
}

// isFault reports whether err is an unexpected failure rather than a named one.
func isFault(err error) bool {
	var fault interface{ Fault() bool }

	return errors.As(err, &fault) && fault.Fault()
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
