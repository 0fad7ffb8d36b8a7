package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/oshokin/gmpublish/internal/domain/workshop"
	"github.com/oshokin/gmpublish/internal/logger"
)

// ErrEmptyCode is returned when the operator enters nothing.
var ErrEmptyCode = errors.New("code must not be empty")

var errUnknownChallenge = errors.New("unknown challenge kind")

// Console is a Prompter reading from an input stream.
type Console struct {
	// in buffers operator input in line mode.
	in *bufio.Reader
	// out receives questions in line mode.
	out io.Writer
	// interactive switches to huh forms.
	interactive bool
}

// NewConsole returns a prompter bound to the process stdin and stdout.
func NewConsole() *Console {
	fd := os.Stdin.Fd()

	c := NewLineConsole(os.Stdin, os.Stdout)
	c.interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	return c
}

// NewLineConsole returns a prompter that always reads plain lines.
func NewLineConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// RequestCode asks for the code matching the challenge.
func (c *Console) RequestCode(ctx context.Context, challenge workshop.Challenge) (string, error) {
	question, err := questionFor(challenge)
	if err != nil {
		return "", err
	}

	var code string

	if c.interactive {
		input := huh.NewInput().
			Title(question).
			Value(&code).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return ErrEmptyCode
				}

				return nil
			})

		if err = huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
			return "", fmt.Errorf("read code: %w", err)
		}
	} else {
		code, err = c.readLine(question + ": ")
		if err != nil {
			return "", err
		}
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyCode
	}

	return code, nil
}

// Acknowledge shows message and blocks until the operator confirms.
func (c *Console) Acknowledge(ctx context.Context, message string) {
	if c.interactive {
		note := huh.NewNote().Title(message).Next(true).NextLabel("Done")

		if err := huh.NewForm(huh.NewGroup(note)).RunWithContext(ctx); err != nil {
			logger.DebugKV(ctx, "Acknowledgment aborted", "error", err)
		}

		return
	}

	if _, err := c.readLine(message + " "); err != nil && !errors.Is(err, io.EOF) {
		logger.DebugKV(ctx, "Acknowledgment aborted", "error", err)
	}
}

func (c *Console) readLine(question string) (string, error) {
	if _, err := fmt.Fprint(c.out, question); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read line: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func questionFor(challenge workshop.Challenge) (string, error) {
	switch challenge.Kind {
	case workshop.CodeEmail:
		if challenge.EmailDomain != "" {
			return "Please enter the auth code sent to the email at " + challenge.EmailDomain, nil
		}

		return "Please enter the auth code sent to your email", nil
	case workshop.CodeTwoFactor:
		return "Please enter your 2 factor auth code from your authenticator app", nil
	default:
		return "", fmt.Errorf("%w: %d", errUnknownChallenge, challenge.Kind)
	}
}
