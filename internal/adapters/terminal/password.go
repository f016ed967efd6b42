// Package terminal reads the Enlighten password without echoing it.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// passwordEnvVar short-circuits the prompt, for CI and scripted use.
const passwordEnvVar = "ENLIGHTEN_PASSWORD"

// Adapter handles secure password input from the terminal.
type Adapter struct {
	stdin  io.Reader
	stderr io.Writer
}

// NewAdapter creates a new terminal adapter.
func NewAdapter(stdin io.Reader, stderr io.Writer) *Adapter {
	return &Adapter{
		stdin:  stdin,
		stderr: stderr,
	}
}

// ReadPassword reads a password from the terminal with echo disabled.
func (a *Adapter) ReadPassword(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if envPassword := os.Getenv(passwordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	if !a.IsInteractive() {
		return "", errors.New("cannot read password: non-interactive terminal")
	}

	fmt.Fprint(a.stderr, prompt)

	if file, ok := a.stdin.(*os.File); ok {
		password, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(a.stderr) // Newline after the echo-less input.
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	return "", errors.New("cannot read password from non-terminal input")
}

// IsInteractive returns true if the terminal is interactive.
func (a *Adapter) IsInteractive() bool {
	if file, ok := a.stdin.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}
