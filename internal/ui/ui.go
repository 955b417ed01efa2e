// Package ui defines the narrow host collaborator surface both pipelines
// depend on: confirm/input prompts, notifications, and an external
// browser handoff. The pipelines never talk to a terminal or an IDE
// directly; they receive a Host. Terminal is the implementation used by
// the snarf CLI.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// Host is the prompt/notification surface consumed by the pipelines.
type Host interface {
	// Confirm asks a yes/no question and returns the answer.
	Confirm(prompt string) (bool, error)

	// Input asks for a single line of input. When validate is non-nil
	// the prompt repeats until the input validates.
	Input(prompt string, validate func(string) error) (string, error)

	// InputSecret asks for a single line of input without echoing it.
	InputSecret(prompt string) (string, error)

	// Notify surfaces an informational message.
	Notify(msg string)

	// WarnUser surfaces a non-fatal warning.
	WarnUser(msg string)

	// OpenBrowser opens url in the user's external browser.
	OpenBrowser(url string) error
}

// Terminal implements Host against stdin/stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a Terminal host reading from stdin and writing to
// stdout.
func NewTerminal() *Terminal {
	return &Terminal{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// NewTerminalWith creates a Terminal host with explicit streams (for
// tests).
func NewTerminalWith(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm implements Host.Confirm. Empty input and anything not starting
// with 'y' count as no.
func (t *Terminal) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(t.out, "%s [y/N] ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// Input implements Host.Input.
func (t *Terminal) Input(prompt string, validate func(string) error) (string, error) {
	for {
		fmt.Fprintf(t.out, "%s: ", prompt)
		line, err := t.in.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		value := strings.TrimSpace(line)
		if validate == nil {
			return value, nil
		}
		if verr := validate(value); verr != nil {
			fmt.Fprintf(t.out, "%v\n", verr)
			continue
		}
		return value, nil
	}
}

// InputSecret implements Host.InputSecret. When stdin is a terminal the
// input is read without echo; otherwise it falls back to a plain line
// read so piped input still works.
func (t *Terminal) InputSecret(prompt string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Notify implements Host.Notify.
func (t *Terminal) Notify(msg string) {
	fmt.Fprintln(t.out, msg)
}

// WarnUser implements Host.WarnUser.
func (t *Terminal) WarnUser(msg string) {
	fmt.Fprintf(t.out, "warning: %s\n", msg)
}

// OpenBrowser implements Host.OpenBrowser.
func (t *Terminal) OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
