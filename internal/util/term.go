package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoTerminal is returned by prompts when stdin is not interactive.
var ErrNoTerminal = errors.New("stdin is not a terminal")

// IsTerminal reports whether stdin is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompt asks for one line on the terminal.
func Prompt(label string) (string, error) {
	if !IsTerminal() {
		return "", ErrNoTerminal
	}
	return PromptFrom(os.Stdin, os.Stderr, label)
}

// PromptFrom writes label to w and reads one trimmed line from r.
func PromptFrom(r io.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadPassword asks for a secret without echoing it.
func ReadPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// WaitForKey prints msg and blocks until a key is pressed, so a console
// opened by double-click stays visible after a fatal error.
func WaitForKey(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if state, err := term.MakeRaw(fd); err == nil {
			defer term.Restore(fd, state)
		}
	}
	b := make([]byte, 1)
	_, _ = os.Stdin.Read(b)
}
