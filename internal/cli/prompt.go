package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptPassword reads a password without echoing it. Falls back to a plain
// read when stdin is not a terminal (scheduled-task runs pipe the password).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	var password string
	if _, err := fmt.Fscanln(os.Stdin, &password); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}
