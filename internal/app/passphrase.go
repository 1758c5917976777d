package app

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadPassphrase returns FDB_PASSPHRASE when set, otherwise prompts on the
// terminal without echo. confirm asks twice, for key generation.
func ReadPassphrase(prompt string, confirm bool) (string, error) {
	if p := os.Getenv("FDB_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for passphrase prompt; set FDB_PASSPHRASE")
	}

	p, err := readHidden(fd, prompt)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", fmt.Errorf("empty passphrase")
	}
	if confirm {
		again, err := readHidden(fd, "Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if again != p {
			return "", fmt.Errorf("passphrases do not match")
		}
	}
	return p, nil
}

func readHidden(fd int, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
