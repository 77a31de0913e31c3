package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"garage-go/internal/garage"
)

var stdin = bufio.NewReader(os.Stdin)

// promptConfirmer asks on the terminal. Anything but y or yes declines.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// confirmer returns the confirmer for a destructive command, honouring --yes.
func confirmer(cmd *cobra.Command) garage.Confirmer {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return garage.AlwaysConfirm{}
	}
	return promptConfirmer{in: stdin, out: os.Stderr}
}

func addYesFlag(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	}
}

// readLine prompts for one line of input.
func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword prompts without echo when stdin is a terminal.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(prompt)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}
