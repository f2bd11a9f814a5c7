package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Hussein-Mazeh/credvault/auth"
	"github.com/Hussein-Mazeh/credvault/internal/service"
	"github.com/Hussein-Mazeh/credvault/internal/vault"
	"github.com/Hussein-Mazeh/credvault/krypto"
)

type menuChoice int

const (
	choiceAdd menuChoice = iota + 1
	choiceGet
	choiceGenerate
	choiceList
	choiceDelete
	choiceExit
)

func (c menuChoice) label() string {
	switch c {
	case choiceAdd:
		return "Add a new password"
	case choiceGet:
		return "Retrieve a password"
	case choiceGenerate:
		return "Generate a strong password"
	case choiceList:
		return "List services"
	case choiceDelete:
		return "Delete a password"
	case choiceExit:
		return "Exit"
	}
	return ""
}

func parseChoice(s string) (menuChoice, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < int(choiceAdd) || n > int(choiceExit) {
		return 0, false
	}
	return menuChoice(n), true
}

// session drives the interactive menu against an unlocked service.
type session struct {
	svc    *service.Service
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer
	// hidden reads a secret without echo. When nil secrets are read as lines from in.
	hidden func(prompt string) ([]byte, error)
}

func newSession(svc *service.Service, in io.Reader, out, errOut io.Writer) *session {
	return &session{
		svc:    svc,
		in:     bufio.NewScanner(in),
		out:    out,
		errOut: errOut,
	}
}

func (s *session) readLine(prompt string) (string, error) {
	line, err := s.readRaw(prompt)
	return strings.TrimSpace(line), err
}

// readRaw returns the next input line with only the line terminator removed.
func (s *session) readRaw(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSuffix(s.in.Text(), "\r"), nil
}

// readSecret keeps surrounding whitespace; it is part of the secret.
func (s *session) readSecret(prompt string) (string, error) {
	if s.hidden == nil {
		return s.readRaw(prompt)
	}
	pw, err := s.hidden(prompt)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(pw), nil
}

// unlock prompts for the master passphrase, creating it on first run.
func (s *session) unlock(ctx context.Context) error {
	needs, err := s.svc.NeedsMasterSetup()
	if err != nil {
		return err
	}

	var master string
	if needs {
		fmt.Fprintln(s.out, "No master passphrase found. Create one now.")
		master, err = s.readSecret("Create master passphrase: ")
		if err != nil {
			return inputErr(err)
		}
		confirm, err := s.readSecret("Confirm master passphrase: ")
		if err != nil {
			return inputErr(err)
		}
		if master != confirm {
			return userError{msg: "passphrases do not match"}
		}
		report := s.svc.Strength(master)
		fmt.Fprintf(s.out, "Passphrase strength: %s\n", report.Label())
	} else {
		master, err = s.readSecret("Enter master passphrase: ")
		if err != nil {
			return inputErr(err)
		}
	}

	created, err := s.svc.Unlock(ctx, master)
	switch {
	case errors.Is(err, auth.ErrInvalidPassphrase):
		return userError{msg: "incorrect master passphrase, access denied"}
	case errors.Is(err, auth.ErrEmptyPassphrase), errors.Is(err, auth.ErrWeakPassphrase):
		return userError{msg: err.Error()}
	case err != nil:
		return err
	}

	if created {
		fmt.Fprintln(s.out, "Master passphrase set.")
	}
	fmt.Fprintln(s.out, "Access granted.")
	return nil
}

// run loops over the menu until exit or end of input.
func (s *session) run(ctx context.Context) error {
	for {
		s.printMenu()
		line, err := s.readLine("Choose an option: ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}

		choice, ok := parseChoice(line)
		if !ok {
			fmt.Fprintln(s.errOut, "Invalid choice, try again.")
			continue
		}
		if choice == choiceExit {
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		}

		err = s.dispatch(ctx, choice)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		var uerr userError
		if errors.As(err, &uerr) {
			fmt.Fprintf(s.errOut, "[!] %s\n", uerr.msg)
			continue
		}
		if err != nil {
			return err
		}
	}
}

func (s *session) printMenu() {
	fmt.Fprintln(s.out)
	for c := choiceAdd; c <= choiceExit; c++ {
		fmt.Fprintf(s.out, "%d. %s\n", c, c.label())
	}
}

func (s *session) dispatch(ctx context.Context, c menuChoice) error {
	switch c {
	case choiceAdd:
		return s.add(ctx)
	case choiceGet:
		return s.get(ctx)
	case choiceGenerate:
		return s.generate(ctx)
	case choiceList:
		return s.list()
	case choiceDelete:
		return s.remove(ctx)
	}
	return fmt.Errorf("unhandled menu choice %d", c)
}

func (s *session) add(ctx context.Context) error {
	name, err := s.readLine("Service: ")
	if err != nil {
		return err
	}
	username, err := s.readLine("Username: ")
	if err != nil {
		return err
	}
	secret, err := s.readSecret("Password: ")
	if err != nil {
		return err
	}

	if s.svc.BreachCheckEnabled() {
		res, err := s.svc.CheckBreach(ctx, secret)
		switch {
		case err != nil:
			fmt.Fprintln(s.errOut, "[!] breach check unavailable")
		case res.Found:
			fmt.Fprintf(s.errOut, "[!] this password appears in %d known breaches\n", res.Count)
		}
	}

	if err := s.svc.Add(ctx, name, username, secret); err != nil {
		if errors.Is(err, vault.ErrServiceRequired) {
			return userError{msg: "service name must not be empty"}
		}
		return err
	}
	fmt.Fprintf(s.out, "[+] Password for %s saved.\n", name)
	return nil
}

func (s *session) get(ctx context.Context) error {
	name, err := s.readLine("Service to look up: ")
	if err != nil {
		return err
	}

	entry, err := s.svc.Get(ctx, name)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return userError{msg: fmt.Sprintf("no entry for %q", name)}
	case errors.Is(err, krypto.ErrInvalidToken):
		return userError{msg: fmt.Sprintf("entry for %q could not be decrypted (corrupted or written under another key)", name)}
	case err != nil:
		return err
	}

	fmt.Fprintf(s.out, "Service: %s\nUsername: %s\nPassword: %s\n", entry.Service, entry.Username, entry.Secret)
	return nil
}

func (s *session) generate(ctx context.Context) error {
	raw, err := s.readLine(fmt.Sprintf("Password length [%d]: ", auth.DefaultPasswordLength))
	if err != nil {
		return err
	}

	length := auth.DefaultPasswordLength
	if raw != "" {
		length, err = strconv.Atoi(raw)
		if err != nil {
			return userError{msg: "length must be a whole number"}
		}
	}

	pw, err := s.svc.Generate(ctx, length)
	if errors.Is(err, auth.ErrInvalidLength) {
		return userError{msg: "length must be a positive number"}
	}
	if err != nil {
		return err
	}

	report := s.svc.Strength(pw)
	fmt.Fprintf(s.out, "Generated password: %s\n", pw)
	fmt.Fprintf(s.out, "Strength: %s (crack time: %s)\n", report.Label(), report.CrackTime)
	return nil
}

func (s *session) list() error {
	names, err := s.svc.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(s.out, "No stored services.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintf(s.out, "  - %s\n", n)
	}
	return nil
}

func (s *session) remove(ctx context.Context) error {
	name, err := s.readLine("Service to delete: ")
	if err != nil {
		return err
	}
	if err := s.svc.Delete(ctx, name); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return userError{msg: fmt.Sprintf("no entry for %q", name)}
		}
		return err
	}
	fmt.Fprintf(s.out, "[-] %s deleted.\n", name)
	return nil
}

// inputErr turns a premature end of input during the unlock prompt into a user error.
func inputErr(err error) error {
	if errors.Is(err, io.EOF) {
		return userError{msg: "no passphrase provided"}
	}
	return err
}
