package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Hussein-Mazeh/credvault/auth"
	"github.com/Hussein-Mazeh/credvault/internal/config"
	"github.com/Hussein-Mazeh/credvault/internal/db"
	"github.com/Hussein-Mazeh/credvault/internal/logger"
	"github.com/Hussein-Mazeh/credvault/internal/service"
	"github.com/Hussein-Mazeh/credvault/store"
)

const cliVersion = "0.2.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	args := os.Args[1:]
	cmd := "session"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "version":
		fmt.Println(cliVersion)
	case "help":
		printUsage()
	case "session":
		err = runSession(args)
	case "generate":
		err = runGenerate(args)
	case "audit":
		err = runAudit(args)
	default:
		printUsage()
		os.Exit(1)
	}
	handleError(err)
}

func handleError(err error) {
	if err == nil {
		return
	}

	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, uerr.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
	os.Exit(2)
}

// openService builds a Service from environment configuration. A non-empty
// dir overrides PM_VAULT_DIR.
func openService(dir string) (*service.Service, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, userError{msg: err.Error()}
	}
	if dir != "" {
		cfg.Vault.Dir = dir
	}

	log := logger.New(cfg.LogLevel)
	opts := service.Options{
		Iterations:    cfg.KDF.Iterations,
		EnforcePolicy: cfg.Vault.EnforcePolicy,
		Logger:        log,
	}
	if !cfg.Vault.AtomicWrites {
		opts.WriteMode = store.WriteInPlace
	}
	if cfg.HIBP.Enabled {
		opts.Breach = auth.NewBreachChecker(cfg.HIBP.URL, cfg.HIBP.Timeout)
	}
	if cfg.Audit.DB != "" {
		audit, err := db.Open(cfg.Audit.DB)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		if err := db.Migrate(audit); err != nil {
			db.Close(audit)
			return nil, fmt.Errorf("initialise audit log: %w", err)
		}
		opts.Audit = audit
	}

	return service.New(cfg.Vault.Dir, opts), nil
}

func runSession(args []string) error {
	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var dir string
	fs.StringVar(&dir, "dir", "", "vault directory (default $PM_VAULT_DIR or .)")

	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments"}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	svc, err := openService(dir)
	if err != nil {
		return err
	}
	defer svc.Close()

	s := newSession(svc, os.Stdin, os.Stdout, os.Stderr)
	if term.IsTerminal(int(syscall.Stdin)) {
		s.hidden = promptPassword
	}

	ctx := context.Background()
	fmt.Println("==== Password Manager ====")
	if err := s.unlock(ctx); err != nil {
		return err
	}
	return s.run(ctx)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var length int
	fs.IntVar(&length, "length", auth.DefaultPasswordLength, "password length")

	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments"}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	pw, err := auth.Generate(length)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidLength) {
			return userError{msg: "length must be a positive number"}
		}
		return fmt.Errorf("generate password: %w", err)
	}

	fmt.Println(pw)
	report := auth.Strength(pw)
	fmt.Fprintf(os.Stderr, "strength: %s (crack time: %s)\n", report.Label(), report.CrackTime)
	return nil
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var dir string
	var limit int
	fs.StringVar(&dir, "dir", "", "vault directory")
	fs.IntVar(&limit, "limit", 20, "number of events to show")

	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments"}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}
	if limit <= 0 {
		return userError{msg: "--limit must be positive"}
	}

	svc, err := openService(dir)
	if err != nil {
		return err
	}
	defer svc.Close()

	events, err := svc.RecentEvents(context.Background(), limit)
	if err != nil {
		if errors.Is(err, service.ErrAuditDisabled) {
			return userError{msg: "audit log disabled; set PM_AUDIT_DB to enable it"}
		}
		return fmt.Errorf("read audit log: %w", err)
	}
	printEvents(os.Stdout, events)
	return nil
}

func printEvents(w io.Writer, events []db.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no audit events recorded")
		return
	}
	for _, e := range events {
		status := "ok"
		if !e.OK {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %-8s %-4s %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, status, e.Service)
	}
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: pm [command]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  session [--dir <vault-dir>]        interactive menu (default)")
	fmt.Fprintln(os.Stderr, "  generate [--length <n>]            print a random password")
	fmt.Fprintln(os.Stderr, "  audit [--dir <vault-dir>] [--limit <n>]")
	fmt.Fprintln(os.Stderr, "  version")
}
