// Package cli implements dashctl, a terminal client for the dashboard's
// authorization model. Its session is process-wide: one principal stored
// under session.CurrentUserKey and restored at the start of every command.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	"github.com/dashboard-pro/dashboard-pro/internal/platform/cache"
	"github.com/dashboard-pro/dashboard-pro/internal/session"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitFail  = 1
	ExitUsage = 2
)

const usage = `usage: dashctl [global flags] <command> [flags]

commands:
  login      sign in (prompts for password and security check)
  logout     sign out
  whoami     show the signed-in principal
  can CAP    exit 0 when the signed-in principal holds CAP
  roles      print the role/capability matrix
  hash       bcrypt a secret for a roster file

global flags:
`

// CLI runs dashctl commands against the given streams.
type CLI struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// ReadSecret reads a secret without echo. Nil reads from the terminal
	// when Stdin is one, otherwise a line from Stdin.
	ReadSecret func(prompt string) ([]byte, error)
	// NewChallenge issues the security check. Nil uses auth.NewChallenge.
	NewChallenge func() auth.Challenge

	lines *bufio.Reader
}

// New returns a CLI bound to the process streams.
func New() *CLI {
	return &CLI{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

type globalOptions struct {
	redisAddr  string
	memory     bool
	rosterPath string
	ttl        time.Duration
}

// env is what a command runs against.
type env struct {
	manager *session.Manager
	close   func()
}

// Run executes args (without the program name) and returns the exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	var opts globalOptions
	flags := pflag.NewFlagSet("dashctl", pflag.ContinueOnError)
	flags.SetOutput(c.Stderr)
	flags.SetInterspersed(false)
	flags.StringVar(&opts.redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address holding the session")
	flags.BoolVar(&opts.memory, "memory", false, "keep the session in memory for this invocation only")
	flags.StringVar(&opts.rosterPath, "roster", os.Getenv("ROSTER_PATH"), "YAML roster file (default: demo accounts)")
	flags.DurationVar(&opts.ttl, "ttl", 24*time.Hour, "session lifetime in redis")
	flags.Usage = func() {
		_, _ = fmt.Fprint(c.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return ExitUsage
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "roles":
		return c.roles(cmdArgs)
	case "hash":
		return c.hash(cmdArgs)
	case "login", "logout", "whoami", "can":
	default:
		c.errorf("unknown command %q", command)
		flags.Usage()
		return ExitUsage
	}

	e, err := c.open(ctx, opts)
	if err != nil {
		c.errorf("%v", err)
		return ExitFail
	}
	defer e.close()

	switch command {
	case "login":
		return c.login(ctx, e, cmdArgs)
	case "logout":
		return c.logout(ctx, e)
	case "whoami":
		return c.whoami(e)
	default:
		return c.can(e, cmdArgs)
	}
}

// open loads the roster and restores the process-wide session.
func (c *CLI) open(ctx context.Context, opts globalOptions) (*env, error) {
	roster, err := auth.LoadRoster(opts.rosterPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(c.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if unknown := roster.UnknownRoles(); len(unknown) > 0 {
		logger.Warn("roster accounts with unknown roles have no capabilities", slog.Any("emails", unknown))
	}

	var store session.Store
	closeFn := func() {}
	if opts.memory {
		store = session.NewMemoryStore()
	} else {
		client, err := cache.New(ctx, opts.redisAddr)
		if err != nil {
			return nil, err
		}
		store = session.NewRedisStore(client, opts.ttl)
		closeFn = func() { _ = client.Close() }
	}

	mgr := session.NewManager(store, session.CurrentUserKey, auth.NewService(roster), logger)
	mgr.Restore(ctx)
	return &env{manager: mgr, close: closeFn}, nil
}

func (c *CLI) readLine(prompt string) (string, error) {
	if prompt != "" {
		_, _ = fmt.Fprint(c.Stderr, prompt)
	}
	if c.lines == nil {
		c.lines = bufio.NewReader(c.Stdin)
	}
	line, err := c.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *CLI) readSecret(prompt string) ([]byte, error) {
	if c.ReadSecret != nil {
		return c.ReadSecret(prompt)
	}
	if f, ok := c.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(c.Stderr, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(c.Stderr)
		return secret, err
	}
	line, err := c.readLine(prompt)
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

func (c *CLI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.Stdout, format, args...)
}

func (c *CLI) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.Stderr, "dashctl: "+format+"\n", args...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
