package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
	"github.com/dashboard-pro/dashboard-pro/internal/shared"
)

func (c *CLI) login(ctx context.Context, e *env, args []string) int {
	var email, passwordFile string
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	flags.SetOutput(c.Stderr)
	flags.StringVarP(&email, "email", "e", "", "account email")
	flags.StringVar(&passwordFile, "password-file", "", "read the password from this file instead of prompting")
	if err := flags.Parse(args); err != nil {
		return ExitUsage
	}

	if email == "" {
		line, err := c.readLine("Email: ")
		if err != nil {
			c.errorf("read email: %v", err)
			return ExitFail
		}
		email = line
	}

	var secret []byte
	var err error
	if passwordFile != "" {
		secret, err = readSecretFile(passwordFile)
	} else {
		secret, err = c.readSecret("Password: ")
	}
	if err != nil {
		c.errorf("read password: %v", err)
		return ExitFail
	}

	newChallenge := c.NewChallenge
	if newChallenge == nil {
		newChallenge = auth.NewChallenge
	}
	challenge := newChallenge()
	line, err := c.readLine("Security check: " + challenge.Question() + " ")
	if err != nil {
		c.errorf("read security check: %v", err)
		return ExitFail
	}
	// A non-numeric answer is just a wrong answer.
	submitted, convErr := strconv.Atoi(strings.TrimSpace(line))
	if convErr != nil {
		submitted = challenge.Answer() + 1
	}

	principal, err := e.manager.Login(ctx, email, string(secret), submitted, challenge.Answer())
	if err != nil {
		if errors.Is(err, auth.ErrChallengeMismatch) || errors.Is(err, auth.ErrInvalidCredentials) {
			c.errorf("%s", shared.UserSafeMessage(err))
		} else {
			c.errorf("login: %v", err)
		}
		return ExitFail
	}
	c.printf("Signed in as %s (%s).\n", principal.DisplayName, principal.Role.Label())
	return ExitOK
}

func (c *CLI) logout(ctx context.Context, e *env) int {
	if err := e.manager.Logout(ctx); err != nil {
		c.errorf("logout: %v", err)
		return ExitFail
	}
	c.printf("Signed out.\n")
	return ExitOK
}

func (c *CLI) whoami(e *env) int {
	p, ok := e.manager.Current()
	if !ok {
		c.printf("Not signed in.\n")
		return ExitFail
	}
	caps := make([]string, 0, len(rbac.Capabilities()))
	for _, capability := range e.manager.Capabilities() {
		caps = append(caps, string(capability))
	}
	c.printf("%s <%s>\nrole: %s\ncapabilities: %s\n", p.DisplayName, p.Email, p.Role.Label(), strings.Join(caps, ", "))
	return ExitOK
}

func (c *CLI) can(e *env, args []string) int {
	if len(args) != 1 {
		c.errorf("can: expected exactly one capability")
		return ExitUsage
	}
	capability, ok := rbac.ParseCapability(args[0])
	if !ok {
		c.errorf("can: unknown capability %q", args[0])
		return ExitUsage
	}
	if e.manager.HasCapability(capability) {
		c.printf("yes\n")
		return ExitOK
	}
	c.printf("no\n")
	return ExitFail
}

func (c *CLI) roles(args []string) int {
	if len(args) != 0 {
		c.errorf("roles: unexpected arguments")
		return ExitUsage
	}
	tw := tabwriter.NewWriter(c.Stdout, 0, 4, 2, ' ', 0)
	header := []string{"ROLE"}
	for _, capability := range rbac.Capabilities() {
		header = append(header, strings.ToUpper(string(capability)))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, role := range rbac.Roles() {
		row := []string{string(role)}
		for _, capability := range rbac.Capabilities() {
			mark := "-"
			if rbac.Resolve(role, capability) {
				mark = "x"
			}
			row = append(row, mark)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		c.errorf("roles: %v", err)
		return ExitFail
	}
	return ExitOK
}

func (c *CLI) hash(args []string) int {
	var cost int
	flags := pflag.NewFlagSet("hash", pflag.ContinueOnError)
	flags.SetOutput(c.Stderr)
	flags.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	if err := flags.Parse(args); err != nil {
		return ExitUsage
	}
	secret, err := c.readSecret("Secret: ")
	if err != nil {
		c.errorf("read secret: %v", err)
		return ExitFail
	}
	if len(secret) == 0 {
		c.errorf("hash: secret must not be empty")
		return ExitUsage
	}
	hashed, err := bcrypt.GenerateFromPassword(secret, cost)
	if err != nil {
		c.errorf("hash: %v", err)
		return ExitFail
	}
	c.printf("%s\n", hashed)
	return ExitOK
}

// readSecretFile reads a secret, dropping trailing newlines.
func readSecretFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(strings.TrimRight(string(data), "\r\n"))
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return data, nil
}
