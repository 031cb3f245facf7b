package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/client/client"
)

// Service is the server surface the commands need. *client.GRPCClient
// satisfies it.
type Service interface {
	Register(ctx context.Context, username, password string) (client.Result, error)
	Login(ctx context.Context, username, password string) (client.LoginResult, error)
	Refresh(ctx context.Context) (client.LoginResult, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword, repeatPassword string) (client.Result, error)
	ChangeRole(ctx context.Context, username, role string) (client.Result, error)
	ChangeActiveStatus(ctx context.Context, username string) (client.Result, bool, error)
	DeleteUser(ctx context.Context, username string) (client.Result, error)
	Ping(ctx context.Context) error
}

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var errUsage = errors.New("usage")

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type command struct {
	usage string
	args  int
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":      {usage: "register", run: (*App).Register},
	"login":         {usage: "login", run: (*App).Login},
	"refresh":       {usage: "refresh", run: (*App).Refresh},
	"passwd":        {usage: "passwd", run: (*App).ChangePassword},
	"role":          {usage: "role <username> <Regular|Admin>", args: 2, run: (*App).ChangeRole},
	"toggle-active": {usage: "toggle-active <username>", args: 1, run: (*App).ToggleActive},
	"delete":        {usage: "delete <username>", args: 1, run: (*App).Delete},
	"ping":          {usage: "ping", run: (*App).Ping},
}

var commandOrder = []string{"register", "login", "refresh", "passwd", "role", "toggle-active", "delete", "ping"}

type App struct {
	svc    Service
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(svc Service, in io.Reader, out io.Writer) *App {
	return &App{svc: svc, reader: bufio.NewReader(in), out: out}
}

// Run executes the subcommand in args, or starts the interactive shell when
// args is empty. The result is a process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.runREPL(ctx)
		return ExitOK
	}

	err := a.dispatch(ctx, args[0], args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(a.out, err)
		a.printUsage()
		return ExitUsage
	case errors.Is(err, errFailed):
		return ExitFailure
	default:
		fmt.Fprintln(a.out, "error:", err)
		return ExitFailure
	}
}

func (a *App) dispatch(ctx context.Context, name string, args []string) error {
	if name == "help" {
		a.printUsage()
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if len(args) != cmd.args {
		return fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}
	return cmd.run(a, ctx, args)
}

func (a *App) printUsage() {
	fmt.Fprintln(a.out, "Available commands:")
	for _, name := range commandOrder {
		fmt.Fprintln(a.out, "  "+commands[name].usage)
	}
}

// runREPL reads commands line by line until EOF or "exit". Tokens obtained
// by login stay in the client for the rest of the session.
func (a *App) runREPL(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to AccountKeeper CLI (type 'help' for commands)")
	for {
		fmt.Fprint(a.out, "ak> ")
		line, err := a.reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) > 0 {
			if parts[0] == "exit" || parts[0] == "quit" {
				fmt.Fprintln(a.out, "Bye!")
				return
			}
			if derr := a.dispatch(ctx, parts[0], parts[1:]); derr != nil && !errors.Is(derr, errFailed) {
				fmt.Fprintln(a.out, "error:", derr)
			}
		}
		if err != nil || ctx.Err() != nil {
			return
		}
	}
}

// errFailed marks a business failure that was already printed.
var errFailed = errors.New("request failed")

func (a *App) report(res client.Result) error {
	if res.Success {
		fmt.Fprintln(a.out, "OK:", res.Message)
		return nil
	}
	fmt.Fprintf(a.out, "FAILED (%s): %s\n", res.Outcome, res.Message)
	return errFailed
}
