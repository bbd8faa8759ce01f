package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// execIface is the command surface the REPL drives. App satisfies it; tests
// use a stub.
type execIface interface {
	IsLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Navigate(ctx context.Context, path string) error
	Home(ctx context.Context) error
	Refresh(ctx context.Context) error
	Chat(ctx context.Context, text string) error
	Action(ctx context.Context, cmd string, args []string) (bool, error)
	PageHelp() []string
	handleError(ctx context.Context, err error)
	println(args ...any)
}

// runREPL reads commands line by line until EOF, "exit" or "quit".
//
// Global commands:
//
//	help               show commands of the current page as well
//	go <path>          open a page, e.g. "go /user/reports"
//	home               open the home page of the current role
//	refresh            render the current page again
//	chat <text>        ask the assistant
//	register | login | logout
//	exit | quit
//
// Anything else is offered to the current page (e.g. "open CIT-..." on the
// report list). Command errors are reported and the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		a.println(fmt.Sprintf("civic %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printHelp(a)
		case "go":
			if len(args) != 1 {
				a.println("Usage: go <path>")
				continue
			}
			err = a.Navigate(ctx, args[0])
		case "home":
			err = a.Home(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "chat":
			err = a.Chat(ctx, strings.Join(args, " "))
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "exit", "quit":
			a.println("Bye!")
			return
		default:
			var handled bool
			handled, err = a.Action(ctx, cmd, args)
			if !handled {
				a.println("Unknown command:", cmd)
			}
		}
		a.handleError(ctx, err)
	}
}

func printHelp(a execIface) {
	if a.IsLoggedIn() {
		a.println("Commands: go <path>, home, refresh, chat <text>, logout, exit")
	} else {
		a.println("Commands: go <path>, login, register, chat <text>, exit")
	}
	if page := a.PageHelp(); len(page) > 0 {
		a.println("On this page:")
		for _, l := range page {
			a.println("  " + l)
		}
	}
}
