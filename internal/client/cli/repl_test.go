package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	loggedIn bool

	calls   []string
	printed []string
	errs    []error

	actionErr error
	known     map[string]bool
}

func (s *stubExec) IsLoggedIn() bool { return s.loggedIn }

func (s *stubExec) Register(ctx context.Context) error {
	s.calls = append(s.calls, "register")
	return nil
}

func (s *stubExec) Login(ctx context.Context) error {
	s.calls = append(s.calls, "login")
	s.loggedIn = true
	return nil
}

func (s *stubExec) Logout(ctx context.Context) error {
	s.calls = append(s.calls, "logout")
	s.loggedIn = false
	return nil
}

func (s *stubExec) Navigate(ctx context.Context, path string) error {
	s.calls = append(s.calls, "go "+path)
	return nil
}

func (s *stubExec) Home(ctx context.Context) error {
	s.calls = append(s.calls, "home")
	return nil
}

func (s *stubExec) Refresh(ctx context.Context) error {
	s.calls = append(s.calls, "refresh")
	return nil
}

func (s *stubExec) Chat(ctx context.Context, text string) error {
	s.calls = append(s.calls, "chat "+text)
	return nil
}

func (s *stubExec) Action(ctx context.Context, cmd string, args []string) (bool, error) {
	if !s.known[cmd] {
		return false, nil
	}
	s.calls = append(s.calls, strings.TrimSpace(cmd+" "+strings.Join(args, " ")))
	return true, s.actionErr
}

func (s *stubExec) PageHelp() []string { return []string{"open       <ticket>  show one issue"} }

func (s *stubExec) handleError(ctx context.Context, err error) {
	if err != nil {
		s.errs = append(s.errs, err)
	}
}

func (s *stubExec) println(args ...any) { s.printed = append(s.printed, fmt.Sprint(args...)) }

func TestRunREPL_Commands(t *testing.T) {
	input := strings.Join([]string{
		"",
		"help",
		"login",
		"go /user/reports",
		"go",
		"open CIT-2026-00000001",
		"home",
		"refresh",
		"chat where is my ticket",
		"frobnicate",
		"logout",
		"register",
		"exit",
		"login",
	}, "\n")

	ex := &stubExec{known: map[string]bool{"open": true}}
	runREPL(context.Background(), ex, func() string { return "status" }, bufio.NewScanner(strings.NewReader(input)))

	assert.Equal(t, []string{
		"login",
		"go /user/reports",
		"open CIT-2026-00000001",
		"home",
		"refresh",
		"chat where is my ticket",
		"logout",
		"register",
	}, ex.calls)
	assert.Contains(t, ex.printed, "Usage: go <path>")
	assert.Contains(t, ex.printed, "Unknown command:frobnicate")
	assert.Contains(t, ex.printed, "Bye!")
	assert.Empty(t, ex.errs)
}

func TestRunREPL_ActionErrorsAreHandled(t *testing.T) {
	boom := errors.New("boom")
	ex := &stubExec{known: map[string]bool{"upvote": true}, actionErr: boom}

	runREPL(context.Background(), ex, func() string { return "" }, bufio.NewScanner(strings.NewReader("upvote CIT-1\nupvote CIT-2\n")))

	assert.Equal(t, []error{boom, boom}, ex.errs)
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &stubExec{}
	runREPL(ctx, ex, func() string { return "" }, bufio.NewScanner(strings.NewReader("login\n")))

	assert.Empty(t, ex.calls)
}

func TestPrintHelp(t *testing.T) {
	ex := &stubExec{}
	printHelp(ex)
	assert.Contains(t, ex.printed[0], "register")

	ex = &stubExec{loggedIn: true}
	printHelp(ex)
	assert.Contains(t, ex.printed[0], "logout")
	assert.Contains(t, ex.printed, "On this page:")
}
