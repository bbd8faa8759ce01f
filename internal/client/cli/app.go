package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/client/client"
	"github.com/dmitrijs2005/civicreport/internal/client/config"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
	"github.com/dmitrijs2005/civicreport/internal/client/services"
	"github.com/dmitrijs2005/civicreport/internal/client/session"
	"github.com/dmitrijs2005/civicreport/internal/client/wizard"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config *config.Config
	logger logging.Logger

	auth   services.AuthService
	issues services.IssueService
	chat   *services.ChatService
	store  *session.Store
	router *router.Router
	wizard *wizard.Wizard
	pages  map[string]page

	reader *bufio.Reader
	out    io.Writer

	modeMu sync.RWMutex
	mode   Mode

	current     router.Decision
	issueFilter api.ListIssuesRequest
	nearby      []api.Issue

	closers []func() error
}

// NewApp opens local storage, connects to the server and wires the
// services. The stored session is loaded in the background; pages that need
// it show a placeholder until it is ready.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level := slog.LevelWarn
	if c.Debug {
		level = slog.LevelDebug
	}
	logger := logging.NewTextLogger(os.Stderr, level)

	table := router.Default()
	if c.RoutesFile != "" {
		t, err := router.LoadFile(c.RoutesFile)
		if err != nil {
			return nil, err
		}
		table = t
	}

	db, err := client.OpenDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	chain := session.NewChain(common.SessionStorageKey, session.NewSQLiteBackend(db), session.NewMemoryBackend(), logger)
	store := session.NewStore(chain, chain, logger)

	auth := services.NewAuthService(apiClient, chain, store, logger)
	issues := services.NewIssueService(apiClient, &http.Client{Timeout: 60 * time.Second}, logger)
	bot := client.NewChatbotClient(c.ChatbotURL, nil)
	bot.UseTokens(apiClient)
	chat := services.NewChatService(bot, store, logger)

	a := newApp(c, logger, auth, issues, chat, store, router.New(table), os.Stdin, os.Stdout)
	a.closers = append(a.closers, db.Close)

	go func() {
		store.Initialize(ctx)
		auth.Restore(ctx)
	}()

	return a, nil
}

func newApp(
	c *config.Config,
	logger logging.Logger,
	auth services.AuthService,
	issues services.IssueService,
	chat *services.ChatService,
	store *session.Store,
	rt *router.Router,
	in io.Reader,
	out io.Writer,
) *App {
	a := &App{
		config: c,
		logger: logger.With("module", "cli"),
		auth:   auth,
		issues: issues,
		chat:   chat,
		store:  store,
		router: rt,
		wizard: wizard.New(issues),
		reader: bufio.NewReader(in),
		out:    out,
		mode:   ModeOffline,
	}
	a.pages = a.buildPages()
	return a
}

// Run starts the connectivity watcher and blocks in the REPL until the user
// exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.println(renderTitle("CivicReport") + mutedStyle.Render("  type 'help' for commands"))
	if err := a.Navigate(ctx, "/"); err != nil {
		a.printErr(err)
	}
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close(ctx context.Context) {
	if err := a.auth.Close(ctx); err != nil {
		a.logger.Warn(ctx, "closing client", "error", err)
	}
	for _, c := range a.closers {
		_ = c()
	}
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

// StartOnlineStatusWatcher pings the server every interval and flips Mode.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.auth.Ping(pctx)
		cancel()

		if err != nil {
			a.setMode(ModeOffline)
		} else {
			a.setMode(ModeOnline)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printErr(err error) {
	fmt.Fprintln(a.out, errorStyle.Render("Error: "+err.Error()))
}
