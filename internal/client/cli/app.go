package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/client/client"
	"github.com/dmitrijs2005/workoutlog/internal/client/config"
	"github.com/dmitrijs2005/workoutlog/internal/client/notify"
	"github.com/dmitrijs2005/workoutlog/internal/client/session"
	"github.com/dmitrijs2005/workoutlog/internal/client/workouts"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/workout"
)

// WorkoutStore is what the front end needs from workouts.Store.
type WorkoutStore interface {
	Save(ctx context.Context, rec workout.Record) (string, error)
	Records() []workout.Record
	Loading() bool
}

type App struct {
	config   *config.Config
	sessions session.Authenticator
	workouts WorkoutStore
	notifier notify.Notifier
	logger   logging.Logger
	rules    workout.Rules
	reader   *bufio.Reader
	out      io.Writer
	now      func() time.Time

	// draft holds the exercises of a workout that failed to save so the next
	// "novo" starts from them.
	draft     []workout.Exercise
	draftDate string

	closers []func()
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.New(c.LogLevel, c.LogFormat, os.Stderr)

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout, logger)
	if err != nil {
		logger.Error(ctx, "error creating client", "error", err)
		return nil, err
	}

	notifier := notify.NewWriterNotifier(os.Stdout)
	manager := session.NewManager(apiClient, apiClient, notifier, logger)
	store := workouts.NewStore(apiClient, notifier, logger)

	// The store must be following before the manager emits its first state.
	stopFollow := store.Follow(manager)
	stopSession := manager.Start(ctx)

	return &App{
		config:   c,
		sessions: manager,
		workouts: store,
		notifier: notifier,
		logger:   logger,
		rules:    workout.Rules{AllowZeroLoad: c.AllowZeroLoad},
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		now:      time.Now,
		closers: []func(){
			stopSession,
			stopFollow,
			store.Unsubscribe,
			func() { _ = apiClient.Close() },
		},
	}, nil
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.close()
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) close() {
	for _, fn := range a.closers {
		fn()
	}
}

func (a *App) view() view {
	cur := a.sessions.Current()
	switch {
	case cur.State == session.StateUnknown:
		return viewLoading
	case cur.State == session.StateAuthenticated:
		return viewSignedIn
	default:
		return viewSignedOut
	}
}

func (a *App) status() string {
	cur := a.sessions.Current()
	switch cur.State {
	case session.StateAuthenticated:
		return cur.Identifier
	case session.StatePendingApproval:
		return "aguardando aprovação"
	case session.StateUnknown:
		return "..."
	default:
		return "visitante"
	}
}
