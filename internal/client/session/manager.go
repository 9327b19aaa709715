package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/workoutlog/internal/client/client"
	"github.com/dmitrijs2005/workoutlog/internal/client/notify"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/workout"
)

// approvalRecord is the value stored at usuarios/{subject}.
type approvalRecord struct {
	Email    string `json:"email"`
	Approved bool   `json:"aprovado"`
}

type Manager struct {
	auth     client.AuthService
	store    client.DataStore
	notifier notify.Notifier
	logger   logging.Logger

	mu      sync.Mutex
	current Session
	busy    int
	// epoch counts session-changed events; results of approval reads started
	// in an older epoch are dropped.
	epoch     uint64
	listeners map[int]func(Session)
	nextID    int
}

var _ Authenticator = (*Manager)(nil)

func NewManager(auth client.AuthService, store client.DataStore, notifier notify.Notifier, logger logging.Logger) *Manager {
	return &Manager{
		auth:      auth,
		store:     store,
		notifier:  notifier,
		logger:    logger.With("module", "session"),
		current:   Session{State: StateUnknown},
		listeners: make(map[int]func(Session)),
	}
}

// Start follows the auth service's session-changed events until stop is
// called. Every session start refreshes the approval flag.
func (m *Manager) Start(ctx context.Context) (stop func()) {
	return m.auth.OnSessionChanged(func(subjectID string) {
		m.sessionChanged(ctx, subjectID)
	})
}

func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view()
}

// OnChange registers fn to be called with the new state after every change.
func (m *Manager) OnChange(fn func(Session)) (remove func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Register creates the credential and the approval record. The session
// stays PendingApproval until an administrator approves it.
func (m *Manager) Register(ctx context.Context, creds workout.Credentials) error {
	if err := workout.ValidateCredentials(creds); err != nil {
		m.notifier.Alert(ctx, err.Error())
		return err
	}

	done := m.begin()
	defer done()

	identifier := strings.TrimSpace(creds.Identifier)

	subjectID, err := m.auth.CreateCredential(ctx, identifier, creds.Secret)
	if err != nil {
		m.logger.Warn(ctx, "sign-up failed", "error", err)
		m.notifier.Toast(ctx, registerFailure(err))
		return err
	}

	rec := approvalRecord{Email: identifier, Approved: false}
	if err := m.store.Write(ctx, common.UserPath(subjectID), rec); err != nil {
		m.logger.Error(ctx, "approval record write failed", "subject", subjectID, "error", err)
		m.notifier.Toast(ctx, registerFailure(err))
		return err
	}

	m.apply(m.currentEpoch(), func(s *Session) {
		*s = Session{State: StatePendingApproval, SubjectID: subjectID, Identifier: identifier}
	})

	m.logger.Info(ctx, "account created", "subject", subjectID)
	m.notifier.Toast(ctx, notify.Toast{Title: msgRegistered, Description: msgAwaitApproval})
	return nil
}

// Login reports true only when the session ends up Authenticated. A valid
// credential without approval is invalidated before Login returns.
func (m *Manager) Login(ctx context.Context, identifier, secret string) bool {
	if err := workout.ValidateLogin(identifier, secret); err != nil {
		m.notifier.Alert(ctx, err.Error())
		return false
	}

	done := m.begin()
	defer done()

	// A credential being replaced must not outlive this sign-in.
	if prev := m.Current().SubjectID; prev != "" {
		if err := m.auth.Invalidate(ctx, prev); err != nil {
			m.logger.Warn(ctx, "previous session not invalidated", "subject", prev, "error", err)
		}
	}

	subjectID, err := m.auth.ValidateCredential(ctx, strings.TrimSpace(identifier), secret)
	if err != nil {
		m.logger.Warn(ctx, "sign-in failed", "error", err)
		m.notifier.Toast(ctx, loginFailure(err))
		return false
	}
	epoch := m.currentEpoch()

	rec, found, err := m.readApproval(ctx, subjectID)
	switch {
	case err != nil:
		m.logger.Error(ctx, "approval read failed", "subject", subjectID, "error", err)
		m.notifier.Toast(ctx, loginFailure(err))
		m.signOut(ctx, subjectID)
		return false
	case !found:
		m.logger.Warn(ctx, "approval record missing", "subject", subjectID, "error", common.ErrNotApproved)
		m.notifier.Alert(ctx, msgRecordNotFound)
		m.signOut(ctx, subjectID)
		return false
	case !rec.Approved:
		m.logger.Info(ctx, "sign-in rejected", "subject", subjectID, "error", common.ErrNotApproved)
		m.apply(epoch, func(s *Session) {
			*s = Session{State: StatePendingApproval, SubjectID: subjectID, Identifier: rec.Email}
		})
		m.notifier.Alert(ctx, msgNotApproved)
		m.signOut(ctx, subjectID)
		return false
	}

	ok := m.apply(epoch, func(s *Session) {
		*s = Session{State: StateAuthenticated, SubjectID: subjectID, Identifier: rec.Email, Approved: true}
	})
	if !ok {
		m.logger.Warn(ctx, "session changed during sign-in", "subject", subjectID)
		return false
	}

	m.notifier.Toast(ctx, notify.Toast{Title: msgLoginSuccess})
	return true
}

// Logout never fails: errors are logged and reported with a toast.
func (m *Manager) Logout(ctx context.Context) {
	done := m.begin()
	defer done()

	subjectID := m.Current().SubjectID
	if err := m.auth.Invalidate(ctx, subjectID); err != nil {
		m.logger.Error(ctx, "sign-out failed", "subject", subjectID, "error", err)
		m.notifier.Toast(ctx, notify.Toast{Title: msgLogoutFailed, Variant: notify.Destructive})
		return
	}

	m.apply(m.currentEpoch(), func(s *Session) {
		*s = Session{State: StateUnauthenticated}
	})
	m.notifier.Toast(ctx, notify.Toast{Title: msgLogoutSuccess})
}

// signOut invalidates a credential that must not stay active and drops the
// session locally whatever the auth service answers.
func (m *Manager) signOut(ctx context.Context, subjectID string) {
	if err := m.auth.Invalidate(ctx, subjectID); err != nil {
		m.logger.Error(ctx, "forced sign-out failed", "subject", subjectID, "error", err)
	}
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	m.apply(epoch, func(s *Session) {
		*s = Session{State: StateUnauthenticated}
	})
}

func (m *Manager) sessionChanged(ctx context.Context, subjectID string) {
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	if subjectID == "" {
		m.apply(epoch, func(s *Session) {
			*s = Session{State: StateUnauthenticated}
		})
		return
	}

	rec, found, err := m.readApproval(ctx, subjectID)
	if err != nil {
		m.logger.Error(ctx, "approval check failed", "subject", subjectID, "error", err)
	}
	approved := found && rec.Approved

	m.apply(epoch, func(s *Session) {
		state := StatePendingApproval
		if approved {
			state = StateAuthenticated
		}
		*s = Session{State: state, SubjectID: subjectID, Identifier: rec.Email, Approved: approved}
	})
}

func (m *Manager) readApproval(ctx context.Context, subjectID string) (approvalRecord, bool, error) {
	snap, err := m.store.Read(ctx, common.UserPath(subjectID))
	if err != nil {
		return approvalRecord{}, false, err
	}
	if !snap.Exists() {
		return approvalRecord{}, false, nil
	}

	var rec approvalRecord
	if err := snap.Decode(&rec); err != nil {
		return approvalRecord{}, false, fmt.Errorf("approval record of %s: %w", subjectID, err)
	}
	return rec, true, nil
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// view must be called with mu held.
func (m *Manager) view() Session {
	s := m.current
	s.Loading = s.State == StateUnknown || m.busy > 0
	return s
}

// apply mutates the state unless a newer session event arrived since epoch,
// then notifies listeners outside the lock. It reports whether fn ran.
func (m *Manager) apply(epoch uint64, fn func(*Session)) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	before := m.view()
	fn(&m.current)
	m.current.Loading = false
	after := m.view()
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if before != after {
		m.logger.Debug(context.Background(), "session state", "state", after.State.String(), "subject", after.SubjectID)
		notifyAll(listeners, after)
	}
	return true
}

// begin marks an operation in flight; the returned func clears it.
func (m *Manager) begin() (done func()) {
	m.setBusy(1)
	return func() { m.setBusy(-1) }
}

func (m *Manager) setBusy(delta int) {
	m.mu.Lock()
	before := m.view()
	m.busy += delta
	after := m.view()
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if before != after {
		notifyAll(listeners, after)
	}
}

func (m *Manager) snapshotListeners() []func(Session) {
	out := make([]func(Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		out = append(out, fn)
	}
	return out
}

func notifyAll(listeners []func(Session), s Session) {
	for _, fn := range listeners {
		fn(s)
	}
}
