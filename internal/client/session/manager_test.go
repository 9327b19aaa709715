package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrijs2005/workoutlog/internal/api"
	"github.com/dmitrijs2005/workoutlog/internal/client/client"
	"github.com/dmitrijs2005/workoutlog/internal/client/notify"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/workout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---- fakes ----

type fakeUser struct {
	subject string
	secret  string
}

// fakeAuth behaves like the remote auth service: it keeps one active
// session and fires session-changed callbacks synchronously.
type fakeAuth struct {
	mu        sync.Mutex
	users     map[string]fakeUser
	current   string
	listeners []func(string)

	createErr     error
	invalidateErr error

	creates       int
	validations   int
	invalidations int
	invalidated   []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: map[string]fakeUser{}}
}

func (f *fakeAuth) CreateCredential(ctx context.Context, identifier, secret string) (string, error) {
	f.mu.Lock()
	f.creates++
	if f.createErr != nil {
		f.mu.Unlock()
		return "", f.createErr
	}
	if _, ok := f.users[identifier]; ok {
		f.mu.Unlock()
		return "", common.ErrDuplicateIdentifier
	}
	if len(secret) < 6 {
		f.mu.Unlock()
		return "", common.ErrWeakSecret
	}
	subject := fmt.Sprintf("u%d", len(f.users)+1)
	f.users[identifier] = fakeUser{subject: subject, secret: secret}
	f.mu.Unlock()

	f.setCurrent(subject)
	return subject, nil
}

func (f *fakeAuth) ValidateCredential(ctx context.Context, identifier, secret string) (string, error) {
	f.mu.Lock()
	f.validations++
	u, ok := f.users[identifier]
	f.mu.Unlock()

	if !ok {
		return "", common.ErrCredentialNotFound
	}
	if u.secret != secret {
		return "", common.ErrWrongSecret
	}
	f.setCurrent(u.subject)
	return u.subject, nil
}

func (f *fakeAuth) Invalidate(ctx context.Context, subjectID string) error {
	f.mu.Lock()
	f.invalidations++
	f.invalidated = append(f.invalidated, subjectID)
	err := f.invalidateErr
	f.mu.Unlock()

	if err != nil {
		return err
	}
	f.setCurrent("")
	return nil
}

func (f *fakeAuth) OnSessionChanged(fn func(string)) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	current := f.current
	f.mu.Unlock()

	fn(current)
	return func() {}
}

func (f *fakeAuth) setCurrent(subject string) {
	f.mu.Lock()
	changed := f.current != subject
	f.current = subject
	listeners := append([]func(string){}, f.listeners...)
	f.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(subject)
		}
	}
}

func (f *fakeAuth) active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

type fakeStore struct {
	mu      sync.Mutex
	data    map[string]*structpb.Value
	writes  int
	readErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]*structpb.Value{}}
}

func (s *fakeStore) Read(ctx context.Context, path string) (client.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return client.Snapshot{}, &common.SyncError{Op: "read", Path: path, Err: s.readErr}
	}
	return client.Snapshot{Path: path, Value: s.data[path]}, nil
}

func (s *fakeStore) Write(ctx context.Context, path string, value any) error {
	v, err := api.ValueOf(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.data[path] = v
	return nil
}

func (s *fakeStore) Append(ctx context.Context, path string, value any) (string, error) {
	return "", errors.New("not used")
}

func (s *fakeStore) Subscribe(path string, fn func(client.Snapshot, error)) (client.Subscription, error) {
	return nil, errors.New("not used")
}

func (s *fakeStore) Unsubscribe(client.Subscription) {}

func (s *fakeStore) approve(subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[common.UserPath(subject)].GetStructValue().GetFields()[common.ApprovalField] = structpb.NewBoolValue(true)
}

func (s *fakeStore) record(t *testing.T, subject string) approvalRecord {
	t.Helper()
	snap, err := s.Read(context.Background(), common.UserPath(subject))
	require.NoError(t, err)
	require.True(t, snap.Exists())
	var rec approvalRecord
	require.NoError(t, snap.Decode(&rec))
	return rec
}

type fixture struct {
	auth     *fakeAuth
	store    *fakeStore
	notifier *notify.Recorder
	m        *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{auth: newFakeAuth(), store: newFakeStore(), notifier: &notify.Recorder{}}
	f.m = NewManager(f.auth, f.store, f.notifier, logging.Nop())
	stop := f.m.Start(context.Background())
	t.Cleanup(stop)
	return f
}

// ---- tests ----

func TestManager_InitialState(t *testing.T) {
	m := NewManager(newFakeAuth(), newFakeStore(), &notify.Recorder{}, logging.Nop())

	s := m.Current()
	assert.Equal(t, StateUnknown, s.State)
	assert.True(t, s.Loading)

	m.Start(context.Background())
	s = m.Current()
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.False(t, s.Loading)
}

func TestManager_StartWithApprovedSession(t *testing.T) {
	auth, store := newFakeAuth(), newFakeStore()
	auth.users["a@x.com"] = fakeUser{subject: "u1", secret: "abcdef"}
	auth.current = "u1"
	require.NoError(t, store.Write(context.Background(), "usuarios/u1", approvalRecord{Email: "a@x.com", Approved: true}))

	m := NewManager(auth, store, &notify.Recorder{}, logging.Nop())
	m.Start(context.Background())

	s := m.Current()
	assert.Equal(t, StateAuthenticated, s.State)
	assert.True(t, s.Approved)
	assert.Equal(t, "u1", s.SubjectID)
	assert.Equal(t, "a@x.com", s.Identifier)
}

func TestManager_StartWithApprovalReadError(t *testing.T) {
	auth, store := newFakeAuth(), newFakeStore()
	auth.current = "u1"
	store.readErr = common.ErrUnavailable

	m := NewManager(auth, store, &notify.Recorder{}, logging.Nop())
	m.Start(context.Background())

	s := m.Current()
	assert.Equal(t, StatePendingApproval, s.State)
	assert.False(t, s.Approved)
	assert.False(t, s.Loading)
}

func TestRegister_MismatchedConfirmation(t *testing.T) {
	f := newFixture(t)

	err := f.m.Register(context.Background(), workout.Credentials{Identifier: "a@x.com", Secret: "abcdef", Confirmation: "abcdeg"})
	assert.ErrorIs(t, err, workout.ErrSecretMismatch)

	assert.Zero(t, f.auth.creates, "no credential is created")
	assert.Zero(t, f.store.writes, "no data store write occurs")
	assert.Equal(t, []string{"As senhas não coincidem!"}, f.notifier.Alerts())
}

func TestRegister_EmptyFields(t *testing.T) {
	f := newFixture(t)

	err := f.m.Register(context.Background(), workout.Credentials{Identifier: "", Secret: "abcdef", Confirmation: "abcdef"})
	assert.ErrorIs(t, err, workout.ErrMissingFields)
	assert.Zero(t, f.auth.creates)
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	err := f.m.Register(context.Background(), workout.Credentials{Identifier: " a@x.com ", Secret: "abcdef", Confirmation: "abcdef"})
	require.NoError(t, err)

	rec := f.store.record(t, "u1")
	assert.Equal(t, approvalRecord{Email: "a@x.com", Approved: false}, rec)

	s := f.m.Current()
	assert.Equal(t, StatePendingApproval, s.State)
	assert.False(t, s.Approved)
	assert.False(t, s.Loading)

	toasts := f.notifier.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, notify.Toast{Title: "Conta criada com sucesso!", Description: "Aguarde a aprovação do administrador para acessar o sistema."}, toasts[len(toasts)-1])
}

func TestRegister_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *fixture)
		secret string
		want   error
		desc   string
	}{
		{
			name:   "duplicate",
			setup:  func(f *fixture) { f.auth.users["a@x.com"] = fakeUser{subject: "u9", secret: "zzzzzz"} },
			secret: "abcdef",
			want:   common.ErrDuplicateIdentifier,
			desc:   "Este email já está em uso.",
		},
		{
			name:   "weak secret",
			setup:  func(f *fixture) {},
			secret: "abc",
			want:   common.ErrWeakSecret,
			desc:   "Senha muito fraca. Use pelo menos 6 caracteres.",
		},
		{
			name:   "other",
			setup:  func(f *fixture) { f.auth.createErr = errors.New("boom") },
			secret: "abcdef",
			desc:   "Erro ao criar conta. Tente novamente.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			err := f.m.Register(context.Background(), workout.Credentials{Identifier: "a@x.com", Secret: tt.secret, Confirmation: tt.secret})
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.ErrorIs(t, err, common.ErrAuth)
			}

			assert.Zero(t, f.store.writes)
			assert.Equal(t, []notify.Toast{{Title: "Erro", Description: tt.desc, Variant: notify.Destructive}}, f.notifier.Toasts())
			assert.False(t, f.m.Current().Loading)
		})
	}
}

func TestScenario_RegisterThenLoginBeforeApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.Register(ctx, workout.Credentials{Identifier: "a@x.com", Secret: "abcdef", Confirmation: "abcdef"}))
	require.NoError(t, f.auth.Invalidate(ctx, "u1"))
	invalidationsBefore := f.auth.invalidations

	var states []State
	f.m.OnChange(func(s Session) { states = append(states, s.State) })

	ok := f.m.Login(ctx, "a@x.com", "abcdef")
	assert.False(t, ok)

	s := f.m.Current()
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.False(t, s.Loading)
	assert.Equal(t, "", f.auth.active(), "credential invalidated before login returns")
	assert.Equal(t, invalidationsBefore+1, f.auth.invalidations)
	assert.Contains(t, f.notifier.Alerts(), "Sua conta ainda não foi aprovada.")
	assert.Contains(t, states, StatePendingApproval)
	assert.Equal(t, StateUnauthenticated, states[len(states)-1])
}

func TestScenario_LoginAfterApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.Register(ctx, workout.Credentials{Identifier: "a@x.com", Secret: "abcdef", Confirmation: "abcdef"}))
	f.m.Logout(ctx)
	f.store.approve("u1")

	ok := f.m.Login(ctx, "a@x.com", "abcdef")
	require.True(t, ok)

	s := f.m.Current()
	assert.Equal(t, StateAuthenticated, s.State)
	assert.True(t, s.Approved)
	assert.Equal(t, "u1", s.SubjectID)
	assert.False(t, s.Loading)

	toasts := f.notifier.Toasts()
	assert.Equal(t, notify.Toast{Title: "Login realizado com sucesso!"}, toasts[len(toasts)-1])
}

func TestLogin_Failures(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		f := newFixture(t)
		f.auth.users["a@x.com"] = fakeUser{subject: "u1", secret: "abcdef"}

		assert.False(t, f.m.Login(context.Background(), "a@x.com", "nope!!"))
		assert.Equal(t, []notify.Toast{{Title: "Erro", Description: "Email ou senha incorretos.", Variant: notify.Destructive}}, f.notifier.Toasts())
		assert.Equal(t, StateUnauthenticated, f.m.Current().State)
		assert.False(t, f.m.Current().Loading)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		f := newFixture(t)

		assert.False(t, f.m.Login(context.Background(), "b@x.com", "abcdef"))
		assert.Equal(t, "Email ou senha incorretos.", f.notifier.Toasts()[0].Description)
	})

	t.Run("empty fields", func(t *testing.T) {
		f := newFixture(t)

		assert.False(t, f.m.Login(context.Background(), "a@x.com", ""))
		assert.Equal(t, []string{"Por favor, preencha todos os campos!"}, f.notifier.Alerts())
		assert.Zero(t, f.auth.validations)
	})

	t.Run("missing approval record", func(t *testing.T) {
		f := newFixture(t)
		f.auth.users["a@x.com"] = fakeUser{subject: "u1", secret: "abcdef"}

		assert.False(t, f.m.Login(context.Background(), "a@x.com", "abcdef"))
		assert.Contains(t, f.notifier.Alerts(), "Usuário não encontrado no banco de dados.")
		assert.Equal(t, "", f.auth.active())
		assert.Equal(t, StateUnauthenticated, f.m.Current().State)
	})

	t.Run("approval read error", func(t *testing.T) {
		f := newFixture(t)
		f.auth.users["a@x.com"] = fakeUser{subject: "u1", secret: "abcdef"}
		f.store.readErr = common.ErrUnavailable

		assert.False(t, f.m.Login(context.Background(), "a@x.com", "abcdef"))
		assert.Equal(t, "", f.auth.active())
		assert.Equal(t, StateUnauthenticated, f.m.Current().State)
		assert.False(t, f.m.Current().Loading)
	})
}

func TestLogin_InvalidatesPreviousSubject(t *testing.T) {
	signIn := func(t *testing.T, invalidateErr error) *fixture {
		t.Helper()
		f := newFixture(t)
		ctx := context.Background()
		f.auth.users["a@x.com"] = fakeUser{subject: "u1", secret: "abcdef"}
		f.auth.users["b@x.com"] = fakeUser{subject: "u2", secret: "ghijkl"}
		require.NoError(t, f.store.Write(ctx, "usuarios/u1", approvalRecord{Email: "a@x.com", Approved: true}))
		require.NoError(t, f.store.Write(ctx, "usuarios/u2", approvalRecord{Email: "b@x.com", Approved: true}))
		require.True(t, f.m.Login(ctx, "a@x.com", "abcdef"))
		require.Empty(t, f.auth.invalidated)

		f.auth.invalidateErr = invalidateErr
		require.True(t, f.m.Login(ctx, "b@x.com", "ghijkl"))
		return f
	}

	t.Run("revoked before switching", func(t *testing.T) {
		f := signIn(t, nil)
		assert.Equal(t, []string{"u1"}, f.auth.invalidated)
		assert.Equal(t, "u2", f.auth.active())
		assert.Equal(t, "u2", f.m.Current().SubjectID)
		assert.Equal(t, StateAuthenticated, f.m.Current().State)
	})

	t.Run("revocation failure does not block sign-in", func(t *testing.T) {
		f := signIn(t, common.ErrUnavailable)
		assert.Equal(t, []string{"u1"}, f.auth.invalidated)
		assert.Equal(t, "u2", f.m.Current().SubjectID)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auth.users["a@x.com"] = fakeUser{subject: "u1", secret: "abcdef"}
	require.NoError(t, f.store.Write(ctx, "usuarios/u1", approvalRecord{Email: "a@x.com", Approved: true}))
	require.True(t, f.m.Login(ctx, "a@x.com", "abcdef"))

	f.m.Logout(ctx)

	s := f.m.Current()
	assert.Equal(t, StateUnauthenticated, s.State)
	assert.False(t, s.Approved)
	assert.Empty(t, s.SubjectID)
	toasts := f.notifier.Toasts()
	assert.Equal(t, notify.Toast{Title: "Logout realizado com sucesso!"}, toasts[len(toasts)-1])
}

func TestLogout_ErrorIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.auth.invalidateErr = common.ErrUnavailable

	f.m.Logout(context.Background())

	assert.Equal(t, []notify.Toast{{Title: "Erro ao fazer logout", Variant: notify.Destructive}}, f.notifier.Toasts())
	assert.False(t, f.m.Current().Loading)
}

func TestOnChange_Remove(t *testing.T) {
	f := newFixture(t)
	f.auth.users["a@x.com"] = fakeUser{subject: "u1", secret: "abcdef"}

	calls := 0
	remove := f.m.OnChange(func(Session) { calls++ })
	f.m.Login(context.Background(), "a@x.com", "wrong!")
	assert.Positive(t, calls, "loading toggles are reported")

	remove()
	before := calls
	f.m.Login(context.Background(), "a@x.com", "wrong!")
	assert.Equal(t, before, calls)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "pending_approval", StatePendingApproval.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
}
