// Package workouts keeps a live mirror of the signed-in subject's workout
// records and appends new ones to the data store.
package workouts

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"

	"github.com/dmitrijs2005/workoutlog/internal/client/client"
	"github.com/dmitrijs2005/workoutlog/internal/client/notify"
	"github.com/dmitrijs2005/workoutlog/internal/client/session"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/workout"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	msgSaved       = "Treino salvo com sucesso!"
	msgSaveFailed  = "Erro ao salvar treino"
	msgTryAgain    = "Tente novamente mais tarde."
	opAppendRecord = "append"
)

// SessionSource is what Follow needs from a session manager.
type SessionSource interface {
	Current() session.Session
	OnChange(fn func(session.Session)) (remove func())
}

// Store mirrors treinos/{subject} through one standing subscription. The
// local mapping changes only when a subscription callback arrives and is
// replaced as a whole each time.
type Store struct {
	ds       client.DataStore
	notifier notify.Notifier
	logger   logging.Logger

	mu      sync.Mutex
	subject string
	sub     client.Subscription
	// gen identifies the active subscription; callbacks carrying an older
	// generation come from a torn-down subscription and are dropped.
	gen uint64
	// ended is set when the subscription of the current generation reports
	// an error, possibly before Subscribe has stored its handle.
	ended     bool
	loading   bool
	records   *orderedmap.OrderedMap[string, workout.Record]
	listeners map[int]func([]workout.Record)
	nextID    int
}

func NewStore(ds client.DataStore, notifier notify.Notifier, logger logging.Logger) *Store {
	return &Store{
		ds:        ds,
		notifier:  notifier,
		logger:    logger.With("module", "workouts"),
		records:   orderedmap.New[string, workout.Record](),
		listeners: make(map[int]func([]workout.Record)),
	}
}

// Follow subscribes while sessions reports Authenticated and unsubscribes
// otherwise. The returned func stops following without unsubscribing.
func (s *Store) Follow(sessions SessionSource) (stop func()) {
	react := func(cur session.Session) {
		if cur.State == session.StateAuthenticated && cur.SubjectID != "" {
			if err := s.Subscribe(cur.SubjectID); err != nil {
				s.logger.Error(context.Background(), "subscribe failed", "subject", cur.SubjectID, "error", err)
			}
			return
		}
		s.Unsubscribe()
	}

	remove := sessions.OnChange(react)
	react(sessions.Current())
	return remove
}

// Subscribe starts the standing subscription for subjectID. A subscription
// for another subject is torn down first; subscribing twice to the same
// subject is a no-op.
func (s *Store) Subscribe(subjectID string) error {
	s.mu.Lock()
	if s.sub != nil && s.subject == subjectID {
		s.mu.Unlock()
		return nil
	}
	prev := s.sub
	s.sub = nil
	s.gen++
	gen := s.gen
	s.ended = false
	s.subject = subjectID
	s.loading = true
	cleared := s.records.Len() > 0
	s.records = orderedmap.New[string, workout.Record]()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if prev != nil {
		s.ds.Unsubscribe(prev)
	}
	if cleared {
		notifyAll(listeners, nil)
	}

	path := common.RecordsPath(subjectID)
	sub, err := s.ds.Subscribe(path, func(snap client.Snapshot, err error) {
		s.apply(gen, snap, err)
	})
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.loading = false
		}
		s.mu.Unlock()
		s.logger.Error(context.Background(), "subscription failed", "path", path, "error", err)
		return err
	}

	s.mu.Lock()
	if s.gen != gen || s.ended {
		s.mu.Unlock()
		s.ds.Unsubscribe(sub)
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	s.logger.Debug(context.Background(), "subscribed", "path", path)
	return nil
}

// Unsubscribe ends the standing subscription and drops the local mapping.
func (s *Store) Unsubscribe() {
	s.mu.Lock()
	prev := s.sub
	s.sub = nil
	s.gen++
	s.ended = false
	s.subject = ""
	s.loading = false
	cleared := s.records.Len() > 0
	s.records = orderedmap.New[string, workout.Record]()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if prev != nil {
		s.ds.Unsubscribe(prev)
	}
	if cleared {
		notifyAll(listeners, nil)
	}
}

// Save appends rec under the current subject and returns the generated key.
// The local mapping is not touched: the record shows up with the next
// subscription callback. Failures are reported to the user and returned.
func (s *Store) Save(ctx context.Context, rec workout.Record) (string, error) {
	s.mu.Lock()
	subject := s.subject
	s.mu.Unlock()

	if subject == "" {
		return "", common.ErrNoActiveSession
	}

	rec.ID = ""
	path := common.RecordsPath(subject)
	key, err := s.ds.Append(ctx, path, rec)
	if err != nil {
		s.logger.Error(ctx, "save failed", "path", path, "error", err)
		s.notifier.Toast(ctx, notify.Toast{Title: msgSaveFailed, Description: msgTryAgain, Variant: notify.Destructive})
		var se *common.SyncError
		if !errors.As(err, &se) {
			err = &common.SyncError{Op: opAppendRecord, Path: path, Err: err}
		}
		return "", err
	}

	s.logger.Info(ctx, "workout saved", "path", path, "key", key)
	s.notifier.Toast(ctx, notify.Toast{Title: msgSaved})
	return key, nil
}

// Records returns the mirrored records in key order (insertion order for
// store-generated keys).
func (s *Store) Records() []workout.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

// Loading is true between Subscribe and the first callback.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) OnChange(fn func([]workout.Record)) (remove func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) apply(gen uint64, snap client.Snapshot, err error) {
	ctx := context.Background()

	if err != nil {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.sub = nil
		s.ended = true
		s.loading = false
		s.mu.Unlock()
		s.logger.Error(ctx, "subscription dropped", "path", snap.Path, "error", err)
		return
	}

	next, decodeErr := decodeRecords(snap)
	if decodeErr != nil {
		s.logger.Error(ctx, "bad snapshot", "path", snap.Path, "error", decodeErr)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	wasLoading := s.loading
	s.loading = false
	if decodeErr != nil {
		s.mu.Unlock()
		return
	}
	prev := s.list()
	s.records = next
	cur := s.list()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if !wasLoading && reflect.DeepEqual(prev, cur) {
		return
	}
	notifyAll(listeners, cur)
}

func decodeRecords(snap client.Snapshot) (*orderedmap.OrderedMap[string, workout.Record], error) {
	out := orderedmap.New[string, workout.Record]()
	if !snap.Exists() {
		return out, nil
	}

	var raw map[string]workout.Record
	if err := snap.Decode(&raw); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		rec := raw[k]
		rec.ID = k
		out.Set(k, rec)
	}
	return out, nil
}

// list must be called with mu held.
func (s *Store) list() []workout.Record {
	out := make([]workout.Record, 0, s.records.Len())
	for pair := s.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (s *Store) snapshotListeners() []func([]workout.Record) {
	out := make([]func([]workout.Record), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notifyAll(listeners []func([]workout.Record), recs []workout.Record) {
	for _, fn := range listeners {
		fn(recs)
	}
}
