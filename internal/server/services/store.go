package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/dbx"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/server/metrics"
	"github.com/dmitrijs2005/workoutlog/internal/server/models"
	"github.com/dmitrijs2005/workoutlog/internal/server/realtime"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/workoutlog/internal/server/rules"
	"github.com/dmitrijs2005/workoutlog/internal/server/tree"
	"github.com/google/uuid"
)

// StoreService is the hierarchical data store. Values are JSON-like trees
// (as produced by structpb.Value.AsInterface); nil means absent.
type StoreService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hub         *realtime.Hub
	feed        realtime.Feed
	metrics     *metrics.Metrics
	logger      logging.Logger
	newKey      func() (string, error)
}

func NewStoreService(db *sql.DB, m repomanager.RepositoryManager, hub *realtime.Hub, feed realtime.Feed, mt *metrics.Metrics, logger logging.Logger) *StoreService {
	return &StoreService{
		db:          db,
		repomanager: m,
		hub:         hub,
		feed:        feed,
		metrics:     mt,
		logger:      logger.With("module", "store_service"),
		newKey:      newPushKey,
	}
}

// newPushKey returns a UUIDv7: keys generated later sort later.
func newPushKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *StoreService) Read(ctx context.Context, subjectID, path string) (any, error) {
	p, err := tree.ParsePath(path)
	if err != nil {
		return nil, err
	}
	if err := rules.CanRead(subjectID, p); err != nil {
		return nil, err
	}
	return s.read(ctx, p)
}

// Write replaces the subtree at path with value; nil deletes it.
func (s *StoreService) Write(ctx context.Context, subjectID, path string, value any) error {
	p, err := tree.ParsePath(path)
	if err != nil {
		return err
	}
	if err := rules.CanWrite(subjectID, p, value); err != nil {
		return err
	}
	return s.write(ctx, "write", p, value)
}

// Append writes value under a new time-ordered key below path and returns
// the key.
func (s *StoreService) Append(ctx context.Context, subjectID, path string, value any) (string, error) {
	p, err := tree.ParsePath(path)
	if err != nil {
		return "", err
	}
	if err := rules.CanAppend(subjectID, p); err != nil {
		return "", err
	}

	key, err := s.newKey()
	if err != nil {
		return "", fmt.Errorf("%w: push key: %v", common.ErrorInternal, err)
	}
	if err := s.write(ctx, "append", tree.Join(p, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// Subscribe calls send with the value at path now and again after every
// committed write related to path, until ctx ends or send fails.
func (s *StoreService) Subscribe(ctx context.Context, subjectID, path string, send func(any) error) error {
	p, err := tree.ParsePath(path)
	if err != nil {
		return err
	}
	if err := rules.CanRead(subjectID, p); err != nil {
		return err
	}

	// Register before the first read so no write between the two is lost.
	sub := s.hub.Subscribe(p)
	defer sub.Close()
	if s.metrics != nil {
		s.metrics.SubscriptionOpened()
		defer s.metrics.SubscriptionClosed()
	}

	for {
		v, err := s.read(ctx, p)
		if err != nil {
			return err
		}
		if err := send(v); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-sub.C:
		}
	}
}

// SetApproval sets the aprovado flag of subjectID. It is an administrative
// operation and bypasses the access rules.
func (s *StoreService) SetApproval(ctx context.Context, subjectID string, approved bool) error {
	return s.write(ctx, "approve", tree.Join(common.UserPath(subjectID), common.ApprovalField), approved)
}

// Dump returns every stored leaf.
func (s *StoreService) Dump(ctx context.Context) ([]models.Node, error) {
	return s.repomanager.Nodes(s.db).All(ctx)
}

func (s *StoreService) read(ctx context.Context, p string) (any, error) {
	nodes, err := s.repomanager.Nodes(s.db).Subtree(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	v, err := tree.Build(p, nodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return v, nil
}

func (s *StoreService) write(ctx context.Context, op, p string, value any) error {
	leaves, err := tree.Flatten(p, value)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Nodes(tx)
		// A scalar stored at an ancestor would shadow the new subtree.
		if err := repo.DeletePaths(ctx, tree.Ancestors(p)...); err != nil {
			return err
		}
		if _, err := repo.DeleteSubtree(ctx, p); err != nil {
			return err
		}
		return repo.Insert(ctx, leaves)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if s.metrics != nil {
		s.metrics.Write(op)
	}
	if err := s.feed.Publish(ctx, p); err != nil {
		s.logger.Warn(ctx, "change not announced", "path", p, "error", err)
	}
	s.logger.Debug(ctx, "stored", "op", op, "path", p, "leaves", len(leaves))
	return nil
}
