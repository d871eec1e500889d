// Package memory — хранилище в памяти процесса для разработки и тестов.
// Транзакции сериализуются одним мьютексом, откат выполняется журналом отмены.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type Store struct {
	mu sync.Mutex

	reports   map[uuid.UUID]*entity.Report
	votes     map[uuid.UUID][]*entity.VerificationVote
	scores    map[uuid.UUID]*entity.UserScoreAggregate
	events    []*entity.ScoreEvent
	eventKeys map[string]struct{}
	users     map[uuid.UUID]*entity.UserProfile
	cleared   *clearedIndex
}

func NewStore() *Store {
	return &Store{
		reports:   make(map[uuid.UUID]*entity.Report),
		votes:     make(map[uuid.UUID][]*entity.VerificationVote),
		scores:    make(map[uuid.UUID]*entity.UserScoreAggregate),
		eventKeys: make(map[string]struct{}),
		users:     make(map[uuid.UUID]*entity.UserProfile),
		cleared:   newClearedIndex(),
	}
}

type txKey struct{}

type txState struct {
	store *Store
	undo  []func()
	done  bool
}

func (t *txState) onRollback(f func()) {
	t.undo = append(t.undo, f)
}

func (t *txState) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// WithinTransaction реализует repository.Transactor.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.activeTx(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{store: s}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			tx.done = true
			panic(p)
		}
	}()

	err = fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		tx.rollback()
	}
	tx.done = true
	return err
}

func (s *Store) activeTx(ctx context.Context) *txState {
	tx, ok := ctx.Value(txKey{}).(*txState)
	if ok && tx.store == s && !tx.done {
		return tx
	}
	return nil
}

// exec выполняет fn внутри активной транзакции или как отдельную атомарную операцию.
func (s *Store) exec(ctx context.Context, fn func(tx *txState) error) error {
	if err := ctx.Err(); err != nil {
		return apperror.Unavailable(err, "операция отменена")
	}
	if tx := s.activeTx(ctx); tx != nil {
		return fn(tx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}
