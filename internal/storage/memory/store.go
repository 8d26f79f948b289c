package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
)

// state — снимок всех таблиц in-memory хранилища.
type state struct {
	orders map[string]domain.Order
	items  map[string]map[int64]itemRecord
	outbox map[string]outboxRecord
	seq    int64
}

type itemRecord struct {
	item domain.Item
	seq  int64
}

func newState() *state {
	return &state{
		orders: make(map[string]domain.Order),
		items:  make(map[string]map[int64]itemRecord),
		outbox: make(map[string]outboxRecord),
	}
}

func (s *state) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	cp := &state{
		orders: make(map[string]domain.Order, len(s.orders)),
		items:  make(map[string]map[int64]itemRecord, len(s.items)),
		outbox: make(map[string]outboxRecord, len(s.outbox)),
		seq:    s.seq,
	}
	for id, order := range s.orders {
		cp.orders[id] = order
	}
	for orderID, byProduct := range s.items {
		inner := make(map[int64]itemRecord, len(byProduct))
		for productID, rec := range byProduct {
			inner[productID] = rec
		}
		cp.items[orderID] = inner
	}
	for id, rec := range s.outbox {
		cp.outbox[id] = rec
	}
	return cp
}

// Store — потокобезопасное in-memory хранилище заказов и outbox для тестов и локального запуска.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Orders возвращает репозиторий заказов вне транзакции.
func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{access: s}
}

// Outbox возвращает outbox-репозиторий вне транзакции.
func (s *Store) Outbox() domain.OutboxRepository {
	return &outboxRepository{access: s}
}

// WithinTx работает с копией состояния и публикует её только при успешном fn.
// Транзакции сериализуются; вызывать Orders()/Outbox() самого Store внутри fn нельзя.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txAccess{st: s.st.clone()}
	if err := fn(ctx, txUnit{access: tx}); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

// Ping всегда успешен, пока контекст жив.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает.
func (s *Store) Close() error {
	return nil
}

// access прячет разницу между прямым доступом к Store и доступом внутри транзакции.
type access interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// txAccess работает без блокировок: WithinTx уже держит мьютекс Store.
type txAccess struct {
	st *state
}

func (t *txAccess) read(fn func(st *state) error) error  { return fn(t.st) }
func (t *txAccess) write(fn func(st *state) error) error { return fn(t.st) }

type txUnit struct {
	access access
}

func (u txUnit) Orders() domain.OrderRepository  { return &orderRepository{access: u.access} }
func (u txUnit) Outbox() domain.OutboxRepository { return &outboxRepository{access: u.access} }

var _ domain.Store = (*Store)(nil)
