package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
	"github.com/vladislavdragonenkov/order-api/internal/storage/memory"
)

func TestStore_WithinTxCommits(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		if _, err := uow.Orders().CreateOrder(ctx, newOrder("A1")); err != nil {
			return err
		}
		_, err := uow.Outbox().Enqueue(ctx, domain.OutboxMessage{AggregateID: "A1"})
		return err
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	if _, err := store.Orders().FindOrder(ctx, "A1"); err != nil {
		t.Fatalf("expected committed order: %v", err)
	}
	stats, err := store.Outbox().Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("expected committed outbox message, got %d", stats.PendingCount)
	}
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	if _, err := store.Orders().CreateOrder(ctx, newOrder("KEEP")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		if _, err := uow.Orders().CreateOrder(ctx, newOrder("A1")); err != nil {
			return err
		}
		if _, err := uow.Orders().UpsertItem(ctx, "A1", domain.Item{ProductID: 1, Quantity: 1}); err != nil {
			return err
		}
		if err := uow.Orders().DeleteOrder(ctx, "KEEP"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.Orders().FindOrder(ctx, "A1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected rolled back order, got %v", err)
	}
	if _, err := store.Orders().FindOrder(ctx, "KEEP"); err != nil {
		t.Fatalf("expected untouched order after rollback: %v", err)
	}
}

func TestStore_PingAndClose(t *testing.T) {
	store := memory.NewStore()
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := store.WithinTx(ctx, func(context.Context, domain.UnitOfWork) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from WithinTx, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}
