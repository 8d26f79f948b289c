package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
	"github.com/vladislavdragonenkov/order-api/internal/metrics"
)

// Названия операций для логов и метрик.
const (
	opCreate = "create"
	opUpdate = "update"
	opGet    = "get"
	opList   = "list"
	opDelete = "delete"
)

// Store — то, что сервису нужно от хранилища.
type Store interface {
	domain.Transactor
}

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Logger        *log.Entry
	Metrics       *metrics.OrderMetrics
	PublishEvents bool
	Now           func() time.Time
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithEvents включает запись событий заказа в outbox.
func WithEvents(enabled bool) Option {
	return func(opts *Options) {
		opts.PublishEvents = enabled
	}
}

// WithClock подменяет источник времени для событий.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Service поддерживает согласованность заказа и его позиций.
// Каждая операция выполняется в одной транзакции хранилища:
// сбой на любой позиции откатывает весь вызов.
type Service struct {
	store   Store
	logger  *log.Entry
	metrics *metrics.OrderMetrics
	events  bool
	now     func() time.Time
}

// NewService создаёт сервис агрегата заказа.
func NewService(store Store, options ...Option) *Service {
	opts := Options{Now: time.Now}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:   store,
		logger:  logger,
		metrics: opts.Metrics,
		events:  opts.PublishEvents,
		now:     opts.Now,
	}
}

// Create создаёт заказ и записывает его позиции в порядке входного списка.
func (s *Service) Create(ctx context.Context, order domain.Order) (result domain.Order, err error) {
	defer s.observe(opCreate, order.ID, time.Now(), &err)

	if err = order.Validate(); err != nil {
		return domain.Order{}, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		created, err := uow.Orders().CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		if created.IsZero() {
			return domain.ErrOrderNotCreated
		}

		if created.Items, err = upsertItems(ctx, uow.Orders(), created.ID, order.Items); err != nil {
			return err
		}

		result = created
		return s.enqueue(ctx, uow, domain.EventOrderCreated, created)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// Update перезаписывает value/creationDate и делает upsert переданных позиций.
// Позиции, отсутствующие во входных данных, не удаляются.
func (s *Service) Update(ctx context.Context, order domain.Order) (result domain.Order, err error) {
	defer s.observe(opUpdate, order.ID, time.Now(), &err)

	if err = order.Validate(); err != nil {
		return domain.Order{}, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		updated, err := uow.Orders().UpdateOrder(ctx, order)
		if err != nil {
			return err
		}
		if updated.IsZero() {
			return domain.ErrOrderNotCreated
		}

		if updated.Items, err = upsertItems(ctx, uow.Orders(), updated.ID, order.Items); err != nil {
			return err
		}

		result = updated
		return s.enqueue(ctx, uow, domain.EventOrderUpdated, updated)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// Get возвращает заказ с позициями.
func (s *Service) Get(ctx context.Context, orderID string) (result domain.Order, err error) {
	defer s.observe(opGet, orderID, time.Now(), &err)

	err = s.store.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		order, err := uow.Orders().FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Items, err = uow.Orders().ListItems(ctx, orderID); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// List возвращает все заказы, к каждому подгружая позиции отдельным запросом.
func (s *Service) List(ctx context.Context) (result []domain.Order, err error) {
	defer s.observe(opList, "", time.Now(), &err)

	err = s.store.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		orders, err := uow.Orders().ListOrders(ctx)
		if err != nil {
			return err
		}
		for i := range orders {
			if orders[i].Items, err = uow.Orders().ListItems(ctx, orders[i].ID); err != nil {
				return fmt.Errorf("load items of order %s: %w", orders[i].ID, err)
			}
		}
		result = orders
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete удаляет позиции заказа по одной, затем сам заказ.
func (s *Service) Delete(ctx context.Context, orderID string) (err error) {
	defer s.observe(opDelete, orderID, time.Now(), &err)

	return s.store.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		repo := uow.Orders()

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Items, err = repo.ListItems(ctx, orderID); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := repo.DeleteItem(ctx, orderID, item.ProductID); err != nil {
				return fmt.Errorf("delete item %d: %w", item.ProductID, err)
			}
		}
		if err := repo.DeleteOrder(ctx, orderID); err != nil {
			return err
		}

		return s.enqueue(ctx, uow, domain.EventOrderDeleted, order)
	})
}

// upsertItems записывает позиции последовательно и возвращает сохранённые строки в порядке входа.
func upsertItems(ctx context.Context, repo domain.OrderRepository, orderID string, items []domain.Item) ([]domain.Item, error) {
	stored := make([]domain.Item, 0, len(items))
	for _, item := range items {
		saved, err := repo.UpsertItem(ctx, orderID, item)
		if err != nil {
			return nil, fmt.Errorf("upsert item %d: %w", item.ProductID, err)
		}
		stored = append(stored, saved)
	}
	return stored, nil
}

func (s *Service) enqueue(ctx context.Context, uow domain.UnitOfWork, eventType string, order domain.Order) error {
	if !s.events {
		return nil
	}

	payload, err := json.Marshal(newEventPayload(eventType, order, s.now()))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	if _, err := uow.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}

	s.metrics.RecordOutboxEvent(eventType)
	return nil
}

func (s *Service) observe(operation, orderID string, startedAt time.Time, errp *error) {
	err := *errp
	s.metrics.RecordOperation(operation, err, time.Since(startedAt))

	entry := s.logger.WithField("operation", operation)
	if orderID != "" {
		entry = entry.WithField("order_id", orderID)
	}
	if err == nil {
		entry.Debug("order operation completed")
		return
	}

	entry = entry.WithError(err).WithField("kind", domain.KindOf(err).String())
	if domain.KindOf(err) == domain.KindInternal {
		entry.Error("order operation failed")
		return
	}
	entry.Info("order operation rejected")
}
