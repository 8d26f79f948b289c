package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/order-api/internal/auth"
	"github.com/vladislavdragonenkov/order-api/internal/domain"
	"github.com/vladislavdragonenkov/order-api/internal/metrics"
	"github.com/vladislavdragonenkov/order-api/internal/service/order"
	"github.com/vladislavdragonenkov/order-api/internal/service/outbox"
	"github.com/vladislavdragonenkov/order-api/internal/storage/memory"
	"github.com/vladislavdragonenkov/order-api/internal/transport/httpapi"
)

// OrderLifecycleTestSuite прогоняет заказ через HTTP API, outbox и публикацию событий.
type OrderLifecycleTestSuite struct {
	suite.Suite
	store     *memory.Store
	server    *httptest.Server
	worker    *outbox.Worker
	published *capturePublisher
	token     string
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetOutput(io.Discard)
	logger := baseLogger.WithField("component", "integration-test")

	hash, err := bcrypt.GenerateFromPassword([]byte("user"), bcrypt.MinCost)
	s.Require().NoError(err)
	authSvc, err := auth.NewService(auth.Config{Secret: []byte("integration"), Username: "user", PasswordHash: hash})
	s.Require().NoError(err)

	registry := prometheus.NewRegistry()
	s.store = memory.NewStore()
	orders := order.NewService(s.store,
		order.WithLogger(logger),
		order.WithMetrics(metrics.NewOrderMetricsWithRegisterer(registry)),
		order.WithEvents(true),
	)

	s.published = &capturePublisher{}
	s.worker = outbox.NewWorker(s.store.Outbox(), s.published,
		outbox.WithLogger(logger),
		outbox.WithRetryBaseDelay(0),
		outbox.WithMetrics(metrics.NewOutboxMetricsWithRegisterer(registry)),
	)

	s.server = httptest.NewServer(httpapi.NewRouter(httpapi.Config{
		Orders:        orders,
		Authenticator: authSvc,
		Validator:     authSvc,
		Logger:        logger,
		Metrics:       metrics.NewHTTPMetricsWithRegisterer(registry),
	}))

	code, body := s.call(http.MethodPost, "/auth/login", `{"username":"user","password":"user"}`)
	s.Require().Equal(http.StatusOK, code, body)

	var token auth.Token
	s.Require().NoError(json.Unmarshal([]byte(body), &token))
	s.token = token.Token
}

func (s *OrderLifecycleTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *OrderLifecycleTestSuite) call(method, path, body string) (int, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, string(raw)
}

func (s *OrderLifecycleTestSuite) TestFullLifecyclePublishesEvents() {
	code, body := s.call(http.MethodPost, "/order", `{
		"numeroPedido": "v10089015vdb-01",
		"valorTotal": 10000,
		"dataCriacao": "2023-07-19T12:24:11.5299601+00:00",
		"items": [{"idItem": "2434", "quantidadeItem": 1, "valorItem": 1000}]
	}`)
	s.Require().Equal(http.StatusCreated, code, body)

	code, body = s.call(http.MethodPut, "/order", `{
		"orderId": "v10089015vdb-01",
		"value": 12000,
		"creationDate": "2023-07-19T12:24:11Z",
		"items": [{"productId": 2435, "quantity": 2, "price": 1000}]
	}`)
	s.Require().Equal(http.StatusOK, code, body)

	code, body = s.call(http.MethodGet, "/order/v10089015vdb-01", "")
	s.Require().Equal(http.StatusOK, code)

	var fetched struct {
		Items []struct {
			ProductID int64 `json:"productId"`
		} `json:"items"`
	}
	s.Require().NoError(json.Unmarshal([]byte(body), &fetched))
	s.Len(fetched.Items, 2, "update keeps items omitted from the request")

	code, _ = s.call(http.MethodDelete, "/order/v10089015vdb-01", "")
	s.Require().Equal(http.StatusOK, code)

	items, err := s.store.Orders().ListItems(context.Background(), "v10089015vdb-01")
	s.Require().NoError(err)
	s.Empty(items)

	s.worker.ProcessOnce(context.Background())

	s.Equal([]string{domain.EventOrderCreated, domain.EventOrderUpdated, domain.EventOrderDeleted}, s.published.eventTypes())
	for _, msg := range s.published.all() {
		s.Equal("v10089015vdb-01", msg.AggregateID)
		s.True(json.Valid(msg.Payload))
	}

	stats, err := s.store.Outbox().Stats(context.Background())
	s.Require().NoError(err)
	s.Zero(stats.PendingCount)
}

func (s *OrderLifecycleTestSuite) TestRejectedWritesLeaveNoEvents() {
	code, _ := s.call(http.MethodPut, "/order", `{"orderId":"ghost","value":1,"creationDate":"2023-07-19T12:24:11Z"}`)
	s.Equal(http.StatusNotFound, code)

	code, _ = s.call(http.MethodPost, "/order", `{"orderId":"bad","value":1,"creationDate":"2023-07-19T12:24:11Z","items":[{"productId":1,"quantity":0,"price":1}]}`)
	s.Equal(http.StatusBadRequest, code)

	code, _ = s.call(http.MethodDelete, "/order/ghost", "")
	s.Equal(http.StatusNotFound, code)

	stats, err := s.store.Outbox().Stats(context.Background())
	s.Require().NoError(err)
	s.Zero(stats.PendingCount)
}

func (s *OrderLifecycleTestSuite) TestListReturnsEveryOrderWithItems() {
	for _, id := range []string{"L1", "L2", "L3"} {
		code, body := s.call(http.MethodPost, "/order", `{"orderId":"`+id+`","value":5,"creationDate":"2023-07-19T12:24:11Z","items":[{"productId":1,"quantity":1,"price":5}]}`)
		s.Require().Equal(http.StatusCreated, code, body)
	}

	code, body := s.call(http.MethodGet, "/order/list", "")
	s.Require().Equal(http.StatusOK, code)

	var listed []struct {
		OrderID string            `json:"orderId"`
		Items   []json.RawMessage `json:"items"`
	}
	s.Require().NoError(json.Unmarshal([]byte(body), &listed))
	s.Require().Len(listed, 3)
	for _, o := range listed {
		s.Len(o.Items, 1, o.OrderID)
	}
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []domain.OutboxMessage
}

func (p *capturePublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturePublisher) all() []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OutboxMessage(nil), p.msgs...)
}

func (p *capturePublisher) eventTypes() []string {
	var types []string
	for _, msg := range p.all() {
		types = append(types, msg.EventType)
	}
	return types
}
