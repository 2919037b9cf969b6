package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/database"
	"github.com/nimeshabuddhika/checkout-service/pkg/models"
	eventviews "github.com/nimeshabuddhika/checkout-service/pkg/views"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/provider"
)

// fakeQuerier stands in for the pool; the fake repository never touches it.
type fakeQuerier struct{}

func (fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

var _ database.Querier = fakeQuerier{}

type fakeOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]models.Order
	createFn func(models.Order) error
	markErr  error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]models.Order{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, _ database.Querier, order models.Order) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createFn != nil {
		if err := r.createFn(order); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	if _, ok := r.orders[order.SessionID]; ok {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
	}
	order.ID = int64(len(r.orders) + 1)
	order.UpdatedAt = time.Now()
	r.orders[order.SessionID] = order
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, _ database.Querier, sessionID string, paymentStatus string) (models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return models.Order{}, false, r.markErr
	}
	order, ok := r.orders[sessionID]
	if !ok {
		return models.Order{}, false, nil
	}
	order.Status = pkg.OrderStatusPaid
	order.PaymentStatus = &paymentStatus
	order.UpdatedAt = time.Now()
	r.orders[sessionID] = order
	return order, true, nil
}

func (r *fakeOrderRepo) FindBySessionID(_ context.Context, _ database.Querier, sessionID string) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[sessionID]
	if !ok {
		return models.Order{}, pgx.ErrNoRows
	}
	return order, nil
}

func (r *fakeOrderRepo) get(sessionID string) (models.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[sessionID]
	return o, ok
}

type fakeProvider struct {
	calls   []provider.SessionRequest
	ref     provider.SessionRef
	err     error
	event   provider.Event
	verify  error
	secrets []string
}

func (p *fakeProvider) CreateSession(_ context.Context, req provider.SessionRequest) (provider.SessionRef, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return provider.SessionRef{}, p.err
	}
	return p.ref, nil
}

func (p *fakeProvider) VerifyEvent(_ []byte, _ string, secret string) (provider.Event, error) {
	p.secrets = append(p.secrets, secret)
	if p.verify != nil {
		return provider.Event{}, p.verify
	}
	return p.event, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	seen    map[string]bool
	seenErr error
}

func newFakeLedger() *fakeLedger { return &fakeLedger{seen: map[string]bool{}} }

func (l *fakeLedger) Seen(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seenErr != nil {
		return false, l.seenErr
	}
	return l.seen[id], nil
}

func (l *fakeLedger) Record(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[id] = true
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []eventviews.PaymentEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event eventviews.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() {}
