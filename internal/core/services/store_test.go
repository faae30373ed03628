package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

// memStore is a transactional in-memory store. WithinTx holds the store lock
// for the whole transaction, which gives the same serialization per event that
// the conditional UPDATE gives in Postgres, and discards the working copy when
// fn fails.
type memStore struct {
	mu    sync.Mutex
	state *memState

	grantCalls  int
	failGrantAt int
}

type memState struct {
	events      map[uuid.UUID]domain.Event
	bookings    map[uuid.UUID]domain.Booking
	orders      map[uuid.UUID]domain.Order
	orderEvents []domain.OrderEvent
	grants      []domain.AccessGrant
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		events:   map[uuid.UUID]domain.Event{},
		bookings: map[uuid.UUID]domain.Booking{},
		orders:   map[uuid.UUID]domain.Order{},
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		events:      make(map[uuid.UUID]domain.Event, len(st.events)),
		bookings:    make(map[uuid.UUID]domain.Booking, len(st.bookings)),
		orders:      make(map[uuid.UUID]domain.Order, len(st.orders)),
		orderEvents: append([]domain.OrderEvent(nil), st.orderEvents...),
		grants:      append([]domain.AccessGrant(nil), st.grants...),
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	for k, v := range st.bookings {
		c.bookings[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	return c
}

// failGrantOn makes the n-th AccessGrant insert (1-based) fail.
func (s *memStore) failGrantOn(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grantCalls = 0
	s.failGrantAt = n
}

func (s *memStore) addEvent(capacity int, price int64) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := domain.Event{
		ID:                uuid.New(),
		Title:             "Go Meetup",
		UnitPrice:         price,
		TotalCapacity:     capacity,
		RemainingCapacity: capacity,
		StartTime:         time.Now().Add(72 * time.Hour),
		Published:         true,
	}
	s.state.events[e.ID] = e
	return e
}

func (s *memStore) putEvent(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.events[e.ID] = e
}

func (s *memStore) event(id uuid.UUID) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.events[id]
}

func (s *memStore) booking(id uuid.UUID) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.bookings[id]
}

func (s *memStore) order(id uuid.UUID) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.orders[id]
}

func (s *memStore) grantsFor(orderID uuid.UUID) []domain.AccessGrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AccessGrant
	for _, g := range s.state.grants {
		if g.OrderID == orderID {
			out = append(out, g)
		}
	}
	return out
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repos ports.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memRepos{s: s, tx: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) Events() ports.EventRepository       { return (&memRepos{s: s}).Events() }
func (s *memStore) Bookings() ports.BookingRepository   { return (&memRepos{s: s}).Bookings() }
func (s *memStore) Orders() ports.OrderRepository       { return (&memRepos{s: s}).Orders() }
func (s *memStore) Grants() ports.AccessGrantRepository { return (&memRepos{s: s}).Grants() }
func (r *memRepos) Events() ports.EventRepository       { return memEvents{r} }
func (r *memRepos) Bookings() ports.BookingRepository   { return memBookings{r} }
func (r *memRepos) Orders() ports.OrderRepository       { return memOrders{r} }
func (r *memRepos) Grants() ports.AccessGrantRepository { return memGrants{r} }

type memRepos struct {
	s  *memStore
	tx *memState
}

func (r *memRepos) with(fn func(st *memState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(r.s.state)
}

type memEvents struct{ r *memRepos }

func (m memEvents) GetByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	var out *domain.Event
	err := m.r.with(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrEventNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (m memEvents) DecrementCapacity(_ context.Context, id uuid.UUID, seats int) (int, error) {
	var remaining int
	err := m.r.with(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrEventNotFound
		}
		if e.RemainingCapacity < seats {
			return domain.ErrCapacityExceeded
		}
		e.RemainingCapacity -= seats
		st.events[id] = e
		remaining = e.RemainingCapacity
		return nil
	})
	return remaining, err
}

func (m memEvents) IncrementCapacity(_ context.Context, id uuid.UUID, seats int) (int, error) {
	var remaining int
	err := m.r.with(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrEventNotFound
		}
		e.RemainingCapacity = min(e.TotalCapacity, e.RemainingCapacity+seats)
		st.events[id] = e
		remaining = e.RemainingCapacity
		return nil
	})
	return remaining, err
}

type memBookings struct{ r *memRepos }

func (m memBookings) Create(_ context.Context, b *domain.Booking) error {
	return m.r.with(func(st *memState) error {
		for _, other := range st.bookings {
			if other.UserID == b.UserID && other.EventID == b.EventID && other.IsActive() {
				return domain.ErrDuplicateBooking
			}
		}
		st.bookings[b.ID] = *b
		return nil
	})
}

func (m memBookings) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	var out *domain.Booking
	err := m.r.with(func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return domain.ErrBookingNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (m memBookings) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return m.GetByID(ctx, id)
}

func (m memBookings) HasActive(_ context.Context, userID, eventID uuid.UUID) (bool, error) {
	var found bool
	err := m.r.with(func(st *memState) error {
		for _, b := range st.bookings {
			if b.UserID == userID && b.EventID == eventID && b.IsActive() {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (m memBookings) UpdateStatus(_ context.Context, id uuid.UUID, status domain.BookingStatus, at time.Time) error {
	return m.r.with(func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return domain.ErrBookingNotFound
		}
		b.Status = status
		b.UpdatedAt = at
		st.bookings[id] = b
		return nil
	})
}

func (m memBookings) AttachOrder(_ context.Context, id uuid.UUID, orderID *uuid.UUID, at time.Time) error {
	return m.r.with(func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return domain.ErrBookingNotFound
		}
		b.OrderID = orderID
		b.UpdatedAt = at
		st.bookings[id] = b
		return nil
	})
}

func (m memBookings) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	var out []domain.Booking
	err := m.r.with(func(st *memState) error {
		for _, b := range st.bookings {
			if b.UserID == userID {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (m memBookings) ListStalePending(_ context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := m.r.with(func(st *memState) error {
		for _, b := range st.bookings {
			if b.Status == domain.BookingPending && b.OrderID == nil && b.CreatedAt.Before(before) && len(out) < limit {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

type memOrders struct{ r *memRepos }

func (m memOrders) Create(_ context.Context, o *domain.Order) error {
	return m.r.with(func(st *memState) error {
		c := *o
		c.Lines = append([]domain.OrderLine(nil), o.Lines...)
		st.orders[o.ID] = c
		return nil
	})
}

func (m memOrders) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := m.r.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		o.Lines = append([]domain.OrderLine(nil), o.Lines...)
		out = &o
		return nil
	})
	return out, err
}

func (m memOrders) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return m.GetByID(ctx, id)
}

func (m memOrders) GetByPaymentReference(_ context.Context, ref string) (*domain.Order, error) {
	var out *domain.Order
	err := m.r.with(func(st *memState) error {
		for _, o := range st.orders {
			if o.PaymentReference != nil && *o.PaymentReference == ref {
				out = &o
				return nil
			}
		}
		return domain.ErrOrderNotFound
	})
	return out, err
}

func (m memOrders) Update(_ context.Context, o *domain.Order) error {
	return m.r.with(func(st *memState) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if o.PaymentReference != nil {
			for id, other := range st.orders {
				if id != o.ID && other.PaymentReference != nil && *other.PaymentReference == *o.PaymentReference {
					return domain.ErrPaymentReferenceSet
				}
			}
		}
		cur.Status = o.Status
		cur.PaymentReference = o.PaymentReference
		cur.CancelReason = o.CancelReason
		cur.UpdatedAt = o.UpdatedAt
		cur.CompletedAt = o.CompletedAt
		st.orders[o.ID] = cur
		return nil
	})
}

func (m memOrders) AppendEvent(_ context.Context, e *domain.OrderEvent) error {
	return m.r.with(func(st *memState) error {
		e.ID = int64(len(st.orderEvents) + 1)
		st.orderEvents = append(st.orderEvents, *e)
		return nil
	})
}

func (m memOrders) ListEvents(_ context.Context, orderID uuid.UUID) ([]domain.OrderEvent, error) {
	var out []domain.OrderEvent
	err := m.r.with(func(st *memState) error {
		for _, e := range st.orderEvents {
			if e.OrderID == orderID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (m memOrders) ListStalePending(_ context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := m.r.with(func(st *memState) error {
		for id, o := range st.orders {
			if o.Status == domain.OrderPending && o.CreatedAt.Before(before) && len(out) < limit {
				out = append(out, id)
			}
		}
		return nil
	})
	return out, err
}

type memGrants struct{ r *memRepos }

func (m memGrants) Create(_ context.Context, g *domain.AccessGrant) error {
	m.r.s.grantCalls++
	if m.r.s.failGrantAt > 0 && m.r.s.grantCalls == m.r.s.failGrantAt {
		return fmt.Errorf("insert access grant: %w: %w", domain.ErrDatabase, errors.New("injected failure"))
	}
	return m.r.with(func(st *memState) error {
		st.grants = append(st.grants, *g)
		return nil
	})
}

func (m memGrants) ListByOrder(_ context.Context, orderID uuid.UUID) ([]domain.AccessGrant, error) {
	var out []domain.AccessGrant
	err := m.r.with(func(st *memState) error {
		for _, g := range st.grants {
			if g.OrderID == orderID {
				out = append(out, g)
			}
		}
		return nil
	})
	return out, err
}

func (m memGrants) RevokeByOrder(_ context.Context, orderID uuid.UUID, at time.Time) (int, error) {
	var n int
	err := m.r.with(func(st *memState) error {
		for i, g := range st.grants {
			if g.OrderID == orderID && g.IsActive() {
				revoked := at
				st.grants[i].RevokedAt = &revoked
				n++
			}
		}
		return nil
	})
	return n, err
}

func (m memGrants) ActiveItems(_ context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	err := m.r.with(func(st *memState) error {
		for _, g := range st.grants {
			if g.UserID != userID || !g.IsActive() {
				continue
			}
			for _, id := range itemIDs {
				if g.ItemID == id {
					out[id] = true
				}
			}
		}
		return nil
	})
	return out, err
}
