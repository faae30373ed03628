package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

var _ ports.OrderUseCase = (*OrderService)(nil)

type OrderConfig struct {
	Currency    string
	TaxBps      int64
	MaxQuantity int
}

type OrderService struct {
	store    ports.Store
	bookings *BookingService
	catalog  ports.Catalog
	gateway  ports.PaymentGateway
	notifier ports.Notifier
	log      *zap.Logger
	cfg      OrderConfig
}

func NewOrderService(
	store ports.Store,
	bookings *BookingService,
	catalog ports.Catalog,
	gateway ports.PaymentGateway,
	notifier ports.Notifier,
	log *zap.Logger,
	cfg OrderConfig,
) *OrderService {
	return &OrderService{
		store:    store,
		bookings: bookings,
		catalog:  catalog,
		gateway:  gateway,
		notifier: notifier,
		log:      log.Named("order"),
		cfg:      cfg,
	}
}

// Create prices every line from the catalog or from the referenced booking and
// persists a pending order. Invalid lines are reported together.
func (s *OrderService) Create(ctx context.Context, userID uuid.UUID, cart []domain.CartLine) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Create")
	defer span.End()
	span.SetAttributes(attribute.Int("order.lines", len(cart)))

	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	lines := make([]domain.OrderLine, len(cart))
	var lineErrs domain.LineErrors
	reject := func(i int, itemID uuid.UUID, reason string) {
		lineErrs = append(lineErrs, domain.LineError{Index: i, ItemID: itemID.String(), Reason: reason})
	}

	seen := make(map[string]bool, len(cart))
	var owned []uuid.UUID
	for i, cl := range cart {
		if !cl.ItemType.Valid() {
			reject(i, cl.ItemID, fmt.Sprintf("unknown item type %q", cl.ItemType))
			continue
		}

		key := string(cl.ItemType) + ":" + cl.ItemID.String()
		if cl.ItemType == domain.ItemEvent && cl.BookingID != nil {
			key = "booking:" + cl.BookingID.String()
		}
		if seen[key] {
			reject(i, cl.ItemID, "duplicate item in cart")
			continue
		}
		seen[key] = true

		if cl.ItemType == domain.ItemEvent {
			if cl.BookingID == nil {
				reject(i, cl.ItemID, "booking_id is required for event items")
			}
			continue
		}

		switch {
		case cl.ItemType == domain.ItemCourse && cl.Quantity != 1:
			reject(i, cl.ItemID, "course quantity must be 1")
			continue
		case cl.Quantity < 1 || cl.Quantity > s.cfg.MaxQuantity:
			reject(i, cl.ItemID, fmt.Sprintf("quantity must be between 1 and %d", s.cfg.MaxQuantity))
			continue
		}

		entry, err := s.catalog.Lookup(ctx, cl.ItemType, cl.ItemID)
		if errors.Is(err, domain.ErrNotFound) {
			reject(i, cl.ItemID, "item not found")
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !entry.Available {
			reject(i, cl.ItemID, "item is not available")
			continue
		}

		lines[i] = domain.OrderLine{
			ItemType:  cl.ItemType,
			ItemID:    cl.ItemID,
			UnitPrice: entry.Price,
			Quantity:  cl.Quantity,
		}
		owned = append(owned, cl.ItemID)
	}

	if len(owned) > 0 {
		active, err := s.store.Grants().ActiveItems(ctx, userID, owned)
		if err != nil {
			return nil, err
		}
		for i, cl := range cart {
			if cl.ItemType != domain.ItemEvent && lines[i].ItemID != uuid.Nil && active[cl.ItemID] {
				reject(i, cl.ItemID, "item already owned")
			}
		}
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  s.cfg.Currency,
		Status:    domain.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithinTx(ctx, func(repos ports.Repositories) error {
		for i, cl := range cart {
			if cl.ItemType != domain.ItemEvent || cl.BookingID == nil {
				continue
			}

			b, err := repos.Bookings().GetForUpdate(ctx, *cl.BookingID)
			if errors.Is(err, domain.ErrNotFound) {
				reject(i, cl.ItemID, "booking not found")
				continue
			}
			if err != nil {
				return err
			}

			switch {
			case b.UserID != userID:
				reject(i, cl.ItemID, "booking not found")
				continue
			case b.EventID != cl.ItemID:
				reject(i, cl.ItemID, "booking is for a different event")
				continue
			case b.Status != domain.BookingPending:
				reject(i, cl.ItemID, fmt.Sprintf("booking is %s", b.Status))
				continue
			case b.OrderID != nil:
				reject(i, cl.ItemID, "booking is already part of another order")
				continue
			}

			event, err := repos.Events().GetByID(ctx, b.EventID)
			if err != nil {
				return err
			}
			if err := event.IsBookable(now); err != nil {
				reject(i, cl.ItemID, err.Error())
				continue
			}

			lines[i] = domain.OrderLine{
				ItemType:  domain.ItemEvent,
				ItemID:    b.EventID,
				BookingID: &b.ID,
				UnitPrice: b.UnitPrice,
				Quantity:  b.Seats,
			}
		}

		if len(lineErrs) > 0 {
			sort.Slice(lineErrs, func(a, b int) bool { return lineErrs[a].Index < lineErrs[b].Index })
			return lineErrs
		}

		for i := range lines {
			lines[i].ID = uuid.New()
			lines[i].OrderID = order.ID
		}
		order.Lines = lines
		order.Subtotal, order.Tax, order.Total = domain.ComputeTotals(lines, s.cfg.TaxBps)

		if err := repos.Orders().Create(ctx, order); err != nil {
			return err
		}

		for _, l := range lines {
			if l.BookingID == nil {
				continue
			}
			if err := repos.Bookings().AttachOrder(ctx, *l.BookingID, &order.ID, now); err != nil {
				return err
			}
		}

		return repos.Orders().AppendEvent(ctx, &domain.OrderEvent{
			OrderID:   order.ID,
			ToStatus:  domain.OrderPending,
			Reason:    "created",
			CreatedAt: now,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.Int64("total", order.Total),
		zap.Int("lines", len(order.Lines)),
	)
	s.notify(ctx, order, EventOrderCreated, "")

	return order, nil
}

// StartPayment opens a charge with the gateway and records its reference.
func (s *OrderService) StartPayment(ctx context.Context, orderID, userID uuid.UUID) (*domain.ChargeIntent, error) {
	ctx, span := tracer.Start(ctx, "OrderService.StartPayment")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	if s.gateway == nil {
		return nil, domain.ErrPaymentsDisabled
	}

	order, err := s.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if order.PaymentReference != nil {
		return nil, domain.ErrPaymentReferenceSet
	}
	if !order.Status.CanTransitionTo(domain.OrderPaymentPending) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, order.Status, domain.OrderPaymentPending)
	}

	intent, err := s.gateway.CreateChargeIntent(ctx, order.Total, order.Currency, map[string]string{
		"order_id": order.ID.String(),
		"user_id":  order.UserID.String(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create charge intent: %w", err)
	}

	if _, err := s.AttachPaymentReference(ctx, orderID, intent.Reference); err != nil {
		return nil, err
	}

	return intent, nil
}

func (s *OrderService) AttachPaymentReference(ctx context.Context, orderID uuid.UUID, ref string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.AttachPaymentReference")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	if ref == "" {
		return nil, domain.ErrEmptyPaymentRef
	}

	order, err := s.mutate(ctx, orderID, func(repos ports.Repositories, o *domain.Order, now time.Time) error {
		if o.PaymentReference != nil {
			return domain.ErrPaymentReferenceSet
		}
		o.PaymentReference = &ref
		return s.transition(ctx, repos, o, domain.OrderPaymentPending, "payment reference attached", now)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.notify(ctx, order, EventOrderPaymentSent, "")
	return order, nil
}

// MarkPaid accepts a payment confirmation the caller has already verified.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.MarkPaid")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	order, err := s.mutate(ctx, orderID, func(repos ports.Repositories, o *domain.Order, now time.Time) error {
		return s.transition(ctx, repos, o, domain.OrderPaid, "payment confirmed", now)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.notify(ctx, order, EventOrderPaid, "")
	return order, nil
}

// MarkPaidByReference resolves a gateway callback. Redelivered confirmations
// for an order that is already past payment are a no-op. A payment for a
// cancelled or refunded order returns ErrPaidClosedOrder so it can be refunded.
func (s *OrderService) MarkPaidByReference(ctx context.Context, ref string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.MarkPaidByReference")
	defer span.End()

	found, err := s.byReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", found.ID.String()))

	transitioned := false
	order, err := s.mutate(ctx, found.ID, func(repos ports.Repositories, o *domain.Order, now time.Time) error {
		switch o.Status {
		case domain.OrderPaid, domain.OrderProcessing, domain.OrderCompleted:
			return nil
		case domain.OrderCancelled, domain.OrderRefunded:
			return fmt.Errorf("%w: order %s is %s", domain.ErrPaidClosedOrder, o.ID, o.Status)
		}
		transitioned = true
		return s.transition(ctx, repos, o, domain.OrderPaid, "payment confirmed", now)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrPaidClosedOrder) {
			s.log.Error("payment received for closed order",
				zap.String("order_id", found.ID.String()),
				zap.String("reference", ref),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if transitioned {
		s.notify(ctx, order, EventOrderPaid, "")
	}
	return order, nil
}

// FailByReference cancels the order behind a failed charge.
func (s *OrderService) FailByReference(ctx context.Context, ref, reason string) (*domain.Order, error) {
	order, err := s.byReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderCancelled {
		return order, nil
	}

	if reason == "" {
		reason = "payment failed"
	}
	return s.Cancel(ctx, order.ID, reason)
}

// Fulfill grants every line of a paid order in one transaction: either all
// grants exist and the order is completed, or nothing changed and it is still
// paid.
func (s *OrderService) Fulfill(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Fulfill")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	order, err := s.mutate(ctx, orderID, func(repos ports.Repositories, o *domain.Order, now time.Time) error {
		if o.Status != domain.OrderPaid {
			return fmt.Errorf("%w: status is %s", domain.ErrOrderNotPaid, o.Status)
		}

		if err := s.transition(ctx, repos, o, domain.OrderProcessing, "fulfillment started", now); err != nil {
			return err
		}

		for _, l := range o.Lines {
			if l.ItemType == domain.ItemEvent && l.BookingID != nil {
				if err := s.bookings.confirmInTx(ctx, repos, *l.BookingID, now); err != nil {
					return fmt.Errorf("line %s: %w", l.ID, err)
				}
			}

			grant := &domain.AccessGrant{
				ID:          uuid.New(),
				OrderID:     o.ID,
				OrderLineID: l.ID,
				UserID:      o.UserID,
				Kind:        domain.GrantKindFor(l.ItemType),
				ItemID:      l.ItemID,
				GrantedAt:   now,
			}
			if err := repos.Grants().Create(ctx, grant); err != nil {
				return fmt.Errorf("line %s: %w", l.ID, err)
			}
		}

		return s.transition(ctx, repos, o, domain.OrderCompleted, "fulfilled", now)
	})
	if err != nil {
		span.RecordError(err)
		s.log.Error("fulfillment aborted", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, err
	}

	s.log.Info("order fulfilled", zap.String("order_id", order.ID.String()), zap.Int("lines", len(order.Lines)))
	s.notify(ctx, order, EventOrderCompleted, "")

	return order, nil
}

// Cancel is allowed only before payment; held seats go back to the ledger.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	order, err := s.cancel(ctx, orderID, reason, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return order, nil
}

// Expire cancels an order only while it is still pending. The status is
// checked under the row lock, so an order that reached payment_pending after
// it was listed as stale is left alone.
func (s *OrderService) Expire(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Expire")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	order, err := s.cancel(ctx, orderID, reason, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return order, nil
}

func (s *OrderService) cancel(ctx context.Context, orderID uuid.UUID, reason string, onlyPending bool) (*domain.Order, error) {
	var released []uuid.UUID
	order, err := s.mutate(ctx, orderID, func(repos ports.Repositories, o *domain.Order, now time.Time) error {
		if onlyPending && o.Status != domain.OrderPending {
			return fmt.Errorf("%w: order is %s", domain.ErrOrderNotPending, o.Status)
		}

		o.CancelReason = reason
		if err := s.transition(ctx, repos, o, domain.OrderCancelled, reason, now); err != nil {
			return err
		}

		var err error
		released, err = s.releaseBookings(ctx, repos, o, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.bookings.ledger.invalidate(ctx, released...)
	s.log.Info("order cancelled", zap.String("order_id", order.ID.String()), zap.String("reason", reason))
	s.notify(ctx, order, EventOrderCancelled, reason)

	return order, nil
}

// Refund is the inverse of Fulfill: every active grant is revoked and held
// seats are released in the same transaction.
func (s *OrderService) Refund(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Refund")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	var released []uuid.UUID
	order, err := s.mutate(ctx, orderID, func(repos ports.Repositories, o *domain.Order, now time.Time) error {
		if err := s.transition(ctx, repos, o, domain.OrderRefunded, reason, now); err != nil {
			return err
		}

		revoked, err := repos.Grants().RevokeByOrder(ctx, o.ID, now)
		if err != nil {
			return err
		}
		s.log.Debug("grants revoked", zap.String("order_id", o.ID.String()), zap.Int("count", revoked))

		released, err = s.releaseBookings(ctx, repos, o, now)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.bookings.ledger.invalidate(ctx, released...)
	s.log.Info("order refunded", zap.String("order_id", order.ID.String()), zap.String("reason", reason))
	s.notify(ctx, order, EventOrderRefunded, reason)

	return order, nil
}

func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.store.Orders().GetByID(ctx, orderID)
}

// GetForUser hides other users' orders behind not found.
func (s *OrderService) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error) {
	o, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) History(ctx context.Context, orderID uuid.UUID) ([]domain.OrderEvent, error) {
	if _, err := s.store.Orders().GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Orders().ListEvents(ctx, orderID)
}

func (s *OrderService) Grants(ctx context.Context, orderID uuid.UUID) ([]domain.AccessGrant, error) {
	return s.store.Grants().ListByOrder(ctx, orderID)
}

// mutate locks the order row for the duration of fn.
func (s *OrderService) mutate(ctx context.Context, orderID uuid.UUID, fn func(repos ports.Repositories, o *domain.Order, now time.Time) error) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(repos ports.Repositories) error {
		o, err := repos.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(repos, o, time.Now().UTC()); err != nil {
			return err
		}
		order = o
		return nil
	})
	return order, err
}

// transition persists one lifecycle step together with its audit row.
func (s *OrderService) transition(ctx context.Context, repos ports.Repositories, o *domain.Order, next domain.OrderStatus, reason string, at time.Time) error {
	from := o.Status
	if err := o.TransitionTo(next, at); err != nil {
		return err
	}

	if err := repos.Orders().Update(ctx, o); err != nil {
		return err
	}

	return repos.Orders().AppendEvent(ctx, &domain.OrderEvent{
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   next,
		Reason:     reason,
		CreatedAt:  at,
	})
}

func (s *OrderService) releaseBookings(ctx context.Context, repos ports.Repositories, o *domain.Order, at time.Time) ([]uuid.UUID, error) {
	var events []uuid.UUID
	for _, l := range o.Lines {
		if l.BookingID == nil {
			continue
		}

		b, err := repos.Bookings().GetForUpdate(ctx, *l.BookingID)
		if err != nil {
			return nil, err
		}
		if b.Status == domain.BookingCancelled {
			continue
		}

		if err := s.bookings.cancelInTx(ctx, repos, b, at); err != nil {
			return nil, err
		}
		events = append(events, b.EventID)
	}
	return events, nil
}

func (s *OrderService) byReference(ctx context.Context, ref string) (*domain.Order, error) {
	if ref == "" {
		return nil, domain.ErrEmptyPaymentRef
	}

	order, err := s.store.Orders().GetByPaymentReference(ctx, ref)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPaymentRef, ref)
	}
	return order, err
}

func (s *OrderService) notify(ctx context.Context, o *domain.Order, event, reason string) {
	dispatch(ctx, s.notifier, s.log, o.UserID, event, OrderNotice{
		OrderID: o.ID.String(),
		Status:  string(o.Status),
		Total:   o.Total,
		Reason:  reason,
	})
}
