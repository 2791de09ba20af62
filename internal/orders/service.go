package orders

import (
	"context"
	"time"

	"github.com/canteenworks/go-canteen-orders/internal/auth"
	"go.uber.org/zap"
)

// Store is the persistence surface the service needs. *Repo is the pgx
// implementation; tests substitute an in-memory fake.
type Store interface {
	CreateOrder(ctx context.Context, userID, userEmail string, lines []LineInput, orderType OrderType, method PaymentMethod, notes string) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListByStatus(ctx context.Context, statuses []Status) ([]Order, error)
	ListDashboard(ctx context.Context) ([]DashboardRow, error)
	Stats(ctx context.Context, days int) ([]DayCount, error)
	MarkPaymentNotified(ctx context.Context, id string, at time.Time) (*Order, error)
	ResolvePayment(ctx context.Context, id string, action PaymentAction, at time.Time) (*Order, error)
	UpdateStatus(ctx context.Context, id string, s Status) (*Order, error)
}

type Service struct {
	Store Store
	Log   *zap.Logger
}

type PlaceRequest struct {
	Lines         []LineInput
	OrderType     OrderType
	PaymentMethod PaymentMethod
	Notes         string
}

// Place validates the cart and hands it to the store, which commits the
// order and all stock decrements as one unit.
func (s *Service) Place(ctx context.Context, id auth.Identity, req PlaceRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, Validation("cart is empty")
	}
	for _, ln := range req.Lines {
		if ln.ItemID == "" {
			return nil, Validation("line item is missing an item id")
		}
		if ln.Qty < 1 {
			return nil, Validation("line quantity must be at least 1")
		}
	}
	if req.OrderType == "" {
		req.OrderType = TypeDineIn
	}
	if !ValidOrderType(req.OrderType) {
		return nil, Validation("unknown order type: " + string(req.OrderType))
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCOD
	}
	if !ValidPaymentMethod(req.PaymentMethod) {
		return nil, Validation("unknown payment method: " + string(req.PaymentMethod))
	}

	o, err := s.Store.CreateOrder(ctx, id.UserID, id.Email, req.Lines, req.OrderType, req.PaymentMethod, req.Notes)
	if err != nil {
		return nil, err
	}
	s.Log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("total_amount", o.TotalAmount))
	return o, nil
}

// CanView reports whether the identity may read the order.
func CanView(id auth.Identity, o *Order) bool {
	return id.IsAdmin() || o.UserID == id.UserID
}

func (s *Service) Get(ctx context.Context, id auth.Identity, orderID string) (*Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanView(id, o) {
		return nil, Forbidden("forbidden")
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, id auth.Identity) ([]Order, error) {
	return s.Store.ListByUser(ctx, id.UserID)
}

// ListAdmin filters by the named view; anything unrecognised falls back to
// the active view, matching the dashboard's default tab.
func (s *Service) ListAdmin(ctx context.Context, filter string) ([]Order, error) {
	switch filter {
	case "all":
		return s.Store.ListByStatus(ctx, nil)
	case "completed":
		return s.Store.ListByStatus(ctx, FinishedStatuses)
	default:
		return s.Store.ListByStatus(ctx, ActiveStatuses)
	}
}

func (s *Service) Dashboard(ctx context.Context) ([]DashboardRow, error) {
	return s.Store.ListDashboard(ctx)
}

func (s *Service) Stats(ctx context.Context, days int) ([]DayCount, error) {
	return s.Store.Stats(ctx, days)
}

// NotifyPayment records that the customer claims to have paid via UPI.
// Repeat calls are allowed and simply refresh the notification timestamp.
func (s *Service) NotifyPayment(ctx context.Context, id auth.Identity, orderID string) (*Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanView(id, o) {
		return nil, Forbidden("forbidden")
	}
	if o.PaymentMethod != PaymentUPI {
		return nil, InvalidState("order is not UPI")
	}
	return s.Store.MarkPaymentNotified(ctx, orderID, time.Now().UTC())
}

func (s *Service) ResolvePayment(ctx context.Context, orderID string, action PaymentAction) (*Order, error) {
	if action != ActionConfirm && action != ActionReject {
		return nil, InvalidAction("invalid action: " + string(action))
	}
	o, err := s.Store.ResolvePayment(ctx, orderID, action, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.Log.Info("payment resolved",
		zap.String("order_id", o.ID),
		zap.String("action", string(action)),
		zap.String("status", string(o.Status)))
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	if !ValidStatus(status) {
		return nil, Validation("invalid status: " + string(status))
	}
	return s.Store.UpdateStatus(ctx, orderID, status)
}
