package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/canteenworks/go-canteen-orders/internal/auth"
	kafkax "github.com/canteenworks/go-canteen-orders/internal/kafka"
	"github.com/canteenworks/go-canteen-orders/internal/orders"
	"github.com/canteenworks/go-canteen-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the fire-and-forget event sink. *kafkax.Producer satisfies it.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Svc      *orders.Service
	Cache    *redisx.Store
	Producer Publisher
	Service  string
	Log      *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router, src IdentitySource) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(Authenticate(src))
		r.Post("/", h.placeOrder)
		r.Get("/user", h.listMine)
		r.Post("/{id}/notify-payment", h.notifyPayment)
		r.Get("/{id}", h.getOrder)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.listAdmin)
			r.Get("/list", h.dashboard)
			r.Get("/stats", h.stats)
			r.Patch("/{id}/payment", h.resolvePayment)
			r.Patch("/{id}/status", h.updateStatus)
		})
	})
}

type placeOrderLine struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`  // accepted for compatibility, ignored
	Price  int    `json:"price"` // accepted for compatibility, ignored
	Qty    int    `json:"qty"`
}

type placeOrderRequest struct {
	Items         []placeOrderLine `json:"items"`
	OrderType     string           `json:"orderType"`
	PaymentMethod string           `json:"paymentMethod"`
	Notes         string           `json:"notes"`
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, orders.Validation("invalid json"))
		return
	}
	lines := make([]orders.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, orders.LineInput{ItemID: it.ItemID, Qty: it.Qty})
	}

	id := identityFrom(r.Context())
	o, err := h.Svc.Place(r.Context(), id, orders.PlaceRequest{
		Lines:         lines,
		OrderType:     orders.OrderType(req.OrderType),
		PaymentMethod: orders.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	// Side effects after commit are best-effort only.
	h.cacheOrder(r, o)
	h.publishPlaced(r, o)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order placed successfully",
		"order":   o,
	})
}

func (h *OrdersHandler) publishPlaced(r *http.Request, o *orders.Order) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID:       o.ID,
			UserID:        o.UserID,
			UserEmail:     o.UserEmail,
			Items:         o.Items,
			TotalAmount:   o.TotalAmount,
			OrderType:     o.OrderType,
			PaymentMethod: o.PaymentMethod,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) cacheOrder(r *http.Request, o *orders.Order) {
	if h.Cache == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderSnapshot, o.ID)
	if err := h.Cache.SetJSON(r.Context(), key, o, redisx.TTLOrderCache); err != nil {
		h.Log.Warn("order cache set failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	id := identityFrom(r.Context())

	if o, ok := h.cachedOrder(r, orderID); ok {
		if !orders.CanView(id, o) {
			writeErr(w, orders.Forbidden("forbidden"))
			return
		}
		writeJSON(w, http.StatusOK, o)
		return
	}

	o, err := h.Svc.Get(r.Context(), id, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cachedOrder(r *http.Request, orderID string) (*orders.Order, bool) {
	if h.Cache == nil {
		return nil, false
	}
	var o orders.Order
	key := fmt.Sprintf(redisx.KeyOrderSnapshot, orderID)
	if err := h.Cache.GetJSON(r.Context(), key, &o); err != nil {
		if err != redis.Nil {
			h.Log.Warn("order cache get failed", zap.String("order_id", orderID), zap.Error(err))
		}
		return nil, false
	}
	return &o, true
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListForUser(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listAdmin(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListAdmin(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Dashboard(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) stats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	out, err := h.Svc.Stats(r.Context(), days)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) notifyPayment(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.NotifyPayment(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Payment notification sent",
		"order":   o,
	})
}

func (h *OrdersHandler) resolvePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, orders.Validation("invalid json"))
		return
	}
	o, err := h.Svc.ResolvePayment(r.Context(), chi.URLParam(r, "id"), orders.PaymentAction(body.Action))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Payment %sed", body.Action),
		"order":   o,
	})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, orders.Validation("invalid json"))
		return
	}
	o, err := h.Svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), orders.Status(body.Status))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, o)
}

var _ IdentitySource = (*auth.Sessions)(nil)
