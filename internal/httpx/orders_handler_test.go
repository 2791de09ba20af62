package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/canteenworks/go-canteen-orders/internal/auth"
	"github.com/canteenworks/go-canteen-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSessions map[string]auth.Identity

func (s stubSessions) Lookup(ctx context.Context, token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, auth.ErrNoSession
	}
	return id, nil
}

type capturedEvent struct {
	key   []byte
	value []byte
}

type stubPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *stubPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{key: key, value: value})
}

// fakeStore implements orders.Store with the same commit semantics as the
// pgx repo, enough for handler-level tests.
type fakeStore struct {
	mu    sync.Mutex
	menu  map[string]struct{ name string; price, stock int }
	byID  map[string]*orders.Order
	seq   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		menu: map[string]struct{ name string; price, stock int }{
			"i1": {"Samosa", 50, 10},
			"i2": {"Chai", 30, 10},
		},
		byID: map[string]*orders.Order{},
	}
}

func (f *fakeStore) CreateOrder(ctx context.Context, userID, userEmail string, lines []orders.LineInput, orderType orders.OrderType, method orders.PaymentMethod, notes string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	items := make([]orders.LineItem, 0, len(lines))
	for _, ln := range lines {
		row, ok := f.menu[ln.ItemID]
		if !ok {
			return nil, orders.NotFound("menu item not found: " + ln.ItemID)
		}
		if row.stock < ln.Qty {
			return nil, orders.InsufficientStock("insufficient stock for " + row.name)
		}
		row.stock -= ln.Qty
		f.menu[ln.ItemID] = row
		total += row.price * ln.Qty
		items = append(items, orders.LineItem{ItemID: ln.ItemID, Name: row.name, Qty: ln.Qty, Price: row.price})
	}
	if orderType == orders.TypeTakeaway {
		total += orders.TakeawaySurcharge
	}
	f.seq++
	o := &orders.Order{
		ID: fmt.Sprintf("o-%d", f.seq), UserID: userID, UserEmail: userEmail,
		Items: items, TotalAmount: total, OrderType: orderType, Notes: notes,
		PaymentMethod: method, PaymentStatus: orders.PaymentUnpaid,
		Status: orders.StatusPlaced, CreatedAt: time.Now().UTC(),
	}
	f.byID[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, orders.NotFound("order not found")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []orders.Order
	for _, o := range f.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListByStatus(ctx context.Context, statuses []orders.Status) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[orders.Status]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []orders.Order
	for _, o := range f.byID {
		if len(statuses) == 0 || want[o.Status] {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDashboard(ctx context.Context) ([]orders.DashboardRow, error) {
	all, _ := f.ListByStatus(ctx, nil)
	out := make([]orders.DashboardRow, 0, len(all))
	for _, o := range all {
		out = append(out, orders.DashboardRow{ID: o.ID, UserEmail: o.UserEmail, Status: o.Status,
			Items: o.Items, TotalAmount: o.TotalAmount, CreatedAt: o.CreatedAt})
	}
	return out, nil
}

func (f *fakeStore) Stats(ctx context.Context, days int) ([]orders.DayCount, error) {
	all, _ := f.ListByStatus(ctx, nil)
	counts := map[string]int{}
	for _, o := range all {
		counts[o.CreatedAt.Format("2006-01-02")]++
	}
	var out []orders.DayCount
	for d, n := range counts {
		out = append(out, orders.DayCount{Date: d, Orders: n})
	}
	return out, nil
}

func (f *fakeStore) MarkPaymentNotified(ctx context.Context, id string, at time.Time) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, orders.NotFound("order not found")
	}
	o.PaymentStatus = orders.PaymentAwaiting
	o.PaymentNotifiedAt = &at
	cp := *o
	return &cp, nil
}

func (f *fakeStore) ResolvePayment(ctx context.Context, id string, action orders.PaymentAction, at time.Time) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, orders.NotFound("order not found")
	}
	if action == orders.ActionConfirm {
		o.PaymentStatus = orders.PaymentPaid
		o.PaidAt = &at
		if o.Status == orders.StatusPlaced {
			o.Status = orders.StatusPreparing
		}
	} else {
		o.PaymentStatus = orders.PaymentFailed
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, s orders.Status) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, orders.NotFound("order not found")
	}
	o.Status = s
	cp := *o
	return &cp, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore, *stubPublisher) {
	t.Helper()
	store := newFakeStore()
	pub := &stubPublisher{}
	log := zap.NewNop()
	h := &OrdersHandler{
		Svc:      &orders.Service{Store: store, Log: log},
		Producer: pub,
		Service:  "canteen-api-test",
		Log:      log,
	}
	sessions := stubSessions{
		"tok-alice": {UserID: "u-alice", Role: auth.RoleUser, Email: "alice@example.com"},
		"tok-bob":   {UserID: "u-bob", Role: auth.RoleUser},
		"tok-admin": {UserID: "u-admin", Role: auth.RoleAdmin},
	}
	r := NewRouter(log)
	h.Register(r, sessions)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, pub
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func placeBody(qty int, extra ...map[string]any) map[string]any {
	b := map[string]any{
		"items":         []map[string]any{{"itemId": "i1", "qty": qty}},
		"orderType":     "dine-in",
		"paymentMethod": "upi",
	}
	for _, e := range extra {
		for k, v := range e {
			b[k] = v
		}
	}
	return b
}

func TestAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/orders/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/orders/user", "tok-unknown", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminOnlyRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/orders/"},
		{http.MethodGet, "/orders/list"},
		{http.MethodGet, "/orders/stats"},
	} {
		resp := do(t, tc.method, srv.URL+tc.path, "tok-alice", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, tc.path)
		resp.Body.Close()
	}
}

func TestPlaceOrderEndpoint(t *testing.T) {
	srv, _, pub := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", map[string]any{
		"items": []map[string]any{
			{"itemId": "i1", "qty": 2},
			{"itemId": "i2", "qty": 1},
		},
		"orderType":     "takeaway",
		"paymentMethod": "upi",
		"notes":         "less spicy",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)
	assert.Equal(t, 140, body.Order.TotalAmount)
	assert.Equal(t, "u-alice", body.Order.UserID)
	assert.Equal(t, orders.StatusPlaced, body.Order.Status)
	assert.Len(t, body.Order.Items, 2)

	// the handler published exactly one order.placed envelope
	require.Len(t, pub.events, 1)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.events[0].value, &env))
	assert.Equal(t, orders.EventOrderPlaced, env.EventType)
	assert.Equal(t, body.Order.ID, env.CorrelationID)
	assert.Equal(t, []byte(body.Order.ID), pub.events[0].key)
}

func TestPlaceOrderRejections(t *testing.T) {
	srv, _, pub := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eb := decode[struct {
		Kind orders.Kind `json:"kind"`
	}](t, resp)
	assert.Equal(t, orders.KindValidation, eb.Kind)

	resp = do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", placeBody(999))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eb = decode[struct {
		Kind orders.Kind `json:"kind"`
	}](t, resp)
	assert.Equal(t, orders.KindInsufficientStock, eb.Kind)

	// rejected placements publish nothing
	assert.Empty(t, pub.events)
}

func TestGetOrderAuthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", placeBody(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)

	resp = do(t, http.MethodGet, srv.URL+"/orders/"+created.Order.ID, "tok-bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodGet, srv.URL+"/orders/"+created.Order.ID, "tok-admin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// repeated reads with no writes in between are identical
	a := decode[orders.Order](t, do(t, http.MethodGet, srv.URL+"/orders/"+created.Order.ID, "tok-alice", nil))
	b := decode[orders.Order](t, do(t, http.MethodGet, srv.URL+"/orders/"+created.Order.ID, "tok-alice", nil))
	assert.Equal(t, a, b)

	resp = do(t, http.MethodGet, srv.URL+"/orders/nope", "tok-admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestNotifyPaymentEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", placeBody(1, map[string]any{"paymentMethod": "cod"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cod := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)

	resp = do(t, http.MethodPost, srv.URL+"/orders/"+cod.Order.ID+"/notify-payment", "tok-alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eb := decode[struct {
		Kind orders.Kind `json:"kind"`
	}](t, resp)
	assert.Equal(t, orders.KindInvalidState, eb.Kind)

	resp = do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", placeBody(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	upi := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)

	resp = do(t, http.MethodPost, srv.URL+"/orders/"+upi.Order.ID+"/notify-payment", "tok-alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)
	assert.Equal(t, orders.PaymentAwaiting, got.Order.PaymentStatus)
}

func TestResolvePaymentEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", placeBody(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)

	// admin only
	resp = do(t, http.MethodPatch, srv.URL+"/orders/"+created.Order.ID+"/payment", "tok-alice", map[string]string{"action": "confirm"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodPatch, srv.URL+"/orders/"+created.Order.ID+"/payment", "tok-admin", map[string]string{"action": "settle"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eb := decode[struct {
		Kind orders.Kind `json:"kind"`
	}](t, resp)
	assert.Equal(t, orders.KindInvalidAction, eb.Kind)

	resp = do(t, http.MethodPatch, srv.URL+"/orders/"+created.Order.ID+"/payment", "tok-admin", map[string]string{"action": "confirm"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)
	assert.Equal(t, orders.PaymentPaid, got.Order.PaymentStatus)
	assert.Equal(t, orders.StatusPreparing, got.Order.Status)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", placeBody(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Order orders.Order `json:"order"`
	}](t, resp)

	resp = do(t, http.MethodPatch, srv.URL+"/orders/"+created.Order.ID+"/status", "tok-admin", map[string]string{"status": "vaporized"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodPatch, srv.URL+"/orders/"+created.Order.ID+"/status", "tok-admin", map[string]string{"status": "ready"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[orders.Order](t, resp)
	assert.Equal(t, orders.StatusReady, got.Status)
}

func TestListMineEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-alice", placeBody(1))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}
	resp := do(t, http.MethodPost, srv.URL+"/orders/", "tok-bob", placeBody(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	mine := decode[[]orders.Order](t, do(t, http.MethodGet, srv.URL+"/orders/user", "tok-alice", nil))
	require.Len(t, mine, 2)
	for _, o := range mine {
		assert.Equal(t, "u-alice", o.UserID)
	}
}
