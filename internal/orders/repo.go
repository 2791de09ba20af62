package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder runs the whole placement as one transaction: each menu row is
// locked, re-checked and decremented conditionally, then the order and its
// snapshots are inserted. Any line failure rolls everything back, so stock
// can reach exactly zero but never goes negative even under concurrent
// placements against the same item.
func (r *Repo) CreateOrder(ctx context.Context, userID, userEmail string, lines []LineInput, orderType OrderType, method PaymentMethod, notes string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	total := 0
	items := make([]LineItem, 0, len(lines))
	for _, ln := range lines {
		var name string
		var price, stock int
		err := tx.QueryRow(ctx,
			`SELECT name, price, stock_count FROM menu_items WHERE id=$1 FOR UPDATE`,
			ln.ItemID).Scan(&name, &price, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFound(fmt.Sprintf("menu item not found: %s", ln.ItemID))
		}
		if err != nil {
			return nil, err
		}
		if stock < ln.Qty {
			return nil, InsufficientStock(fmt.Sprintf("insufficient stock for %s", name))
		}

		// Conditional decrement at commit time, not just the check above.
		ct, err := tx.Exec(ctx,
			`UPDATE menu_items SET stock_count = stock_count - $2, updated_at = now()
			 WHERE id=$1 AND stock_count >= $2`,
			ln.ItemID, ln.Qty)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() != 1 {
			return nil, InsufficientStock(fmt.Sprintf("insufficient stock for %s", name))
		}

		total += price * ln.Qty
		items = append(items, LineItem{ItemID: ln.ItemID, Name: name, Qty: ln.Qty, Price: price})
	}
	if orderType == TypeTakeaway {
		total += TakeawaySurcharge
	}

	o := &Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		UserEmail:     userEmail,
		Items:         items,
		TotalAmount:   total,
		OrderType:     orderType,
		Notes:         notes,
		PaymentMethod: method,
		PaymentStatus: PaymentUnpaid,
		Status:        StatusPlaced,
		CreatedAt:     time.Now().UTC(),
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, user_email, total_amount, order_type, notes,
		                   payment_method, payment_status, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.UserID, o.UserEmail, o.TotalAmount, o.OrderType, o.Notes,
		o.PaymentMethod, o.PaymentStatus, o.Status, o.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, item_id, name, qty, price)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.ItemID, it.Name, it.Qty, it.Price); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

const orderCols = `id, user_id, user_email, total_amount, order_type, notes,
	payment_method, payment_status, status, created_at, paid_at, payment_notified_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.TotalAmount, &o.OrderType, &o.Notes,
		&o.PaymentMethod, &o.PaymentStatus, &o.Status, &o.CreatedAt, &o.PaidAt, &o.PaymentNotifiedAt)
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, map[string]*Order{o.ID: &o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *Repo) ListByStatus(ctx context.Context, statuses []Status) ([]Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders`
	args := []any{}
	if len(statuses) > 0 {
		q += ` WHERE status = ANY($1)`
		ss := make([]string, len(statuses))
		for i, s := range statuses {
			ss[i] = string(s)
		}
		args = append(args, ss)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *Repo) collect(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	byID := map[string]*Order{}
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if err := r.loadItems(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, byID map[string]*Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := r.DB.Query(ctx,
		`SELECT order_id, item_id, name, qty, price FROM order_items WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it LineItem
		if err := rows.Scan(&orderID, &it.ItemID, &it.Name, &it.Qty, &it.Price); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *Repo) MarkPaymentNotified(ctx context.Context, id string, at time.Time) (*Order, error) {
	ct, err := r.DB.Exec(ctx,
		`UPDATE orders SET payment_status=$2, payment_notified_at=$3 WHERE id=$1`,
		id, PaymentAwaiting, at)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, NotFound("order not found")
	}
	return r.GetOrder(ctx, id)
}

// ResolvePayment applies the confirm/reject outcome in one UPDATE. Confirm
// also advances a still-placed order to preparing (the confirmation
// coupling); any later status is left untouched.
func (r *Repo) ResolvePayment(ctx context.Context, id string, action PaymentAction, at time.Time) (*Order, error) {
	var ct pgconn.CommandTag
	var err error
	if action == ActionConfirm {
		ct, err = r.DB.Exec(ctx, `
			UPDATE orders
			SET payment_status = 'paid',
			    paid_at = $2,
			    status = CASE WHEN status = 'placed' THEN 'preparing' ELSE status END
			WHERE id = $1`, id, at)
	} else {
		ct, err = r.DB.Exec(ctx,
			`UPDATE orders SET payment_status = 'failed' WHERE id = $1`, id)
	}
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, NotFound("order not found")
	}
	return r.GetOrder(ctx, id)
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, s Status) (*Order, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, s)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, NotFound("order not found")
	}
	return r.GetOrder(ctx, id)
}

func (r *Repo) ListDashboard(ctx context.Context) ([]DashboardRow, error) {
	all, err := r.ListByStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]DashboardRow, 0, len(all))
	for _, o := range all {
		out = append(out, DashboardRow{
			ID:            o.ID,
			UserEmail:     o.UserEmail,
			Items:         o.Items,
			TotalAmount:   o.TotalAmount,
			OrderType:     o.OrderType,
			Notes:         o.Notes,
			PaymentMethod: o.PaymentMethod,
			PaymentStatus: o.PaymentStatus,
			Status:        o.Status,
			CreatedAt:     o.CreatedAt,
		})
	}
	return out, nil
}

// Stats buckets order counts per calendar day. days <= 0 means no window.
func (r *Repo) Stats(ctx context.Context, days int) ([]DayCount, error) {
	q := `SELECT to_char(created_at, 'YYYY-MM-DD') AS d, COUNT(*) FROM orders`
	args := []any{}
	if days > 0 {
		q += ` WHERE created_at >= $1`
		start := time.Now().UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
		args = append(args, start)
	}
	q += ` GROUP BY d ORDER BY d`
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Orders); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
