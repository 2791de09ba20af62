package orders

import "time"

// LineItem is a snapshot taken at placement time. Name and price stay as
// they were even if the menu item is later edited or deleted.
type LineItem struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Qty    int    `json:"qty"`
	Price  int    `json:"price"`
}

type Order struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	UserEmail         string        `json:"user_email,omitempty"`
	Items             []LineItem    `json:"items"`
	TotalAmount       int           `json:"total_amount"`
	OrderType         OrderType     `json:"order_type"`
	Notes             string        `json:"notes,omitempty"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	Status            Status        `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	PaidAt            *time.Time    `json:"paid_at,omitempty"`
	PaymentNotifiedAt *time.Time    `json:"payment_notified_at,omitempty"`
}

// LineInput is one requested cart line. Quantity only; names and prices are
// resolved server-side inside the placement transaction.
type LineInput struct {
	ItemID string
	Qty    int
}

// DashboardRow is the flattened shape the admin dashboard consumes.
type DashboardRow struct {
	ID            string        `json:"id"`
	UserEmail     string        `json:"user_email"`
	Items         []LineItem    `json:"items"`
	TotalAmount   int           `json:"total_amount"`
	OrderType     OrderType     `json:"order_type"`
	Notes         string        `json:"notes"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// DayCount is one bucket of the per-day order stats.
type DayCount struct {
	Date   string `json:"date"`
	Orders int    `json:"orders"`
}
