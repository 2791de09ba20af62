package menu

import (
	"context"
	"errors"
	"time"

	"github.com/canteenworks/go-canteen-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int       `json:"price"`
	Category    string    `json:"category,omitempty"`
	StockCount  int       `json:"stock_count"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       *int   `json:"price"`
	Category    string `json:"category"`
	StockCount  *int   `json:"stock_count"`
	IsAvailable *bool  `json:"is_available"`
}

type Repo struct{ DB *pgxpool.Pool }

const cols = `id, name, description, price, category, stock_count, is_available, created_at, updated_at`

func scan(row pgx.Row, it *Item) error {
	return row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Category,
		&it.StockCount, &it.IsAvailable, &it.CreatedAt, &it.UpdatedAt)
}

// List returns the catalog. Non-admin callers only see available items;
// stock decrement at order time is handled by the orders repo, not here.
func (r *Repo) List(ctx context.Context, includeUnavailable bool) ([]Item, error) {
	q := `SELECT ` + cols + ` FROM menu_items`
	if !includeUnavailable {
		q += ` WHERE is_available`
	}
	q += ` ORDER BY category, name`
	rows, err := r.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := scan(rows, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*Item, error) {
	var it Item
	err := scan(r.DB.QueryRow(ctx, `SELECT `+cols+` FROM menu_items WHERE id=$1`, id), &it)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.NotFound("menu item not found")
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *Repo) Create(ctx context.Context, in ItemInput) (*Item, error) {
	if in.Name == "" {
		return nil, orders.Validation("name is required")
	}
	it := Item{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		IsAvailable: true,
		CreatedAt:   time.Now().UTC(),
	}
	it.UpdatedAt = it.CreatedAt
	if in.Price != nil {
		it.Price = *in.Price
	}
	if it.Price < 0 {
		return nil, orders.Validation("price must not be negative")
	}
	if in.StockCount != nil {
		it.StockCount = *in.StockCount
	}
	if it.StockCount < 0 {
		return nil, orders.Validation("stock_count must not be negative")
	}
	if in.IsAvailable != nil {
		it.IsAvailable = *in.IsAvailable
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO menu_items(id, name, description, price, category, stock_count, is_available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		it.ID, it.Name, it.Description, it.Price, it.Category, it.StockCount, it.IsAvailable, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Update patches only the fields present in the input.
func (r *Repo) Update(ctx context.Context, id string, in ItemInput) (*Item, error) {
	it, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		it.Name = in.Name
	}
	if in.Description != "" {
		it.Description = in.Description
	}
	if in.Category != "" {
		it.Category = in.Category
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, orders.Validation("price must not be negative")
		}
		it.Price = *in.Price
	}
	if in.StockCount != nil {
		if *in.StockCount < 0 {
			return nil, orders.Validation("stock_count must not be negative")
		}
		it.StockCount = *in.StockCount
	}
	if in.IsAvailable != nil {
		it.IsAvailable = *in.IsAvailable
	}
	it.UpdatedAt = time.Now().UTC()
	ct, err := r.DB.Exec(ctx, `
		UPDATE menu_items
		SET name=$2, description=$3, price=$4, category=$5, stock_count=$6, is_available=$7, updated_at=$8
		WHERE id=$1`,
		id, it.Name, it.Description, it.Price, it.Category, it.StockCount, it.IsAvailable, it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, orders.NotFound("menu item not found")
	}
	return it, nil
}

// Delete removes the catalog row. Existing orders keep their snapshots.
func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.NotFound("menu item not found")
	}
	return nil
}
