package feedback

import (
	"context"
	"time"

	"github.com/canteenworks/go-canteen-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, userID, message string, rating int) (*Entry, error) {
	if message == "" {
		return nil, orders.Validation("message is required")
	}
	if rating < 1 || rating > 5 {
		return nil, orders.Validation("rating must be between 1 and 5")
	}
	e := Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Rating:    rating,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO feedback(id, user_id, message, rating, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.UserID, e.Message, e.Rating, e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, user_id, message, rating, created_at FROM feedback ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &e.Rating, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
