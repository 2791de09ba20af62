package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/canteenworks/go-canteen-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is what the rest of the system knows about the caller. Token
// issuance lives elsewhere; here a bearer token is only an opaque key into
// the session store.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

var ErrNoSession = errors.New("session not found")

type Sessions struct {
	Redis *redisx.Store
}

func NewSessions(client *redis.Client) *Sessions {
	return &Sessions{Redis: &redisx.Store{Client: client}}
}

func (s *Sessions) Lookup(ctx context.Context, token string) (Identity, error) {
	var id Identity
	key := fmt.Sprintf(redisx.KeySession, token)
	err := s.Redis.GetJSON(ctx, key, &id)
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrNoSession
	}
	if err != nil {
		return Identity{}, err
	}
	if id.Role == "" {
		id.Role = RoleUser
	}
	return id, nil
}
