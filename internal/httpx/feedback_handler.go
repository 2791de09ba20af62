package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/canteenworks/go-canteen-orders/internal/feedback"
	"github.com/canteenworks/go-canteen-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type FeedbackHandler struct {
	Repo *feedback.Repo
}

func (h *FeedbackHandler) Register(r chi.Router, src IdentitySource) {
	r.Route("/feedback", func(r chi.Router) {
		r.Use(Authenticate(src))
		r.Post("/", h.create)
		r.With(RequireAdmin).Get("/", h.list)
	})
}

func (h *FeedbackHandler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
		Rating  int    `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, orders.Validation("invalid json"))
		return
	}
	e, err := h.Repo.Create(r.Context(), identityFrom(r.Context()).UserID, body.Message, body.Rating)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *FeedbackHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.Repo.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
