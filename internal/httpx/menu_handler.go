package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/canteenworks/go-canteen-orders/internal/menu"
	"github.com/canteenworks/go-canteen-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type MenuHandler struct {
	Repo *menu.Repo
}

func (h *MenuHandler) Register(r chi.Router, src IdentitySource) {
	r.Route("/menu", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(src), RequireAdmin)
			r.Post("/", h.create)
			r.Patch("/{id}", h.update)
			r.Delete("/{id}", h.del)
		})
	})
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request) {
	includeUnavailable := r.URL.Query().Get("all") == "true"
	items, err := h.Repo.List(r.Context(), includeUnavailable)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) get(w http.ResponseWriter, r *http.Request) {
	it, err := h.Repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *MenuHandler) create(w http.ResponseWriter, r *http.Request) {
	var in menu.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, orders.Validation("invalid json"))
		return
	}
	it, err := h.Repo.Create(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *MenuHandler) update(w http.ResponseWriter, r *http.Request) {
	var in menu.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, orders.Validation("invalid json"))
		return
	}
	it, err := h.Repo.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *MenuHandler) del(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
