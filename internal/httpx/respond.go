package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/canteenworks/go-canteen-orders/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error string      `json:"error"`
	Kind  orders.Kind `json:"kind,omitempty"`
}

func writeErr(w http.ResponseWriter, err error) {
	kind := orders.KindOf(err)
	code := http.StatusInternalServerError
	msg := err.Error()
	switch kind {
	case orders.KindValidation, orders.KindInsufficientStock,
		orders.KindInvalidState, orders.KindInvalidAction:
		code = http.StatusBadRequest
	case orders.KindNotFound:
		code = http.StatusNotFound
	case orders.KindForbidden:
		code = http.StatusForbidden
	default:
		msg = "internal error"
	}
	writeJSON(w, code, errBody{Error: msg, Kind: kind})
}
