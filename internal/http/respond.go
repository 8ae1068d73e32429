package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/stock-cart/internal/apperr"
	"github.com/tuanvumaihuynh/stock-cart/internal/identity"
	"github.com/tuanvumaihuynh/stock-cart/pkg/validator"
)

// maxBodyBytes caps request bodies; every body in the contract is tiny.
const maxBodyBytes = 1 << 16

// handlerFunc is an http.HandlerFunc that reports failures as errors so a
// single place renders them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v validator.Validator, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		return apperr.ValidationErr.WithMsg("invalid request body").WrapParent(err)
	}

	if err := v.Validate(dest); err != nil {
		return apperr.ValidationErr.WrapParent(err)
	}

	return nil
}

// currentUser returns the caller set by the Identity middleware.
func currentUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := identity.UserFromContext(r.Context())
	if !ok {
		return uuid.Nil, apperr.UnauthenticatedErr
	}
	return userID, nil
}
