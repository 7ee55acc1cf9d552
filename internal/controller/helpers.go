package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/cassiomorais/purchases/internal/digest"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrSessionNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrSessionExpired, http.StatusGone, "session_expired"},
	{domainErrors.ErrTransactionNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrItemNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domainErrors.ErrIllegalStateTransition, http.StatusConflict, "illegal_state_transition"},
	{domainErrors.ErrInvalidCommand, http.StatusBadRequest, "invalid_command"},
	{domainErrors.ErrMissingRequiredFields, http.StatusBadRequest, "missing_fields"},
	{domainErrors.ErrNoMainItem, http.StatusBadRequest, "no_main_item"},
	{domainErrors.ErrEmptyCascade, http.StatusUnprocessableEntity, "empty_cascade"},
	{domainErrors.ErrBillerNotFound, http.StatusUnprocessableEntity, "biller_not_found"},
	{domainErrors.ErrBillerUnavailable, http.StatusServiceUnavailable, "biller_unavailable"},
	{domainErrors.ErrUnknownKeyIndex, http.StatusBadRequest, "unknown_key_index"},
	{domainErrors.ErrSessionConversion, http.StatusInternalServerError, "session_conversion_failed"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSigned marshals v, injects the digest computed with the key at
// keyIndex and writes the signed document.
func writeSigned(w http.ResponseWriter, status int, signer *digest.Signer, v any, keyIndex int) {
	signed, err := signer.Sign(v, keyIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(signed)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
