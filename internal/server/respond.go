package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/payment"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// scanStatus maps a failure category to an HTTP status.
var scanStatus = map[pipeline.FailureReason]int{
	pipeline.ReasonTimeout:    http.StatusGatewayTimeout,
	pipeline.ReasonBlocked:    http.StatusBadGateway,
	pipeline.ReasonNavigation: http.StatusBadGateway,
	pipeline.ReasonPartial:    http.StatusUnprocessableEntity,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck,errchkjson
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeScanError answers with the failure category and a localized
// message. Diagnostics are logged, never returned.
func (s *Server) writeScanError(w http.ResponseWriter, err error, locale model.Locale) {
	var failure *pipeline.ScanFailure
	switch {
	case errors.Is(err, pipeline.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "INVALID_URL")
	case errors.As(err, &failure):
		s.logger.Warn("scan failed", "reason", failure.Reason, "error", failure.Err)
		status, ok := scanStatus[failure.Reason]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{
			Error:   string(failure.Reason),
			Message: failure.UserMessage(locale),
		})
	case errors.Is(err, model.ErrInvalidStandard), errors.Is(err, model.ErrInvalidLocale):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writePaymentError maps the payment error taxonomy to HTTP.
// Configuration errors carry no user data and are shown as-is; gateway
// errors show only their generic message.
func (s *Server) writePaymentError(w http.ResponseWriter, err error) {
	var (
		cfgErr     *payment.ConfigurationError
		gatewayErr *payment.GatewayError
	)
	switch {
	case errors.Is(err, payment.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Status: "not_found"})
	case errors.Is(err, payment.ErrInvalidEmail), errors.Is(err, payment.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cfgErr):
		s.logger.Error("payment gateway misconfigured", "field", cfgErr.Field)
		writeError(w, http.StatusServiceUnavailable, cfgErr.Error())
	case errors.As(err, &gatewayErr):
		s.logger.Error("payment gateway failed", "op", gatewayErr.Op, "error", gatewayErr.Err)
		writeError(w, http.StatusBadGateway, gatewayErr.Error())
	default:
		s.logger.Error("payment request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
