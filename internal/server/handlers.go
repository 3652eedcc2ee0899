package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/payment"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

//nolint:tagliatelle
type healthResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	DemoMode bool           `json:"demo_mode"`
	Coverage coverageDetail `json:"coverage"`
}

//nolint:tagliatelle
type coverageDetail struct {
	TotalAutomated string `json:"total_automated"`
	ManualRequired string `json:"manual_required"`
}

type scanRequest struct {
	URL      string `json:"url"`
	Standard string `json:"standard"`
	Locale   string `json:"locale"`
}

type createPaymentRequest struct {
	scanRequest
	Email string `json:"email"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	coverage := float64(pipeline.AutomatedCoverage)
	automated := int(coverage*100 + 0.5)
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Version:  s.version,
		DemoMode: s.payments.DemoMode(),
		Coverage: coverageDetail{
			TotalAutomated: fmt.Sprintf("%d%%", automated),
			ManualRequired: fmt.Sprintf("%d%%", 100-automated),
		},
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decode(w, r, &req) {
		return
	}
	standard, locale, ok := parseOptions(w, req)
	if !ok {
		return
	}

	report, err := s.scanner.Assemble(r.Context(), req.URL, standard, locale)
	if err != nil {
		s.writeScanError(w, err, locale)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if s.paymentErr != nil {
		s.writePaymentError(w, s.paymentErr)
		return
	}
	var req createPaymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	standard, locale, ok := parseOptions(w, req.scanRequest)
	if !ok {
		return
	}

	res, err := s.payments.Create(r.Context(), payment.CreateRequest{
		URL:      req.URL,
		Email:    req.Email,
		Standard: standard,
		Locale:   locale,
	})
	if err != nil {
		s.writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	if s.paymentErr != nil {
		s.writePaymentError(w, s.paymentErr)
		return
	}
	res, err := s.payments.Verify(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleWebhook always answers 200 once the body parses, so that the
// gateway does not retry notifications for unknown or unpaid sessions.
// While the gateway is misconfigured notifications are ignored.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.paymentErr != nil {
		s.logger.Warn("payment notification ignored", "error", s.paymentErr)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true, "completed": false})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxRequestBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	n, err := payment.ParseNotification(r.Header.Get("Content-Type"), body)
	if err != nil {
		s.logger.Warn("unparseable payment notification", "error", err)
		writeError(w, http.StatusBadRequest, "invalid notification")
		return
	}
	completed := s.payments.HandleNotification(r.Context(), n)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true, "completed": completed})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.fulfiller.Redeem(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		var failure *pipeline.ScanFailure
		switch {
		case errors.Is(err, payment.ErrNotFound):
			writeError(w, http.StatusNotFound, "report link is invalid or has expired")
		case errors.As(err, &failure):
			s.writeScanError(w, err, model.LocaleHE)
		default:
			s.logger.Error("failed to prepare report", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Bytes); err != nil {
		s.logger.Warn("failed to write report", "error", err)
	}
}

// decode reads a JSON body into v. It writes a 400 response and returns
// false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// parseOptions applies the IL_5568 and Hebrew defaults.
func parseOptions(w http.ResponseWriter, req scanRequest) (model.Standard, model.Locale, bool) {
	standard, locale := model.StandardIL5568, model.LocaleHE
	if req.Standard != "" {
		std, err := model.ParseStandard(req.Standard)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return "", "", false
		}
		standard = std
	}
	if req.Locale != "" {
		l, err := model.ParseLocale(req.Locale)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return "", "", false
		}
		locale = l
	}
	return standard, locale, true
}
