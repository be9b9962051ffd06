package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/example/tutoring-agency/internal/application"
	"github.com/example/tutoring-agency/internal/timeslot"
)

type paymentService interface {
	CalculatePayments(ctx context.Context, query application.PaymentQuery) (map[string]application.TutorPayment, error)
	TutorHistory(ctx context.Context, tutorID string, dateRange application.DateRange) (application.TutorPayment, error)
}

type tutorService interface {
	GetTutor(ctx context.Context, id string) (application.Tutor, error)
	UpdateHourlyRate(ctx context.Context, id string, rate float64) (application.Tutor, error)
}

type PaymentHandler struct {
	payments  paymentService
	tutors    tutorService
	responder responder
}

func NewPaymentHandler(payments paymentService, tutors tutorService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, tutors: tutors, responder: newResponder(logger)}
}

// Calculate aggregates completed sessions in the requested period into
// per tutor payment records. Amounts use each tutor's current rate.
func (h *PaymentHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.payments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query, err := buildPaymentQuery(r.URL.Query())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payments, err := h.payments.CalculatePayments(r.Context(), query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPaymentListDTO(payments))
}

// TutorHistory returns one tutor's completed sessions and totals over
// the requested period, zero valued when nothing completed.
func (h *PaymentHandler) TutorHistory(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.payments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tutorID, ok := TutorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(tutorID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTutorID)
		return
	}

	query, err := buildPaymentQuery(r.URL.Query())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payment, err := h.payments.TutorHistory(r.Context(), tutorID, query.Range)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPaymentDTO(payment))
}

// UpdateRate changes a tutor's hourly rate. The new rate reprices every
// later payment calculation, including ones over past periods.
func (h *PaymentHandler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tutors == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tutorID, ok := TutorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(tutorID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTutorID)
		return
	}

	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	tutor, err := h.tutors.UpdateHourlyRate(r.Context(), tutorID, req.HourlyRate)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.responder.logger, "PaymentHandler", "update_rate").InfoContext(
		r.Context(), "rate changed", "tutor_id", tutor.ID, "hourly_rate", tutor.HourlyRate)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, tutorDTO{
		ID:         tutor.ID,
		Name:       tutor.Name,
		Email:      tutor.Email,
		HourlyRate: round2(tutor.HourlyRate),
	})
}

func buildPaymentQuery(values url.Values) (application.PaymentQuery, error) {
	vErr := &application.ValidationError{}
	query := application.PaymentQuery{TutorID: strings.TrimSpace(values.Get("tutorId"))}

	startDate := strings.TrimSpace(values.Get("startDate"))
	if startDate == "" {
		vErr.Add("start_date", "start date is required")
	} else if from, err := timeslot.ParseDate(startDate); err != nil {
		vErr.Add("start_date", "date must be YYYY-MM-DD")
	} else {
		query.Range.From = from
	}

	endDate := strings.TrimSpace(values.Get("endDate"))
	if endDate == "" {
		vErr.Add("end_date", "end date is required")
	} else if to, err := timeslot.ParseDate(endDate); err != nil {
		vErr.Add("end_date", "date must be YYYY-MM-DD")
	} else {
		query.Range.To = to
	}

	if vErr.HasErrors() {
		return application.PaymentQuery{}, vErr
	}
	return query, nil
}

type rateRequest struct {
	HourlyRate float64 `json:"hourlyRate"`
}

type tutorDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	HourlyRate float64 `json:"hourlyRate"`
}

type paymentDTO struct {
	TutorID      string       `json:"tutorId"`
	TutorName    string       `json:"tutorName"`
	HourlyRate   float64      `json:"hourlyRate"`
	TotalHours   float64      `json:"totalHours"`
	TotalPayment float64      `json:"totalPayment"`
	SessionCount int          `json:"sessionCount"`
	Sessions     []sessionDTO `json:"sessions"`
}

type paymentListDTO struct {
	Payments []paymentDTO `json:"payments"`
}

func toPaymentDTO(payment application.TutorPayment) paymentDTO {
	return paymentDTO{
		TutorID:      payment.Tutor.ID,
		TutorName:    payment.Tutor.Name,
		HourlyRate:   round2(payment.Tutor.HourlyRate),
		TotalHours:   round2(payment.TotalHours),
		TotalPayment: round2(payment.TotalPayment),
		SessionCount: len(payment.Sessions),
		Sessions:     toSessionDTOs(payment.Sessions),
	}
}

func toPaymentListDTO(payments map[string]application.TutorPayment) paymentListDTO {
	dtos := make([]paymentDTO, 0, len(payments))
	for _, payment := range payments {
		dtos = append(dtos, toPaymentDTO(payment))
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].TutorID < dtos[j].TutorID })
	return paymentListDTO{Payments: dtos}
}

// round2 rounds to cents at the wire boundary only; internal math keeps
// full precision.
func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
