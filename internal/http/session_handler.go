package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/tutoring-agency/internal/application"
	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/timeslot"
)

type sessionService interface {
	CreateSession(ctx context.Context, input application.SessionInput) (application.Session, error)
	CreateRecurringSeries(ctx context.Context, input application.SessionInput, rule application.RecurrenceInput) ([]application.Session, error)
	GetSession(ctx context.Context, id string) (application.Session, error)
	ListSessions(ctx context.Context, query application.SessionQuery) ([]application.Session, error)
	UpdateSessionStatus(ctx context.Context, change application.StatusChange) (application.Session, error)
	CancelSession(ctx context.Context, sessionID, actor, reason string) (application.Session, error)
	RescheduleSession(ctx context.Context, input application.RescheduleInput) (application.Session, error)
}

type SessionHandler struct {
	service   sessionService
	responder responder
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger)}
}

// Create books a single session, or a recurring series when the request
// carries a recurrence rule. A series is persisted all or nothing.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if req.Recurrence != nil {
		sessions, err := h.service.CreateRecurringSeries(r.Context(), req.toInput(), req.Recurrence.toInput())
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusCreated, seriesResponse{
			Sessions: toSessionDTOs(sessions),
			Count:    len(sessions),
		})
		return
	}

	session, err := h.service.CreateSession(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSessionDTO(session))
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), buildSessionQuery(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTOs(sessions))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// UpdateStatus drives the session through its lifecycle. Cancellations
// must carry a reason; completions may carry a rating and feedback.
func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.UpdateSessionStatus(r.Context(), application.StatusChange{
		SessionID: sessionID,
		Target:    lifecycle.Status(strings.TrimSpace(req.Status)),
		Actor:     strings.TrimSpace(req.Actor),
		Reason:    req.Reason,
		Rating:    req.Rating,
		Feedback:  req.Feedback,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.responder.logger, "SessionHandler", "update_status").InfoContext(
		r.Context(), "status changed", "session_id", session.ID, "status", string(session.Status))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

func (h *SessionHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.RescheduleSession(r.Context(), application.RescheduleInput{
		SessionID: sessionID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// Cancel transitions a session into Cancelled. The body is optional for
// routing purposes but the service rejects a missing reason.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.CancelSession(r.Context(), sessionID, strings.TrimSpace(req.Actor), req.Reason)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

func buildSessionQuery(values url.Values) application.SessionQuery {
	return application.SessionQuery{
		TutorID:   strings.TrimSpace(values.Get("tutorId")),
		StudentID: strings.TrimSpace(values.Get("studentId")),
		Status:    lifecycle.Status(strings.TrimSpace(values.Get("status"))),
		DateFrom:  strings.TrimSpace(values.Get("startDate")),
		DateTo:    strings.TrimSpace(values.Get("endDate")),
	}
}

type sessionRequest struct {
	StudentID  string             `json:"studentId"`
	TutorID    string             `json:"tutorId"`
	Subject    string             `json:"subject"`
	Date       string             `json:"date"`
	StartTime  string             `json:"startTime"`
	EndTime    string             `json:"endTime"`
	Notes      string             `json:"notes"`
	Recurrence *recurrenceRequest `json:"recurrence"`
}

func (r sessionRequest) toInput() application.SessionInput {
	return application.SessionInput{
		StudentID: strings.TrimSpace(r.StudentID),
		TutorID:   strings.TrimSpace(r.TutorID),
		Subject:   r.Subject,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Notes:     r.Notes,
	}
}

type recurrenceRequest struct {
	Frequency  string `json:"frequency"`
	EndDate    string `json:"endDate"`
	DaysOfWeek []int  `json:"daysOfWeek"`
}

func (r recurrenceRequest) toInput() application.RecurrenceInput {
	return application.RecurrenceInput{
		Frequency:  r.Frequency,
		EndDate:    r.EndDate,
		DaysOfWeek: r.DaysOfWeek,
	}
}

type statusRequest struct {
	Status   string `json:"status"`
	Actor    string `json:"actor"`
	Reason   string `json:"reason"`
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type cancelRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type sessionDTO struct {
	ID            string           `json:"id"`
	StudentID     string           `json:"studentId"`
	TutorID       string           `json:"tutorId"`
	Subject       string           `json:"subject"`
	Date          string           `json:"date"`
	StartTime     string           `json:"startTime"`
	EndTime       string           `json:"endTime"`
	DurationHours float64          `json:"durationHours"`
	Status        string           `json:"status"`
	Notes         string           `json:"notes,omitempty"`
	IsRecurring   bool             `json:"isRecurring"`
	Recurrence    *recurrenceDTO   `json:"recurrence,omitempty"`
	Cancellation  *cancellationDTO `json:"cancellation,omitempty"`
	CompletedAt   *string          `json:"completedAt,omitempty"`
	Rating        *int             `json:"rating,omitempty"`
	Feedback      string           `json:"feedback,omitempty"`
	CreatedAt     string           `json:"createdAt"`
	UpdatedAt     string           `json:"updatedAt"`
}

type recurrenceDTO struct {
	Frequency  string `json:"frequency"`
	EndDate    string `json:"endDate"`
	DaysOfWeek []int  `json:"daysOfWeek"`
}

type cancellationDTO struct {
	Reason      string `json:"reason"`
	CancelledAt string `json:"cancelledAt"`
	CancelledBy string `json:"cancelledBy,omitempty"`
}

type seriesResponse struct {
	Sessions []sessionDTO `json:"sessions"`
	Count    int          `json:"count"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:            session.ID,
		StudentID:     session.StudentID,
		TutorID:       session.TutorID,
		Subject:       session.Subject,
		Date:          timeslot.FormatDate(session.Date),
		StartTime:     session.Interval.Start(),
		EndTime:       session.Interval.End(),
		DurationHours: session.DurationHours(),
		Status:        string(session.Status),
		Notes:         session.Notes,
		IsRecurring:   session.IsRecurring,
		Rating:        session.Rating,
		Feedback:      session.Feedback,
		CreatedAt:     session.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     session.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if session.Pattern != nil {
		days := make([]int, 0, len(session.Pattern.Weekdays))
		for _, day := range session.Pattern.Weekdays {
			days = append(days, int(day))
		}
		dto.Recurrence = &recurrenceDTO{
			Frequency:  session.Pattern.Frequency.String(),
			EndDate:    timeslot.FormatDate(session.Pattern.EndDate),
			DaysOfWeek: days,
		}
	}
	if session.Cancellation != nil {
		dto.Cancellation = &cancellationDTO{
			Reason:      session.Cancellation.Reason,
			CancelledAt: session.Cancellation.At.UTC().Format(time.RFC3339),
			CancelledBy: session.Cancellation.By,
		}
	}
	if session.CompletedAt != nil {
		completedAt := session.CompletedAt.UTC().Format(time.RFC3339)
		dto.CompletedAt = &completedAt
	}
	return dto
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	dtos := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, toSessionDTO(session))
	}
	return dtos
}
