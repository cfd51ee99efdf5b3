package handler

import (
	"net/http"

	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/service"
	"narsus/internal/transport/rest/middleware"
)

// AttemptHandler handles survey attempt endpoints
type AttemptHandler struct {
	attemptSvc *service.AttemptService
	log        *zap.Logger
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attemptSvc *service.AttemptService, log *zap.Logger) *AttemptHandler {
	return &AttemptHandler{attemptSvc: attemptSvc, log: log}
}

// Start handles POST /api/v1/survey-attempts/start
func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	attempt, err := h.attemptSvc.Start(r.Context(), middleware.GetUserID(r.Context()), req.SurveyID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

// SaveAnswers handles POST /api/v1/survey-attempts/{id}/answers
func (h *AttemptHandler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.SaveAnswersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	answers, err := h.attemptSvc.SaveAnswers(r.Context(), middleware.GetUserID(r.Context()), id, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

// Submit handles POST /api/v1/survey-attempts/{id}/submit
func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	attempt, err := h.attemptSvc.Submit(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// Results handles GET /api/v1/survey-attempts/{id}/results
func (h *AttemptHandler) Results(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.attemptSvc.Results(r.Context(), viewer(r), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListMine handles GET /api/v1/survey-attempts/my?skip=&limit=&include_answers=
func (h *AttemptHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, ok := pageQuery(w, r)
	if !ok {
		return
	}
	includeAnswers, ok := boolQuery(w, r, "include_answers")
	if !ok {
		return
	}
	attempts, err := h.attemptSvc.ListMine(r.Context(), middleware.GetUserID(r.Context()), page, includeAnswers)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(attempts))
}

// ListBySurvey handles GET /api/v1/survey-attempts/by-survey/{survey_id}
func (h *AttemptHandler) ListBySurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := pathID(w, r, "survey_id")
	if !ok {
		return
	}
	page, ok := pageQuery(w, r)
	if !ok {
		return
	}
	includeAnswers, ok := boolQuery(w, r, "include_answers")
	if !ok {
		return
	}
	attempts, err := h.attemptSvc.ListBySurvey(r.Context(), middleware.GetUserID(r.Context()), surveyID, page, includeAnswers)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(attempts))
}
