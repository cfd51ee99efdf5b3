package handler

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/service"
	"narsus/internal/transport/rest/middleware"
)

// SurveyHandler handles survey endpoints
type SurveyHandler struct {
	surveySvc *service.SurveyService
	log       *zap.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService, log *zap.Logger) *SurveyHandler {
	return &SurveyHandler{surveySvc: surveySvc, log: log}
}

// Create handles POST /api/v1/surveys
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.SurveyCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	survey, err := h.surveySvc.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, survey)
}

// List handles GET /api/v1/surveys?published_only=
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	publishedOnly, ok := boolQuery(w, r, "published_only")
	if !ok {
		return
	}
	surveys, err := h.surveySvc.List(r.Context(), viewer(r), publishedOnly)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(surveys))
}

// Get handles GET /api/v1/surveys/{id}?include_questions=
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	includeQuestions, ok := boolQuery(w, r, "include_questions")
	if !ok {
		return
	}
	survey, err := h.surveySvc.Get(r.Context(), viewer(r), id, includeQuestions)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if !includeQuestions {
		writeJSON(w, http.StatusOK, survey.Survey)
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

// Update handles PUT /api/v1/surveys/{id}
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.SurveyUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	survey, err := h.surveySvc.Update(r.Context(), middleware.GetUserID(r.Context()), id, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

// Publish handles POST /api/v1/surveys/{id}/publish
func (h *SurveyHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, h.surveySvc.Publish)
}

// Unpublish handles POST /api/v1/surveys/{id}/unpublish
func (h *SurveyHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, h.surveySvc.Unpublish)
}

func (h *SurveyHandler) setPublished(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, teacherID, id primitive.ObjectID) (*model.Survey, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	survey, err := op(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

// Delete handles DELETE /api/v1/surveys/{id}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.surveySvc.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
