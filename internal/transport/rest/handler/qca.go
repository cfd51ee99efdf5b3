package handler

import (
	"net/http"

	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/service"
)

// QCAHandler handles question-course association endpoints
type QCAHandler struct {
	qcaSvc *service.QCAService
	log    *zap.Logger
}

// NewQCAHandler creates a new association handler
func NewQCAHandler(qcaSvc *service.QCAService, log *zap.Logger) *QCAHandler {
	return &QCAHandler{qcaSvc: qcaSvc, log: log}
}

// Create handles POST /api/v1/question-course-associations
func (h *QCAHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.QCACreate
	if !decodeJSON(w, r, &req) {
		return
	}
	qca, err := h.qcaSvc.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, qca)
}

// List handles GET /api/v1/question-course-associations?question_id=&course_id=
func (h *QCAHandler) List(w http.ResponseWriter, r *http.Request) {
	questionID, ok := optionalID(w, r, "question_id")
	if !ok {
		return
	}
	courseID, ok := optionalID(w, r, "course_id")
	if !ok {
		return
	}
	qcas, err := h.qcaSvc.List(r.Context(), model.QCAFilter{QuestionID: questionID, CourseID: courseID})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(qcas))
}

// Get handles GET /api/v1/question-course-associations/{id}
func (h *QCAHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	qca, err := h.qcaSvc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, qca)
}

// Update handles PUT /api/v1/question-course-associations/{id}
func (h *QCAHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.QCAUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	qca, err := h.qcaSvc.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, qca)
}

// Delete handles DELETE /api/v1/question-course-associations/{id}
func (h *QCAHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.qcaSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
