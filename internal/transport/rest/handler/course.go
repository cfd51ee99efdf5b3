package handler

import (
	"net/http"

	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/service"
	"narsus/internal/transport/rest/middleware"
)

// CourseHandler handles course endpoints
type CourseHandler struct {
	courseSvc *service.CourseService
	log       *zap.Logger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courseSvc *service.CourseService, log *zap.Logger) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc, log: log}
}

// Create handles POST /api/v1/courses
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CourseCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	course, err := h.courseSvc.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// List handles GET /api/v1/courses
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courseSvc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(courses))
}

// Get handles GET /api/v1/courses/{id}
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	course, err := h.courseSvc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// Update handles PUT /api/v1/courses/{id}
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.CourseUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	course, err := h.courseSvc.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// Delete handles DELETE /api/v1/courses/{id}
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.courseSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
