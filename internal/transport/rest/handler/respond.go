package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/service"
	"narsus/internal/transport/rest/middleware"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusOf maps service errors onto HTTP status codes
func statusOf(err error) int {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, service.ErrInvalidID),
		errors.Is(err, service.ErrNotSubmitted):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Internal errors are
// logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := service.ParseID(name, mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalID parses an id query parameter. An absent parameter is the zero id.
func optionalID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return primitive.NilObjectID, true
	}
	id, err := service.ParseID(name, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return primitive.NilObjectID, false
	}
	return id, true
}

func boolQuery(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be true or false", name))
		return false, false
	}
	return v, true
}

func pageQuery(w http.ResponseWriter, r *http.Request) (model.Page, bool) {
	var page model.Page
	for name, dst := range map[string]*int64{"skip": &page.Skip, "limit": &page.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative integer", name))
			return page, false
		}
		*dst = v
	}
	return page, true
}

// nonNil keeps empty listings encoded as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func viewer(r *http.Request) service.Viewer {
	return service.Viewer{
		ID:   middleware.GetUserID(r.Context()),
		Role: middleware.GetRole(r.Context()),
	}
}
