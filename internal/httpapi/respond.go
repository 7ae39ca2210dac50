package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/forum"
)

type messageResponse struct {
	Message string `json:"message"`
}

// mapError picks the status and client message for err. Only invalid input
// echoes the underlying detail; everything else gets a fixed message.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, forum.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, forum.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, forum.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, forum.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, forum.ErrConflict):
		return http.StatusConflict, "already exists"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}
	writeMessage(w, status, msg)
}

// writeView renders a read-side projection with a weak ETag over its body.
// A matching If-None-Match short-circuits to 304.
func writeView(w http.ResponseWriter, r *http.Request, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	etag := fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(buf.Bytes()))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag || "W/"+candidate == etag {
			return true
		}
	}
	return false
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", forum.ErrInvalidInput, err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q is not an id", forum.ErrInvalidInput, name, raw)
	}
	return id, nil
}
