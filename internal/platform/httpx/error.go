package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/requestctx"
)

// Envelope keys owned by WriteError. Details cannot overwrite them.
var reservedKeys = map[string]struct{}{
	"error": {}, "message": {}, "status": {}, "request_id": {}, "trace_id": {}, "visitor_id": {}, "fields": {},
}

// Error is the JSON error body returned to storefront pages. Fields carries per-input validation
// messages keyed by form field name.
type Error struct {
	Code       string
	Message    string
	Status     int
	RetryAfter time.Duration
	Fields     map[string]string
	Details    map[string]any
}

// NewError builds an Error. A zero status becomes 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// NewFieldError builds a 422 invalid_input error listing the rejected form fields.
func NewFieldError(message string, fields map[string]string) Error {
	return NewError("invalid_input", message, http.StatusUnprocessableEntity).WithFields(fields)
}

// WithFields attaches per-field validation messages.
func (e Error) WithFields(fields map[string]string) Error {
	if len(fields) == 0 {
		return e
	}
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = sanitize(v, 256)
	}
	e.Fields = copied
	return e
}

// WithRetryAfter asks the client to retry after d. Only honoured for 429 and 5xx statuses.
func (e Error) WithRetryAfter(d time.Duration) Error {
	e.RetryAfter = d
	return e
}

// WithDetails attaches extra JSON-serialisable metadata. Reserved envelope keys are ignored.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	copied := make(map[string]any, len(details))
	for k, v := range details {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		copied[k] = v
	}
	e.Details = copied
	return e
}

// WriteError writes err as JSON, echoing the request, trace and visitor ids found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}
	if id := sanitize(middleware.GetReqID(ctx), 80); id != "" {
		payload["request_id"] = id
	}
	if id := sanitize(requestctx.TraceID(ctx), 64); id != "" {
		payload["trace_id"] = id
	}
	if id := sanitize(requestctx.VisitorID(ctx), 64); id != "" {
		payload["visitor_id"] = id
	}
	if len(err.Fields) > 0 {
		payload["fields"] = err.Fields
	}
	for k, v := range err.Details {
		payload[k] = v
	}

	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Cache-Control", "no-store")
	if err.RetryAfter > 0 && (status == http.StatusTooManyRequests || status >= 500) {
		secs := int(err.RetryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		header.Set("Retry-After", strconv.Itoa(secs))
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
