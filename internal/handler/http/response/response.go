package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    *Meta        `json:"meta,omitempty"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta describes an offset page of a list result.
type Meta struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalItems int64 `json:"total_items"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fallback := Response{
			Success: false,
			Error: &ErrorDetail{
				Code:    "ENCODING_ERROR",
				Message: "Failed to encode response",
			},
		}
		_ = json.NewEncoder(w).Encode(fallback)
	}
}

func writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	writeJSON(w, statusCode, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Success responses
func Success(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMessage(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessWithMeta(w http.ResponseWriter, data interface{}, meta *Meta) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Raw writes payload without the envelope, for OAuth2 clients that expect
// the bare token response.
func Raw(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, statusCode, payload)
}

// Attachment streams a generated file as a download.
func Attachment(w http.ResponseWriter, filename, contentType string, content []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// Error responses
func BadRequest(w http.ResponseWriter, message string, details map[string]string) {
	writeError(w, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func ValidationError(w http.ResponseWriter, details map[string]string) {
	writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", details)
}

func Unprocessable(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusUnprocessableEntity, code, message, nil)
}

func Unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func Forbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func NotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func InternalServerError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, nil)
}

// Conflict reports a state clash. code lets clients tell duplicates apart
// from other conflicts without parsing the message.
func Conflict(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusConflict, code, message, nil)
}
