package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// crewIDFromContext extracts crew_id from the verified access token
func crewIDFromContext(r *http.Request) string {
	id, err := jwt.FromContext(r.Context())
	if err != nil {
		return ""
	}
	return id.CrewID
}

// parseFilter turns the query string into a filter over allowed columns.
func parseFilter(w http.ResponseWriter, r *http.Request, allowed query.Columns) (*query.Filter, bool) {
	f, err := query.Parse(r.URL.Query(), allowed)
	if err != nil {
		response.HandleError(w, err)
		return nil, false
	}
	return f, true
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// getBoolQueryParam gets a bool query parameter with a default value
func getBoolQueryParam(r *http.Request, key string, defaultVal bool) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
