package server

import (
	"encoding/json"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/service"
)

// ResponseBuilder provides utilities for constructing consistent API responses.
type ResponseBuilder struct{}

// newResponseBuilder creates a new response builder instance.
func newResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

// SessionResponse carries the state of a session after an action.
type SessionResponse struct {
	Success   bool
	SessionID string
	Kind      service.Kind
	Outcome   *service.Outcome
	View      service.View
}

// AcceptedResponse is the payload returned for a queued import.
type AcceptedResponse struct {
	Success   bool
	Message   string
	JobID     string
	SessionID string
	Status    string
	TotalRows int
}

// ErrorResponse standardizes error responses.
type ErrorResponse struct {
	Success bool
	Error   string
	Message string
	Details any
}

// BuildSessionResponse constructs a session response, converting keys to camelCase.
// A nil outcome is left out of the payload.
func (rb *ResponseBuilder) BuildSessionResponse(s *service.Session, outcome *service.Outcome, view service.View) any {
	response := SessionResponse{
		Success:   true,
		SessionID: s.ID,
		Kind:      s.Kind,
		Outcome:   outcome,
		View:      view,
	}
	out := toCamelCaseMap(response).(map[string]any)
	if outcome == nil {
		delete(out, "outcome")
	}
	return out
}

// BuildJobResponse constructs the job status response with all metrics, converting keys to camelCase.
func (rb *ResponseBuilder) BuildJobResponse(job *config.Job) any {
	return toCamelCaseMap(job)
}

// BuildAcceptedResponse constructs an AcceptedResponse for a queued import, converting keys to camelCase.
func (rb *ResponseBuilder) BuildAcceptedResponse(jobID, sessionID string, totalRows int) any {
	response := AcceptedResponse{
		Success:   true,
		Message:   MessageImportQueued,
		JobID:     jobID,
		SessionID: sessionID,
		Status:    StatusPending,
		TotalRows: totalRows,
	}
	return toCamelCaseMap(response)
}

// BuildErrorResponse constructs a standardized error response, converting keys to camelCase.
func (rb *ResponseBuilder) BuildErrorResponse(errorCode, errorMessage string, details any) any {
	response := ErrorResponse{
		Success: false,
		Error:   errorCode,
		Message: errorMessage,
		Details: details,
	}
	return toCamelCaseMap(response)
}

func toCamelCaseMap(data any) any {
	// Values with their own encoding, such as time.Time, are kept as they are.
	if _, ok := data.(json.Marshaler); ok {
		return data
	}

	val := reflect.ValueOf(data)

	// Handle Pointers
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	// Handle Slices/Arrays
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = toCamelCaseMap(val.Index(i).Interface())
		}
		return out
	}

	// Handle Structs
	if val.Kind() == reflect.Struct {
		out := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			// Skip unexported fields and fields hidden from JSON
			if field.PkgPath != "" || field.Tag.Get("json") == "-" {
				continue
			}

			fieldVal := toCamelCaseMap(val.Field(i).Interface())
			out[camelKey(field.Name)] = fieldVal
		}
		return out
	}

	// Return primitives as-is
	return data
}

// camelKey lowers the first letter and keeps common acronyms readable:
// "ID" -> "id", "JobID" -> "jobId", "BackendURL" -> "backendUrl".
func camelKey(key string) string {
	for _, acronym := range []string{"ID", "URL"} {
		if key == acronym {
			return strings.ToLower(acronym)
		}
		if strings.HasSuffix(key, acronym) {
			prefix := key[:len(key)-len(acronym)]
			return lowerFirst(prefix) + acronym[:1] + strings.ToLower(acronym[1:])
		}
	}
	return lowerFirst(key)
}

// lowerFirst lowers the first rune of a string
func lowerFirst(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
