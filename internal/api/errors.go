package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
)

// errorBody is the JSON body of every error response.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes err as a structured error response. Domain errors keep
// their status, code and message. Anything else is logged in full and
// answered with the generic system message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindSystem {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    "SystemError",
			Message: apperr.SystemMessage,
		})
		return
	}

	if e.Kind == apperr.KindUpstream {
		s.logger.Warn("upstream dependency failed",
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
	}

	writeJSON(w, e.Status(), errorBody{
		Code:    e.Code(),
		Message: e.Message,
		Errors:  e.Fields,
	})
}

// decodeJSON reads the request body into v, which must be a pointer to a
// struct. Syntactically broken JSON is a BadRequest; a well-formed body with
// a value of the wrong type is a field-level validation error.
func decodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.BadRequest("Request body too large")
		}
		return apperr.BadRequest("Invalid JSON body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return apperr.BadRequest("Request body is required")
	}

	err = json.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return apperr.BadRequest("Invalid JSON body")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperr.Field(field, "must be "+describeType(typeErr.Type))
	default:
		// A field's own UnmarshalJSON rejected the value (decimal voltages).
		return apperr.Field(rejectedField(data, v), "must be a valid number")
	}
}

// rejectedField finds the top-level key whose value fails to decode into
// v's type on its own.
func rejectedField(data []byte, v any) string {
	var raw map[string]json.RawMessage
	if json.Unmarshal(data, &raw) != nil {
		return "body"
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	typ := reflect.TypeOf(v).Elem()
	for _, k := range keys {
		single, err := json.Marshal(map[string]json.RawMessage{k: raw[k]})
		if err != nil {
			continue
		}
		if json.Unmarshal(single, reflect.New(typ).Interface()) != nil {
			return k
		}
	}
	return "body"
}

func describeType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "a list"
	default:
		return "an object"
	}
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Field("id", "must be a positive integer")
	}
	return id, nil
}
