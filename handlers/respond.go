package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"payflow/i18n"
	"payflow/logger"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": msg} with msg translated from the catalog key.
func writeError(w http.ResponseWriter, r *http.Request, status int, key string) {
	writeJSON(w, status, map[string]string{"error": i18n.T(i18n.DetectLanguage(r), key)})
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("request failed",
		logger.FieldMethod, r.Method,
		logger.FieldPath, r.URL.Path,
		logger.FieldError, err,
	)
	writeError(w, r, http.StatusInternalServerError, "InternalError")
}

func success(w http.ResponseWriter, status int, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// pathID returns the integer {id} URL parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// input is a request body, from either a JSON object or form values. Values
// are kept raw so numbers and numeric strings can both be accepted.
type input map[string]json.RawMessage

func decodeInput(r *http.Request) (input, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		in := input{}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				raw, _ := json.Marshal(values[0])
				in[key] = raw
			}
		}
		return in, nil
	}

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(http.MaxBytesReader(nil, r.Body, maxBodyBytes)); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if len(bytes.TrimSpace(raw.Bytes())) == 0 {
		return input{}, nil
	}
	var in input
	if err := json.Unmarshal(raw.Bytes(), &in); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if in == nil {
		in = input{}
	}
	return in, nil
}

// has reports whether key is present and not null.
func (in input) has(key string) bool {
	raw, ok := in[key]
	return ok && string(bytes.TrimSpace(raw)) != "null"
}

// str returns a string value trimmed of spaces. Numbers and booleans are
// returned as written; missing and null values give "".
func (in input) str(key string) string {
	return strings.TrimSpace(in.raw(key))
}

// raw is str without trimming.
func (in input) raw(key string) string {
	if !in.has(key) {
		return ""
	}
	v := bytes.TrimSpace(in[key])
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		return ""
	}
	if len(v) > 0 && (v[0] == '{' || v[0] == '[') {
		return ""
	}
	return string(v)
}

// number parses a number or numeric string.
func (in input) number(key string) (float64, bool) {
	if !in.has(key) {
		return 0, false
	}
	f, err := strconv.ParseFloat(in.str(key), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numberOr returns the parsed float, or def when missing or malformed.
func (in input) numberOr(key string, def float64) float64 {
	if f, ok := in.number(key); ok {
		return f
	}
	return def
}

// integer parses an integer. JSON numbers with a fraction are truncated; strings
// must hold an integer.
func (in input) integer(key string) (int64, bool) {
	if !in.has(key) {
		return 0, false
	}
	v := bytes.TrimSpace(in[key])
	s := in.str(key)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if len(v) > 0 && v[0] != '"' {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) &&
			f >= math.MinInt64 && f <= math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}

// objects decodes key as an array of objects. ok is false when the value is
// not an array; err is set when an element is not an object.
func (in input) objects(key string) (items []input, ok bool, err error) {
	if !in.has(key) {
		return nil, false, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(in[key], &raws); err != nil {
		return nil, false, nil
	}
	for _, raw := range raws {
		var item input
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			return nil, true, errInvalidBody
		}
		items = append(items, item)
	}
	return items, true, nil
}
