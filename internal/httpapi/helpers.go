package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"sliceline.app/internal/auth"
	"sliceline.app/internal/pizza"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// pageQuery reads the page/limit/name list parameters. Pages are zero based
// and the name filter supports the `*` wildcard.
func pageQuery(r *http.Request) (page, limit int, name string) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	if page < 0 {
		page = 0
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	name = q.Get("name")
	if name == "" {
		name = "*"
	}
	return page, limit, name
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "auth: invalid input: "))
	case errors.Is(err, auth.ErrAuthentication):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func handlePizzaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pizza.ErrUnknownAdmin):
		email := strings.TrimPrefix(err.Error(), pizza.ErrUnknownAdmin.Error()+": ")
		writeError(w, http.StatusNotFound, "unknown user for franchise admin "+email+" provided")
	case errors.Is(err, pizza.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "pizza: invalid input: "))
	case errors.Is(err, pizza.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
