package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"marquee/lists"
)

const maxBodyBytes = 1 << 20

var digitsRe = regexp.MustCompile(`^\d+$`)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into v. An empty body is an error.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// parseID accepts a positive decimal id with optional surrounding whitespace
func parseID(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if !digitsRe.MatchString(s) || len(s) > 20 {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeListError maps a lists error onto its status code. Upstream failures
// are logged and reported with the generic fallback message.
func writeListError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch lists.KindOf(err) {
	case lists.KindValidation:
		var verr *lists.ValidationError
		errors.As(err, &verr)
		writeError(w, http.StatusBadRequest, verr.Message)
	case lists.KindUnauthorized:
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case lists.KindNotFound:
		writeError(w, http.StatusNotFound, "Item not found")
	case lists.KindConflict:
		writeError(w, http.StatusConflict, "Item already in watchlist")
	default:
		log.Error(fallback, "err", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
