package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// isMsgpack reports whether a Content-Type or Accept value names msgpack.
func isMsgpack(header string) bool {
	for _, part := range strings.Split(header, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mt == contentTypeMsgpack || mt == "application/x-msgpack" {
			return true
		}
	}
	return false
}

// decodeBody reads the request body in the format named by Content-Type.
// JSON is assumed when the header is missing.
func decodeBody(r *http.Request, v any) error {
	if isMsgpack(r.Header.Get("Content-Type")) {
		if err := msgpack.NewDecoder(r.Body).Decode(v); err != nil {
			return fmt.Errorf("invalid msgpack: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// respond writes v in the format the client asked for via Accept, falling
// back to the request's own Content-Type and then JSON.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if isMsgpack(r.Header.Get("Accept")) ||
		(r.Header.Get("Accept") == "" && isMsgpack(r.Header.Get("Content-Type"))) {
		writeMsgpack(w, status, v)
		return
	}
	writeJSON(w, status, v)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respond(w, r, status, errorResponse{Error: msg})
}

type errorResponse struct {
	Error string `json:"error" msgpack:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsgpack(w http.ResponseWriter, status int, v any) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "encode msgpack: " + err.Error()})
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
