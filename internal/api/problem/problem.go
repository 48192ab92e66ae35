package problem

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	contentType = "application/problem+json"
	traceHeader = "X-Trace-ID"
	baseTypeURL = "https://errors.invest-ledger.dev/"
)

// Details is an RFC 7807 problem document. Field names the offending request
// field for validation failures.
type Details struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
	Field    string `json:"field,omitempty"`
}

// Type expands a slug like "ledger/insufficient-funds" to its type URI.
func Type(slug string) string {
	if slug == "" || slug == "about:blank" || strings.HasPrefix(slug, "http") {
		return slug
	}
	return baseTypeURL + slug
}

// New fills Title, Instance and TraceID from the status and request.
func New(r *http.Request, status int, problemType, detail string) Details {
	d := Details{
		Type:   Type(problemType),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	if d.Type == "" {
		d.Type = "about:blank"
	}
	if r != nil {
		d.Instance = r.URL.Path
		d.TraceID = r.Header.Get(traceHeader)
	}
	return d
}

// Send writes d. The trace id falls back to the one already set on the response.
func (d Details) Send(w http.ResponseWriter) {
	if d.TraceID == "" {
		d.TraceID = w.Header().Get(traceHeader)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}

// Write sends a problem with an optional custom title.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	d := New(r, status, problemType, detail)
	if title != "" {
		d.Title = title
	}
	d.Send(w)
}
