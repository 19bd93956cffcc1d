package htmx

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	json "github.com/goccy/go-json"
)

const (
	// ResponseHeaderKey is the HTMX request header used to detect partial updates.
	ResponseHeaderKey = "HX-Request"
	// CurrentURLHeader carries the browser location of the page issuing the request.
	CurrentURLHeader = "HX-Current-URL"
	// TriggerHeader asks HTMX to dispatch client-side events after the swap.
	TriggerHeader = "HX-Trigger"
)

// Trigger is one client-side event and its detail payload.
type Trigger struct {
	Name   string
	Detail map[string]any
}

// IsHTMXRequest reports whether the request was initiated by HTMX.
func IsHTMXRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(ResponseHeaderKey), "true")
}

// CurrentURL returns the HX-Current-URL header, if any.
func CurrentURL(r *http.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Header.Get(CurrentURLHeader))
}

// RenderFragment renders component fully before writing, so a render failure
// turns into a 500 instead of a truncated swap.
func RenderFragment(w http.ResponseWriter, r *http.Request, component templ.Component, status int) {
	if component == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var body bytes.Buffer
	if err := component.Render(r.Context(), &body); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body.Bytes())
}

// SetTriggers encodes triggers into the HX-Trigger header as a JSON object.
// Nothing is written when triggers is empty.
func SetTriggers(w http.ResponseWriter, triggers []Trigger) error {
	if w == nil || len(triggers) == 0 {
		return nil
	}
	payload := make(map[string]any, len(triggers))
	for _, trigger := range triggers {
		name := strings.TrimSpace(trigger.Name)
		if name == "" {
			continue
		}
		if trigger.Detail == nil {
			payload[name] = map[string]any{}
			continue
		}
		payload[name] = trigger.Detail
	}
	if len(payload) == 0 {
		return nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.Header().Set(TriggerHeader, string(encoded))
	return nil
}
