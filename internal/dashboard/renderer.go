package dashboard

import (
	"encoding/json"
	"io"
)

// Renderer handles rendering responses to HTTP clients.
type Renderer interface {
	RenderJSON(w io.Writer, v any) error
	RenderHealth(w io.Writer, health HealthReport) error
}

// JSONRenderer implements Renderer for JSON responses.
type JSONRenderer struct{}

// NewJSONRenderer creates a new JSON renderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// RenderJSON writes v as one JSON document. Event records are written as
// received, without HTML escaping.
func (r *JSONRenderer) RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (r *JSONRenderer) RenderHealth(w io.Writer, health HealthReport) error {
	return r.RenderJSON(w, health)
}
