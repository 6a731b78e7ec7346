package types

// Event is the canonical payload emitted by the settlement engine for item
// lifecycle transitions (listing, purchase). Attributes are flat string pairs
// so downstream consumers can index them without schema knowledge.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Clone returns an independent copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return &Event{Type: e.Type, Attributes: attrs}
}
