package api

import "encoding/json"

// Envelope is the single frame type exchanged over the websocket.
// Requests from clients carry a correlation ID; the server answers with an
// envelope holding the same event name and ID. Broadcasts carry no ID.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals v into a frame. Marshaling errors are returned so
// callers can surface them instead of sending a half-built frame.
func NewEnvelope(event, id string, v any) (Envelope, error) {
	env := Envelope{Event: event, ID: id}
	if v == nil {
		return env, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = data
	return env, nil
}
