package supervisor

// Envelope is the uniform reply to every routed message. Exactly one of
// Response or Error is set. Agent and Intent are filled only when a handler
// produced the response. Data carries the handler's structured payload for
// callers that render it themselves.
type Envelope struct {
	Response string `json:"response,omitempty"`
	Agent    string `json:"agent,omitempty"`
	Intent   string `json:"intent,omitempty"`
	Error    string `json:"error,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// OK reports whether the envelope carries a response rather than an error.
func (e Envelope) OK() bool { return e.Error == "" }

func errorEnvelope(msg string) Envelope {
	return Envelope{Error: msg}
}
