package worker

import "github.com/book-expert/events"

// DocumentUploadedEvent announces a new object in the document bucket. Each
// event drives one independent pipeline run.
type DocumentUploadedEvent struct {
	Header events.EventHeader `json:"header"`
	Bucket string             `json:"bucket"`
	Key    string             `json:"key"`
}

// StatusRequest is a read-only query for the readiness of a document run. Key
// is the raw input object key; Base optionally overrides candidate derivation;
// Debug includes the probed prefixes in the reply.
type StatusRequest struct {
	Key   string `json:"key"`
	Base  string `json:"base,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

// SpeechRequest asks for one-shot ad hoc synthesis of a single text payload,
// outside the document pipeline.
type SpeechRequest struct {
	Header  events.EventHeader `json:"header"`
	Text    string             `json:"text"`
	VoiceID string             `json:"voiceId,omitempty"`
	Rate    string             `json:"rate,omitempty"`
	Pitch   string             `json:"pitch,omitempty"`
	Engine  string             `json:"engine,omitempty"`
}

// SpeechResponse is the reply to a successful SpeechRequest.
type SpeechResponse struct {
	URL     string `json:"url"`
	Key     string `json:"key"`
	VoiceID string `json:"voiceId"`
	Region  string `json:"region"`
}

// ErrorResponse carries a client-facing rejection message.
type ErrorResponse struct {
	Message string `json:"message"`
}
