package models

// TranscriptPartial is the published payload for an interim hypothesis.
type TranscriptPartial struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// TranscriptFinal is the published payload for a finalized utterance.
type TranscriptFinal struct {
	EventType    string        `json:"eventType"`
	SessionID    string        `json:"sessionId"`
	Timestamp    int64         `json:"timestamp"`
	RecordID     string        `json:"recordId"`
	Text         string        `json:"text"`
	Confidence   *float64      `json:"confidence"`
	Alternatives []Alternative `json:"alternatives"`
}

// RecordEvent is the published payload for record lifecycle changes
// (saved, save_failed, deleted, cleared).
type RecordEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	RecordID  string `json:"recordId,omitempty"`
	RemoteID  string `json:"remoteId,omitempty"`
	Cause     string `json:"cause,omitempty"`
}
