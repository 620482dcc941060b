package model

// BankHint is a practice hint shown to the learner before the attempt.
type BankHint struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

type CorrectionRequest struct {
	Source     string     `json:"zh"`
	Attempt    string     `json:"en"`
	BankItemID string     `json:"bankItemId,omitempty"`
	DeviceID   string     `json:"deviceId,omitempty"`
	Hints      []BankHint `json:"hints,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"` // instructor's free-form note
	Model      string     `json:"model,omitempty"`
}

type CorrectionResult struct {
	Corrected   string       `json:"corrected"`
	Score       int          `json:"score"`
	Annotations []Annotation `json:"errors"`
}

type MergeRequest struct {
	Source      string       `json:"zh"`
	Attempt     string       `json:"en"`
	Corrected   string       `json:"corrected"`
	Annotations []Annotation `json:"errors"`
	Rationale   string       `json:"rationale,omitempty"`
	DeviceID    string       `json:"deviceId,omitempty"`
	Model       string       `json:"model,omitempty"`
}

type MergeResponse struct {
	Annotation Annotation `json:"error"`
}
