package model

import "time"

// Stash is one of the two temporary shelves saved annotations live on.
type Stash string

const (
	StashLeft  Stash = "left"
	StashRight Stash = "right"
)

func (s Stash) Valid() bool { return s == StashLeft || s == StashRight }

// SavePayload is the JSON document stored for a saved annotation: the
// annotation plus the texts it was made against.
type SavePayload struct {
	Annotation  Annotation `json:"error"`
	InputEn     string     `json:"inputEn"`
	CorrectedEn string     `json:"correctedEn"`
	InputZh     string     `json:"inputZh"`
	SavedAt     time.Time  `json:"savedAt"`
}

type SavedAnnotation struct {
	UUID      string    `json:"uuid"`
	CreatedAt time.Time `json:"created_at"`
	Stash     Stash     `json:"stash"`
	JSON      string    `json:"json"`
}
