package model

import "encoding/json"

// Range is a half-open [Lower, Upper) interval of Unicode code point offsets.
type Range struct {
	Lower int
	Upper int
}

func (r Range) Len() int { return r.Upper - r.Lower }

// Within reports whether r is a non-empty range inside a text of n code points.
func (r Range) Within(n int) bool {
	return r.Lower >= 0 && r.Lower < r.Upper && r.Upper <= n
}

// Wire form is {start, length}, as the correction backend sends it.
type rangeDTO struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeDTO{Start: r.Lower, Length: r.Upper - r.Lower})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var dto rangeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	r.Lower = dto.Start
	r.Upper = dto.Start + dto.Length
	return nil
}

// Highlight is an annotation projected onto one concrete text.
type Highlight struct {
	ID       ID       `json:"id"`
	Range    Range    `json:"range"`
	Category Category `json:"type"`
}
