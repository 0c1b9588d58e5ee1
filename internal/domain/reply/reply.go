package reply

import "math"

// Analysis is the emotional profile of a single piece of conversation text.
type Analysis struct {
	Emotion         string   `json:"emotion"`
	Tone            string   `json:"tone"`
	Mood            string   `json:"mood"`
	UnderlyingNeeds []string `json:"underlying_needs"`
	SentimentScore  float64  `json:"sentiment_score"`
}

// Normalize clamps the sentiment score into [-1, 1] and guarantees a non-nil needs list.
func (a Analysis) Normalize() Analysis {
	if math.IsNaN(a.SentimentScore) {
		a.SentimentScore = 0
	}
	a.SentimentScore = math.Max(-1, math.Min(1, a.SentimentScore))
	if a.UnderlyingNeeds == nil {
		a.UnderlyingNeeds = []string{}
	}
	return a
}

type Style struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Option is one suggested reply. Options are ordered most-recommended first and
// never persisted.
type Option struct {
	Content    string  `json:"content"`
	Style      Style   `json:"style"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}
