package model

// Prediction is the normalized output of an image classifier: the winning
// label and its confidence in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
