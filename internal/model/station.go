package model

// Station is a physical drop-off location a user delivers sorted waste to.
type Station struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}
