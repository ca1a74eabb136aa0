package analysis

// Location is a map position reserved for detected events
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is a detected kill or death. Detection is not implemented yet, so
// analyses always carry empty event lists.
type Event struct {
	Timestamp    float64   `json:"timestamp"`
	Weapon       string    `json:"weapon,omitempty"`
	KillType     string    `json:"kill_type,omitempty"`
	CauseOfDeath string    `json:"cause_of_death,omitempty"`
	Location     *Location `json:"location,omitempty"`
}

// Stats is the statistics record produced by one analysis
type Stats struct {
	Frames        int     `json:"frames"`
	FPS           float64 `json:"fps"`
	AvgBrightness float64 `json:"avg_brightness"`
	Kills         int     `json:"kills"`
	Deaths        int     `json:"deaths"`
	Accuracy      float64 `json:"accuracy"`
	KillEvents    []Event `json:"kill_events"`
	DeathEvents   []Event `json:"death_events"`
}

// NewStats builds a record with zeroed combat placeholders
func NewStats(frames int, fps, avgBrightness float64) *Stats {
	return &Stats{
		Frames:        frames,
		FPS:           fps,
		AvgBrightness: avgBrightness,
		KillEvents:    []Event{},
		DeathEvents:   []Event{},
	}
}
