package calendar

import "steppingStonesAPI/internal/step"

// Heatmap maps "2006-01-02" to the number of distinct steps logged
// that day, for the contribution-graph view.
type Heatmap map[string]int

// TimelineDay groups a day's logs for the linear history view.
type TimelineDay struct {
	Date string      `json:"date"`
	Logs []*step.Log `json:"logs"`
}

type TimelineResponse struct {
	Days []*TimelineDay `json:"days"`
}
