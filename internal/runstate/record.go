package runstate

import "time"

// Status is a run's position in the pipeline lifecycle.
type Status string

const (
	StatusPending           Status = "pending"
	StatusRunning           Status = "running"
	StatusResearchCompleted Status = "research_completed"
	StatusAnalysisCompleted Status = "analysis_completed"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

var statusRank = map[Status]int{
	StatusPending:           0,
	StatusRunning:           1,
	StatusResearchCompleted: 2,
	StatusAnalysisCompleted: 3,
	StatusCompleted:         4,
}

// Terminal reports whether no further status may follow s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a write moving a run from one status to
// another is legal. Statuses only move forward; failed is reachable from any
// non-terminal status; writing the current status again is a no-op merge.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fromRank, ok1 := statusRank[from]
	toRank, ok2 := statusRank[to]
	return ok1 && ok2 && toRank > fromRank
}

// Record is the persisted snapshot of one run. Fields are populated
// progressively as stages complete and are never cleared.
type Record struct {
	RunID      string                 `json:"run_id"`
	Topic      string                 `json:"topic"`
	Status     Status                 `json:"status"`
	Timestamps map[string]string      `json:"timestamps"`
	Research   string                 `json:"research,omitempty"`
	Analysis   string                 `json:"analysis,omitempty"`
	Final      map[string]interface{} `json:"final,omitempty"`
	FinalRaw   string                 `json:"final_raw,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Patch carries the fields one write wants to lay on top of the stored
// record. Zero-valued fields are left untouched by Merge; Status must be set.
type Patch struct {
	Status   Status
	Topic    string
	Research string
	Analysis string
	Final    map[string]interface{}
	FinalRaw string
	Error    string
}

// Merge overlays p onto old and stamps the first time each status is
// reached. The result is always a field-wise superset of old.
func Merge(old Record, p Patch, now time.Time) Record {
	merged := old
	merged.Status = p.Status
	if p.Topic != "" {
		merged.Topic = p.Topic
	}
	if p.Research != "" {
		merged.Research = p.Research
	}
	if p.Analysis != "" {
		merged.Analysis = p.Analysis
	}
	if p.Final != nil {
		merged.Final = p.Final
	}
	if p.FinalRaw != "" {
		merged.FinalRaw = p.FinalRaw
	}
	if p.Error != "" {
		merged.Error = p.Error
	}

	if merged.Timestamps == nil {
		merged.Timestamps = map[string]string{}
	} else {
		ts := make(map[string]string, len(merged.Timestamps)+1)
		for k, v := range merged.Timestamps {
			ts[k] = v
		}
		merged.Timestamps = ts
	}
	if _, ok := merged.Timestamps[string(merged.Status)]; !ok {
		merged.Timestamps[string(merged.Status)] = now.UTC().Format(time.RFC3339)
	}
	return merged
}
