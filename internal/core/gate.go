package core

type GateReason string

const (
	GateOK       GateReason = "ok"
	GateEmpty    GateReason = "empty"
	GateLowScore GateReason = "low_score"
)

// GateDecision is the accept/reject verdict over a retrieved chunk set.
type GateDecision struct {
	OK     bool
	Reason GateReason
}

// Decide gates retrieval results on the best similarity score. An empty
// set and a best score below minScore are both rejections, reported with
// distinct reasons.
func Decide(chunks []RetrievedChunk, minScore float64) GateDecision {
	if len(chunks) == 0 {
		return GateDecision{OK: false, Reason: GateEmpty}
	}
	best := chunks[0].Score
	for _, c := range chunks[1:] {
		if c.Score > best {
			best = c.Score
		}
	}
	if best < minScore {
		return GateDecision{OK: false, Reason: GateLowScore}
	}
	return GateDecision{OK: true, Reason: GateOK}
}
