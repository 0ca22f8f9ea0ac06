package scoring

import "time"

// Score is one scoring run over a member's submitted answers. Rows are
// append-only; the latest ScoredAt is authoritative.
type Score struct {
	ID       string
	UserID   string
	Value    float64
	Grade    string
	Badge    string
	Method   string
	ScoredAt time.Time
}

// Method names recorded on score rows.
const (
	MethodSimpleAggregate  = "simple_aggregate"
	MethodWeightedCategory = "weighted_category"
)
