package spin

import (
	"fmt"
	"math"
)

// Segment is one slice of the wheel.
type Segment struct {
	Points      int64   `json:"points"`
	Probability float64 `json:"probability"` // Percent.
	IsJackpot   bool    `json:"is_jackpot"`
}

// Table is the production wheel.
var Table = []Segment{
	{Points: 5, Probability: 30},
	{Points: 10, Probability: 30},
	{Points: 20, Probability: 25},
	{Points: 25, Probability: 13},
	{Points: 50, Probability: 2, IsJackpot: true},
}

func init() {
	if errCheck := CheckTable(Table); errCheck != nil {
		panic(errCheck)
	}
}

// CheckTable verifies that a table is non-empty, has no negative weights and sums to 100.
func CheckTable(table []Segment) error {
	if len(table) == 0 {
		return fmt.Errorf("spin: empty table")
	}
	sum := 0.0
	for i, seg := range table {
		if seg.Probability < 0 {
			return fmt.Errorf("spin: segment %d has negative probability", i)
		}
		if seg.Points <= 0 {
			return fmt.Errorf("spin: segment %d must award points", i)
		}
		sum += seg.Probability
	}
	if math.Abs(sum-100) > 1e-9 {
		return fmt.Errorf("spin: probabilities sum to %v, want 100", sum)
	}
	return nil
}

// Draw picks the segment for a roll in [0,100). It walks the cumulative bounds
// and returns the first segment whose bound is at least roll, or the first
// segment when rounding leaves roll past every bound.
func Draw(table []Segment, roll float64) Segment {
	cumulative := 0.0
	for _, seg := range table {
		cumulative += seg.Probability
		if cumulative >= roll {
			return seg
		}
	}
	return table[0]
}
