package prescription

import (
	"strconv"
	"strings"

	"github.com/claude/trainplan/internal/models"
)

// FormatTarget renders an item's workload target for display.
// The first present field wins, in this order: reps, reps_each_side,
// hold_seconds, hold_seconds_each_side. A field is present when set and
// non-zero. Items with no target render as "0".
func FormatTarget(item models.PrescriptionItem) string {
	switch {
	case present(item.Reps):
		return strconv.Itoa(*item.Reps)
	case present(item.RepsEachSide):
		return strconv.Itoa(*item.RepsEachSide) + " (each)"
	case present(item.HoldSeconds):
		return strconv.Itoa(*item.HoldSeconds) + "s"
	case present(item.HoldSecondsEachSide):
		return strconv.Itoa(*item.HoldSecondsEachSide) + "s (each)"
	default:
		return "0"
	}
}

// FormatLoad renders the optional supplementary targets, e.g. "+10kg 400m".
// It returns "" when neither weight nor distance is set.
func FormatLoad(item models.PrescriptionItem) string {
	var parts []string
	if item.WeightKg != nil && *item.WeightKg != 0 {
		w := strconv.FormatFloat(*item.WeightKg, 'f', -1, 64)
		if *item.WeightKg > 0 {
			w = "+" + w
		}
		parts = append(parts, w+"kg")
	}
	if item.DistanceM != nil && *item.DistanceM != 0 {
		parts = append(parts, strconv.FormatFloat(*item.DistanceM, 'f', -1, 64)+"m")
	}
	return strings.Join(parts, " ")
}

func present(p *int) bool {
	return p != nil && *p != 0
}
