package prescription

import (
	"testing"

	"github.com/claude/trainplan/internal/models"
)

// TestFormatTarget verifies each target kind and the fixed precedence order
// when malformed items carry more than one field.
func TestFormatTarget(t *testing.T) {
	ip := models.IntPtr
	tests := []struct {
		name string
		item models.PrescriptionItem
		want string
	}{
		{"reps", models.PrescriptionItem{Reps: ip(12)}, "12"},
		{"reps each side", models.PrescriptionItem{RepsEachSide: ip(8)}, "8 (each)"},
		{"hold", models.PrescriptionItem{HoldSeconds: ip(45)}, "45s"},
		{"hold each side", models.PrescriptionItem{HoldSecondsEachSide: ip(20)}, "20s (each)"},
		{"empty", models.PrescriptionItem{}, "0"},
		{"reps beats hold", models.PrescriptionItem{Reps: ip(10), HoldSeconds: ip(30)}, "10"},
		{"reps each side beats hold", models.PrescriptionItem{RepsEachSide: ip(6), HoldSeconds: ip(30)}, "6 (each)"},
		{"hold beats hold each side", models.PrescriptionItem{HoldSeconds: ip(30), HoldSecondsEachSide: ip(15)}, "30s"},
		{"zero reps falls through", models.PrescriptionItem{Reps: ip(0), HoldSeconds: ip(30)}, "30s"},
		{"only zero", models.PrescriptionItem{Reps: ip(0)}, "0"},
		{"negative reps", models.PrescriptionItem{Reps: ip(-2)}, "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTarget(tt.item); got != tt.want {
				t.Errorf("FormatTarget = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFormatLoad verifies the optional weight/distance suffix.
func TestFormatLoad(t *testing.T) {
	fp := models.FloatPtr
	tests := []struct {
		item models.PrescriptionItem
		want string
	}{
		{models.PrescriptionItem{}, ""},
		{models.PrescriptionItem{WeightKg: fp(10)}, "+10kg"},
		{models.PrescriptionItem{WeightKg: fp(-12.5)}, "-12.5kg"},
		{models.PrescriptionItem{DistanceM: fp(400)}, "400m"},
		{models.PrescriptionItem{WeightKg: fp(2.5), DistanceM: fp(20)}, "+2.5kg 20m"},
		{models.PrescriptionItem{WeightKg: fp(0)}, ""},
	}
	for _, tt := range tests {
		if got := FormatLoad(tt.item); got != tt.want {
			t.Errorf("FormatLoad(%+v) = %q, want %q", tt.item, got, tt.want)
		}
	}
}
