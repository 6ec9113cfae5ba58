package class

import "testing"

func TestNewCapacity(t *testing.T) {
	cls := Class{ID: 1, GradeLevel: "Grade 7", Section: "A", MaxCapacity: 50}

	tests := []struct {
		name          string
		current       int
		additional    int
		wantAvailable int
		wantAt        bool
		wantExceeds   bool
		wantMessage   string
	}{
		{name: "empty", current: 0, additional: 1, wantAvailable: 50, wantMessage: "Grade 7 - A has 50 available slots"},
		{name: "below threshold", current: 44, additional: 1, wantAvailable: 6, wantMessage: "Grade 7 - A has 6 available slots"},
		{name: "at threshold", current: 45, additional: 1, wantAvailable: 5, wantAt: true, wantMessage: "Grade 7 - A is at 90% of its capacity (45/50)"},
		{name: "fills up", current: 49, additional: 1, wantAvailable: 1, wantAt: true, wantMessage: "Grade 7 - A is at 90% of its capacity (49/50)"},
		{name: "exceeds", current: 50, additional: 1, wantAvailable: 0, wantAt: true, wantExceeds: true, wantMessage: "Grade 7 - A would exceed its capacity (51/50)"},
		{name: "bulk exceeds", current: 10, additional: 41, wantAvailable: 40, wantExceeds: true, wantMessage: "Grade 7 - A would exceed its capacity (51/50)"},
		{name: "already over", current: 55, additional: 0, wantAvailable: 0, wantAt: true, wantExceeds: true, wantMessage: "Grade 7 - A would exceed its capacity (55/50)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCapacity(cls, tt.current, tt.additional)
			if got.Projected != tt.current+tt.additional {
				t.Errorf("Projected = %d, want %d", got.Projected, tt.current+tt.additional)
			}
			if got.AvailableSlots != tt.wantAvailable {
				t.Errorf("AvailableSlots = %d, want %d", got.AvailableSlots, tt.wantAvailable)
			}
			if got.AtThreshold != tt.wantAt {
				t.Errorf("AtThreshold = %v, want %v", got.AtThreshold, tt.wantAt)
			}
			if got.ExceedsCapacity != tt.wantExceeds {
				t.Errorf("ExceedsCapacity = %v, want %v", got.ExceedsCapacity, tt.wantExceeds)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
			}
			if warn := got.Warnings(); (len(warn) > 0) != (tt.wantAt || tt.wantExceeds) {
				t.Errorf("Warnings() = %v", warn)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		count, max int
		want       CapacityStatus
	}{
		{0, 50, CapacityNormal},
		{44, 50, CapacityNormal},
		{45, 50, CapacityWarning},
		{49, 50, CapacityWarning},
		{50, 50, CapacityFull},
		{51, 50, CapacityFull},
		{0, 0, CapacityFull},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.count, tt.max); got != tt.want {
			t.Errorf("StatusFor(%d, %d) = %v, want %v", tt.count, tt.max, got, tt.want)
		}
	}
}

func TestNewClass_Validate(t *testing.T) {
	nc := NewClass{GradeLevel: " Grade 7 ", Section: "A ", SchoolYearID: 1}
	if err := nc.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if nc.GradeLevel != "Grade 7" || nc.Section != "A" {
		t.Errorf("Validate() did not clean names: %q %q", nc.GradeLevel, nc.Section)
	}
	if nc.MaxCapacity != DefaultMaxCapacity {
		t.Errorf("MaxCapacity = %d, want %d", nc.MaxCapacity, DefaultMaxCapacity)
	}

	for _, bad := range []NewClass{
		{Section: "A", SchoolYearID: 1},
		{GradeLevel: "Grade 7", Section: "   ", SchoolYearID: 1},
		{GradeLevel: "Grade 7", Section: "A"},
		{GradeLevel: "Grade 7", Section: "A", SchoolYearID: 1, MaxCapacity: -1},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%+v) error = nil, want error", bad)
		}
	}
}
