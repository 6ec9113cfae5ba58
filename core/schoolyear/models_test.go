package schoolyear

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "2024-2025", want: true},
		{name: "1900-1901", want: true},
		{name: "2100-2101", want: true},
		{name: "2024-2026"},
		{name: "2025-2024"},
		{name: "1899-1900"},
		{name: "2101-2102"},
		{name: "2024/2025"},
		{name: "24-25"},
		{name: " 2024-2025"},
		{name: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidName(tt.name); got != tt.want {
				t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewSchoolYear_Validate(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	tests := []struct {
		name    string
		ny      NewSchoolYear
		wantErr bool
	}{
		{name: "valid", ny: NewSchoolYear{Name: "2024-2025"}},
		{name: "trimmed", ny: NewSchoolYear{Name: "  2024-2025 "}},
		{name: "with dates", ny: NewSchoolYear{Name: "2024-2025", StartDate: &start, EndDate: &end}},
		{name: "dates reversed", ny: NewSchoolYear{Name: "2024-2025", StartDate: &end, EndDate: &start}, wantErr: true},
		{name: "bad name", ny: NewSchoolYear{Name: "2024"}, wantErr: true},
		{name: "empty", ny: NewSchoolYear{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ny.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.ny.Name != "2024-2025" {
				t.Errorf("Validate() name = %q, want cleaned name", tt.ny.Name)
			}
		})
	}

	ny := NewSchoolYear{Name: "2024-2026"}
	if err := ny.Validate(); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvalidFormat)
	}
}
