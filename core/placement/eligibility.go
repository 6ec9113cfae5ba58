package placement

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

type (
	// EligibleStudent is an active student enrolled in a source-year class with no active
	// enrollment anywhere in the target year.
	EligibleStudent struct {
		StudentID        int         `json:"student_id"`
		LRN              string      `json:"lrn"`
		FirstName        string      `json:"first_name"`
		LastName         string      `json:"last_name"`
		ParentPhone      null.String `json:"parent_phone"`
		ParentEmail      null.String `json:"parent_email"`
		SourceClassID    int         `json:"source_class_id"`
		SourceGradeLevel string      `json:"source_grade_level"`
		SourceSection    string      `json:"source_section"`
		SuggestedGrade   string      `json:"suggested_grade"`
		PendingClassID   null.Int    `json:"pending_class_id"`
	}

	// PlacedStudent has an active enrollment in the target year. The source class is
	// the student's enrollment in the source year, active or not, when there is one.
	PlacedStudent struct {
		StudentID        int         `json:"student_id"`
		LRN              string      `json:"lrn"`
		FirstName        string      `json:"first_name"`
		LastName         string      `json:"last_name"`
		SourceGradeLevel null.String `json:"source_grade_level"`
		SourceSection    null.String `json:"source_section"`
		TargetClassID    int         `json:"target_class_id"`
		TargetGradeLevel string      `json:"target_grade_level"`
		TargetSection    string      `json:"target_section"`
	}

	RosterEntry struct {
		EnrollmentID int    `json:"enrollment_id"`
		StudentID    int    `json:"student_id"`
		LRN          string `json:"lrn"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
	}

	// Repository holds the reporting queries placement runs against the enrollment store.
	Repository interface {
		QueryEligibleStudents(ctx context.Context, sourceYearID, targetYearID int, exec ...core.DBExecutor) ([]EligibleStudent, error)
		QueryPlacedStudents(ctx context.Context, sourceYearID, targetYearID int, exec ...core.DBExecutor) ([]PlacedStudent, error)
		// CountActiveEnrollmentsByClass maps class id to active enrollment count for the classes of yearID.
		CountActiveEnrollmentsByClass(ctx context.Context, yearID int, exec ...core.DBExecutor) (map[int]int, error)
		QueryClassRoster(ctx context.Context, classID int, exec ...core.DBExecutor) ([]RosterEntry, error)
	}
)

func (es EligibleStudent) FullName() string {
	return student.FullName(es.FirstName, es.LastName)
}

func (es EligibleStudent) SourceClass() string {
	return es.SourceGradeLevel + " - " + es.SourceSection
}

func (ps PlacedStudent) FullName() string {
	return student.FullName(ps.FirstName, ps.LastName)
}

func (ps PlacedStudent) SourceClass() string {
	if !ps.SourceGradeLevel.Valid {
		return ""
	}
	return ps.SourceGradeLevel.String + " - " + ps.SourceSection.String
}

func (ps PlacedStudent) TargetClass() string {
	return ps.TargetGradeLevel + " - " + ps.TargetSection
}

func (re RosterEntry) FullName() string {
	return student.FullName(re.FirstName, re.LastName)
}

// gradeRx takes the first number after a "Grade" prefix: "Grade 6", "Grade-6", "Grade 6 (STE)".
var gradeRx = regexp.MustCompile(`(?i)^grade\b\D*(\d+)`)

// SuggestedGrade proposes the grade level following current. There is no ceiling; input that
// cannot be parsed is returned unchanged (the student repeats).
func SuggestedGrade(current string) string {
	trimmed := strings.TrimSpace(current)
	switch strings.ToLower(trimmed) {
	case "kindergarten", "k":
		return "Grade 1"
	}
	m := gradeRx.FindStringSubmatch(trimmed)
	if m == nil {
		return current
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return current
	}
	return "Grade " + strconv.Itoa(n+1)
}

// FilterStudents keeps students whose source class matches gradeLevel and section exactly.
// Empty filters match everything.
func FilterStudents(list []EligibleStudent, gradeLevel, section string) []EligibleStudent {
	if gradeLevel == "" && section == "" {
		return list
	}
	out := make([]EligibleStudent, 0, len(list))
	for _, es := range list {
		if gradeLevel != "" && es.SourceGradeLevel != gradeLevel {
			continue
		}
		if section != "" && es.SourceSection != section {
			continue
		}
		out = append(out, es)
	}
	return out
}
