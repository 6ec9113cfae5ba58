package boiledrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
)

const (
	eligibleStudentsQuery = `
SELECT s.id AS student_id, s.lrn, s.first_name, s.last_name, s.parent_phone, s.parent_email,
	c.id AS source_class_id, c.grade_level AS source_grade_level, c.section AS source_section
FROM students s
JOIN student_class_enrollments e ON e.student_id = s.id AND e.is_active
JOIN classes c ON c.id = e.class_id AND c.school_year_id = $1
WHERE s.is_active
	AND NOT EXISTS (
		SELECT 1 FROM student_class_enrollments te
		JOIN classes tc ON tc.id = te.class_id
		WHERE te.student_id = s.id AND te.is_active AND tc.school_year_id = $2)
ORDER BY c.grade_level, c.section, s.last_name, s.first_name, s.id`

	placedStudentsQuery = `
SELECT s.id AS student_id, s.lrn, s.first_name, s.last_name,
	sc.grade_level AS source_grade_level, sc.section AS source_section,
	tc.id AS target_class_id, tc.grade_level AS target_grade_level, tc.section AS target_section
FROM student_class_enrollments te
JOIN classes tc ON tc.id = te.class_id AND tc.school_year_id = $2
JOIN students s ON s.id = te.student_id
LEFT JOIN LATERAL (
	SELECT c.grade_level, c.section
	FROM student_class_enrollments se
	JOIN classes c ON c.id = se.class_id
	WHERE se.student_id = s.id AND c.school_year_id = $1
	ORDER BY se.is_active DESC, se.id DESC
	LIMIT 1) sc ON TRUE
WHERE te.is_active
ORDER BY tc.grade_level, tc.section, s.last_name, s.first_name, s.id`

	enrollmentCountsQuery = `
SELECT c.id AS class_id, COUNT(e.id) AS enrolled
FROM classes c
LEFT JOIN student_class_enrollments e ON e.class_id = c.id AND e.is_active
WHERE c.school_year_id = $1
GROUP BY c.id`

	classRosterQuery = `
SELECT e.id AS enrollment_id, s.id AS student_id, s.lrn, s.first_name, s.last_name
FROM student_class_enrollments e
JOIN students s ON s.id = e.student_id
WHERE e.class_id = $1 AND e.is_active
ORDER BY s.last_name, s.first_name, s.id`
)

type (
	eligibleRow struct {
		StudentID        int         `boil:"student_id"`
		LRN              string      `boil:"lrn"`
		FirstName        string      `boil:"first_name"`
		LastName         string      `boil:"last_name"`
		ParentPhone      null.String `boil:"parent_phone"`
		ParentEmail      null.String `boil:"parent_email"`
		SourceClassID    int         `boil:"source_class_id"`
		SourceGradeLevel string      `boil:"source_grade_level"`
		SourceSection    string      `boil:"source_section"`
	}

	placedRow struct {
		StudentID        int         `boil:"student_id"`
		LRN              string      `boil:"lrn"`
		FirstName        string      `boil:"first_name"`
		LastName         string      `boil:"last_name"`
		SourceGradeLevel null.String `boil:"source_grade_level"`
		SourceSection    null.String `boil:"source_section"`
		TargetClassID    int         `boil:"target_class_id"`
		TargetGradeLevel string      `boil:"target_grade_level"`
		TargetSection    string      `boil:"target_section"`
	}

	countRow struct {
		ClassID  int `boil:"class_id"`
		Enrolled int `boil:"enrolled"`
	}

	rosterRow struct {
		EnrollmentID int    `boil:"enrollment_id"`
		StudentID    int    `boil:"student_id"`
		LRN          string `boil:"lrn"`
		FirstName    string `boil:"first_name"`
		LastName     string `boil:"last_name"`
	}
)

type placementRepository struct {
	exec core.DBExecutor
}

var _ placement.Repository = (*placementRepository)(nil) // interface compliance check

func NewPlacementRepository(exec core.DBExecutor) *placementRepository {
	return &placementRepository{exec: exec}
}

func (repo placementRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo placementRepository) QueryEligibleStudents(ctx context.Context, sourceYearID, targetYearID int, exec ...core.DBExecutor) ([]placement.EligibleStudent, error) {
	var rows []eligibleRow
	if err := queries.Raw(eligibleStudentsQuery, sourceYearID, targetYearID).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying eligible students")
	}
	students := make([]placement.EligibleStudent, 0, len(rows))
	for _, r := range rows {
		students = append(students, placement.EligibleStudent{
			StudentID:        r.StudentID,
			LRN:              r.LRN,
			FirstName:        r.FirstName,
			LastName:         r.LastName,
			ParentPhone:      r.ParentPhone,
			ParentEmail:      r.ParentEmail,
			SourceClassID:    r.SourceClassID,
			SourceGradeLevel: r.SourceGradeLevel,
			SourceSection:    r.SourceSection,
		})
	}
	return students, nil
}

func (repo placementRepository) QueryPlacedStudents(ctx context.Context, sourceYearID, targetYearID int, exec ...core.DBExecutor) ([]placement.PlacedStudent, error) {
	var rows []placedRow
	if err := queries.Raw(placedStudentsQuery, sourceYearID, targetYearID).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying placed students")
	}
	students := make([]placement.PlacedStudent, 0, len(rows))
	for _, r := range rows {
		students = append(students, placement.PlacedStudent(r))
	}
	return students, nil
}

func (repo placementRepository) CountActiveEnrollmentsByClass(ctx context.Context, yearID int, exec ...core.DBExecutor) (map[int]int, error) {
	var rows []countRow
	if err := queries.Raw(enrollmentCountsQuery, yearID).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "counting enrollments by class")
	}
	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		counts[r.ClassID] = r.Enrolled
	}
	return counts, nil
}

func (repo placementRepository) QueryClassRoster(ctx context.Context, classID int, exec ...core.DBExecutor) ([]placement.RosterEntry, error) {
	var rows []rosterRow
	if err := queries.Raw(classRosterQuery, classID).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying class roster")
	}
	roster := make([]placement.RosterEntry, 0, len(rows))
	for _, r := range rows {
		roster = append(roster, placement.RosterEntry(r))
	}
	return roster, nil
}
