package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/database/inmem"
)

// Store bundles an in-memory database with its repositories.
type Store struct {
	DB          *inmemdb.DB
	Years       schoolyear.Repository
	Classes     class.Repository
	Students    student.Repository
	Enrollments enrollment.Repository
	Reports     placement.Repository
}

func NewStore() *Store {
	db := inmemdb.Open()
	return &Store{
		DB:          db,
		Years:       inmemdb.NewSchoolYearRepository(db),
		Classes:     inmemdb.NewClassRepository(db),
		Students:    inmemdb.NewStudentRepository(db),
		Enrollments: inmemdb.NewEnrollmentRepository(db),
		Reports:     inmemdb.NewPlacementRepository(db),
	}
}

func (s *Store) Repositories() placement.Repositories {
	return placement.Repositories{
		Students:    s.Students,
		Classes:     s.Classes,
		Years:       s.Years,
		Enrollments: s.Enrollments,
		Reports:     s.Reports,
	}
}

func (s *Store) CreateYear(t *testing.T, name string, active, locked bool) schoolyear.SchoolYear {
	t.Helper()
	year, err := s.Years.CreateYear(context.Background(), schoolyear.SchoolYear{
		Name:      name,
		IsActive:  active,
		IsLocked:  locked,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateYear() failed: %v", err)
	}
	return year
}

func (s *Store) CreateClass(t *testing.T, yearID int, gradeLevel, section string, maxCapacity int) class.Class {
	t.Helper()
	if maxCapacity == 0 {
		maxCapacity = class.DefaultMaxCapacity
	}
	cls, err := s.Classes.CreateClass(context.Background(), class.Class{
		GradeLevel:   gradeLevel,
		Section:      section,
		SchoolYearID: yearID,
		MaxCapacity:  maxCapacity,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func (s *Store) CreateStudent(t *testing.T, lrn, firstName, lastName string, active bool, parentEmail ...string) student.Student {
	t.Helper()
	stu := student.Student{LRN: lrn, FirstName: firstName, LastName: lastName, IsActive: active}
	if len(parentEmail) > 0 {
		stu.ParentEmail = null.StringFrom(parentEmail[0])
	}
	stu, err := s.Students.CreateStudent(context.Background(), stu)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

// SetStudentActive flips a student's active flag behind the services' back.
func (s *Store) SetStudentActive(t *testing.T, id int, active bool) {
	t.Helper()
	repo, ok := s.Students.(interface{ SetActive(int, bool) error })
	if !ok {
		t.Fatalf("SetStudentActive(): %T cannot toggle students", s.Students)
	}
	if err := repo.SetActive(id, active); err != nil {
		t.Fatalf("SetStudentActive() failed: %v", err)
	}
}

// Enroll writes an enrollment row directly, bypassing every business rule.
func (s *Store) Enroll(t *testing.T, studentID, classID int, active bool) enrollment.Enrollment {
	t.Helper()
	status := enrollment.StatusActive
	if !active {
		status = enrollment.StatusWithdrawn
	}
	e, err := s.Enrollments.CreateEnrollment(context.Background(), enrollment.Enrollment{
		StudentID:  studentID,
		ClassID:    classID,
		EnrolledAt: time.Now().UTC(),
		IsActive:   active,
		Status:     status,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}

// ActiveEnrollmentsInYear counts the student's active enrollments among the classes of yearID.
func (s *Store) ActiveEnrollmentsInYear(t *testing.T, studentID, yearID int) int {
	t.Helper()
	list, err := s.Enrollments.QueryEnrollments(context.Background(), enrollment.QueryFilter{
		StudentID:    studentID,
		SchoolYearID: yearID,
		ActiveOnly:   true,
	})
	if err != nil {
		t.Fatalf("QueryEnrollments() failed: %v", err)
	}
	return len(list)
}

// Logger records messages and discards them.
type Logger struct {
	Errors []string
	Warns  []string
}

func (l *Logger) Debug(string, ...interface{})       {}
func (l *Logger) Info(string, ...interface{})        {}
func (l *Logger) Warn(msg string, _ ...interface{})  { l.Warns = append(l.Warns, msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.Errors = append(l.Errors, msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.Errors = append(l.Errors, msg) }
