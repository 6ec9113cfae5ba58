package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
)

var enrollmentCols = []string{
	"id", "student_id", "class_id", "enrolled_by", "enrolled_at", "is_active", "enrollment_status",
	"status_changed_at", "status_changed_by", "status_change_reason", "reactivated_at",
}

func TestEnrollmentRepository_HasActiveEnrollmentInYear(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).WithArgs(4, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewEnrollmentRepository(db).HasActiveEnrollmentInYear(context.Background(), 4, 2)
	if err != nil || !ok {
		t.Errorf("HasActiveEnrollmentInYear() = %v, %v; want true, nil", ok, err)
	}
	checkExpectations(t, mock)
}

func TestEnrollmentRepository_FindEnrollment(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND class_id = $2")).WithArgs(4, 9).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))

	_, err := NewEnrollmentRepository(db).FindEnrollment(context.Background(), 4, 9)
	if err != enrollment.ErrNotFound {
		t.Errorf("FindEnrollment() error = %v, want %v", err, enrollment.ErrNotFound)
	}
	checkExpectations(t, mock)
}

func TestEnrollmentRepository_ReactivateEnrollment(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	enrolledAt := time.Date(2023, 6, 3, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE student_class_enrollments")).WithArgs(11, 5, at).
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow(11, 4, 9, 5, enrolledAt, true, "active", at, 5, nil, at))

	e, err := NewEnrollmentRepository(db).ReactivateEnrollment(context.Background(), 11, 5, at)
	if err != nil {
		t.Fatalf("ReactivateEnrollment() error = %v", err)
	}
	if e.ID != 11 || !e.IsActive || e.Status != enrollment.StatusActive {
		t.Errorf("ReactivateEnrollment() = %+v", e)
	}
	if e.Lifecycle() != enrollment.LifecycleReactivated {
		t.Errorf("Lifecycle() = %v, want %v", e.Lifecycle(), enrollment.LifecycleReactivated)
	}
	checkExpectations(t, mock)
}

func TestEnrollmentRepository_QueryEnrollments(t *testing.T) {
	db, mock := newMock(t)
	q := "SELECT " + enrollmentColumns + " FROM student_class_enrollments WHERE student_id = $1 AND class_id IN (SELECT id FROM classes WHERE school_year_id = $2) AND is_active ORDER BY id"
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs(4, 2).
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow(1, 4, 9, nil, time.Now(), true, "active", nil, nil, nil, nil))

	list, err := NewEnrollmentRepository(db).QueryEnrollments(context.Background(), enrollment.QueryFilter{StudentID: 4, SchoolYearID: 2, ActiveOnly: true})
	if err != nil {
		t.Fatalf("QueryEnrollments() error = %v", err)
	}
	if len(list) != 1 || list[0].EnrolledBy.Valid {
		t.Errorf("QueryEnrollments() = %+v", list)
	}
	checkExpectations(t, mock)
}
