package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
)

var classCols = []string{"id", "grade_level", "section", "teacher_id", "school_year_id", "max_capacity", "is_active", "created_at"}

func TestClassRepository_QueryClasses(t *testing.T) {
	db, mock := newMock(t)
	q := "SELECT " + classColumns + " FROM classes WHERE school_year_id = $1 AND section = $2 AND is_active ORDER BY grade_level DESC"
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs(2, "A").
		WillReturnRows(sqlmock.NewRows(classCols).
			AddRow(5, "Grade 8", "A", nil, 2, 50, true, time.Now()).
			AddRow(4, "Grade 7", "A", 3, 2, 40, true, time.Now()))

	classes, err := NewClassRepository(db).QueryClasses(
		context.Background(),
		class.QueryFilter{SchoolYearID: 2, Section: "A", ActiveOnly: true},
		[]core.DBOrdering{{Field: "grade_level"}, {Field: "password"}},
	)
	if err != nil {
		t.Fatalf("QueryClasses() error = %v", err)
	}
	if len(classes) != 2 || classes[1].TeacherID.Int != 3 || classes[0].TeacherID.Valid {
		t.Errorf("QueryClasses() = %+v", classes)
	}
	checkExpectations(t, mock)
}

func TestClassRepository_UpdateClass(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET")).WithArgs(9, "Grade 7", "B", nil, 45, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewClassRepository(db).UpdateClass(context.Background(), class.Class{ID: 9, GradeLevel: "Grade 7", Section: "B", MaxCapacity: 45})
	if err != class.ErrNotFound {
		t.Errorf("UpdateClass() error = %v, want %v", err, class.ErrNotFound)
	}
	checkExpectations(t, mock)
}

func TestStudentRepository_QueryStudentsByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	list, err := repo.QueryStudentsByID(context.Background(), nil)
	if err != nil || len(list) != 0 {
		t.Fatalf("QueryStudentsByID(nil) = %v, %v", list, err)
	}

	q := "SELECT " + studentColumns + " FROM students WHERE id IN ($1, $2, $3) ORDER BY last_name, first_name, id"
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs(3, 1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lrn", "first_name", "last_name", "parent_phone", "parent_email", "is_active"}).
			AddRow(1, "100000000001", "Ana", "Diaz", nil, "parent@test.ph", true))

	list, err = repo.QueryStudentsByID(context.Background(), []int{3, 1, 2})
	if err != nil {
		t.Fatalf("QueryStudentsByID() error = %v", err)
	}
	if len(list) != 1 || list[0].ParentEmail.String != "parent@test.ph" || list[0].ParentPhone.Valid {
		t.Errorf("QueryStudentsByID() = %+v", list)
	}
	checkExpectations(t, mock)
}
