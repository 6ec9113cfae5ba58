package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

var (
	// errors
	ErrNotFound        = errors.New("enrollment not found")
	ErrNotActive       = errors.New("enrollment is not active")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this school year")
	ErrYearLocked      = errors.New("school year is locked")
	ErrClassInactive   = errors.New("class is not active")
	ErrStudentInactive = errors.New("student is not active")
	ErrInvalidStatus   = errors.New("invalid enrollment status")
	ErrDifferentYear   = errors.New("classes belong to different school years")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) (Enrollment, error)
		// FindEnrollment returns the (student, class) row whatever its state.
		FindEnrollment(ctx context.Context, studentID, classID int, exec ...core.DBExecutor) (Enrollment, error)
		HasActiveEnrollmentInYear(ctx context.Context, studentID, yearID int, exec ...core.DBExecutor) (bool, error)
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		ReactivateEnrollment(ctx context.Context, id, by int, at time.Time, exec ...core.DBExecutor) (Enrollment, error)
		DeactivateEnrollment(ctx context.Context, id int, status Status, by int, reason string, at time.Time, exec ...core.DBExecutor) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Enrollment, error)
	}

	Service struct {
		db       core.Transactor
		repo     Repository
		classes  class.Repository
		years    schoolyear.Repository
		students student.Repository
	}
)

func NewService(db core.Transactor, repo Repository, classes class.Repository, years schoolyear.Repository, students student.Repository) *Service {
	return &Service{db: db, repo: repo, classes: classes, years: years, students: students}
}

// Enroll writes an active enrollment for (studentID, classID): an inactive row for the pair is
// reactivated, otherwise a new row is inserted. Callers enforce one active enrollment per year.
func Enroll(ctx context.Context, repo Repository, exec core.DBExecutor, studentID, classID, by int, at time.Time) (Enrollment, error) {
	e, err := repo.FindEnrollment(ctx, studentID, classID, exec)
	switch {
	case err == nil && e.IsActive:
		return e, nil
	case err == nil:
		e, err = repo.ReactivateEnrollment(ctx, e.ID, by, at, exec)
		return e, errors.Wrap(err, "reactivating enrollment")
	case errors.Cause(err) != ErrNotFound:
		return Enrollment{}, errors.Wrap(err, "finding enrollment")
	}

	e, err = repo.CreateEnrollment(ctx, Enrollment{
		StudentID:  studentID,
		ClassID:    classID,
		EnrolledBy: null.NewInt(by, by > 0),
		EnrolledAt: at.UTC(),
		IsActive:   true,
		Status:     StatusActive,
	}, exec)
	return e, errors.Wrap(err, "inserting enrollment")
}

// writableClass loads the class and its school year, rejecting inactive classes and locked years.
func (svc *Service) writableClass(ctx context.Context, exec core.DBExecutor, classID int) (class.Class, error) {
	cls, err := svc.classes.GetClass(ctx, classID, exec)
	if err != nil {
		return class.Class{}, err
	}
	year, err := svc.years.GetYear(ctx, cls.SchoolYearID, exec)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "finding school year")
	}
	if year.IsLocked {
		return class.Class{}, ErrYearLocked
	}
	return cls, nil
}

func (svc *Service) enroll(ctx context.Context, exec core.DBExecutor, studentID int, cls class.Class, by int) (Enrollment, error) {
	if !cls.IsActive {
		return Enrollment{}, ErrClassInactive
	}
	stu, err := svc.students.GetStudent(ctx, studentID, exec)
	if err != nil {
		return Enrollment{}, err
	}
	if !stu.IsActive {
		return Enrollment{}, ErrStudentInactive
	}
	enrolled, err := svc.repo.HasActiveEnrollmentInYear(ctx, studentID, cls.SchoolYearID, exec)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking school year enrollment")
	}
	if enrolled {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	return Enroll(ctx, svc.repo, exec, studentID, cls.ID, by, NowFunc())
}

// AssignStudentToClass enrolls a student into a class outside of the placement workflow.
func (svc *Service) AssignStudentToClass(ctx context.Context, studentID, classID, by int) (Enrollment, error) {
	var e Enrollment
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.writableClass(ctx, exec, classID)
		if err != nil {
			return err
		}
		e, err = svc.enroll(ctx, exec, studentID, cls, by)
		return err
	})
	return e, err
}

func (svc *Service) deactivate(ctx context.Context, exec core.DBExecutor, e Enrollment, status Status, by int, reason string) (Enrollment, error) {
	if status == StatusActive || !status.Valid() {
		return Enrollment{}, ErrInvalidStatus
	}
	if !e.IsActive {
		return Enrollment{}, ErrNotActive
	}
	if _, err := svc.writableClass(ctx, exec, e.ClassID); err != nil {
		return Enrollment{}, err
	}
	e, err := svc.repo.DeactivateEnrollment(ctx, e.ID, status, by, core.CleanString(reason), NowFunc(), exec)
	return e, errors.Wrap(err, "deactivating enrollment")
}

// Deactivate is the authoritative path taking an enrollment out of the active state.
func (svc *Service) Deactivate(ctx context.Context, req DeactivateRequest) (Enrollment, error) {
	if err := core.Validate.Struct(req); err != nil {
		return Enrollment{}, err
	}
	var e Enrollment
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if e, err = svc.repo.GetEnrollment(ctx, req.EnrollmentID, exec); err != nil {
			return err
		}
		e, err = svc.deactivate(ctx, exec, e, req.Status, req.By, req.Reason)
		return err
	})
	return e, err
}

// RemoveStudentFromClass withdraws the student's active enrollment in classID.
func (svc *Service) RemoveStudentFromClass(ctx context.Context, studentID, classID, by int, reason string) (Enrollment, error) {
	e, err := svc.repo.FindEnrollment(ctx, studentID, classID)
	if err != nil {
		return Enrollment{}, err
	}
	if reason == "" {
		reason = "removed from class"
	}
	return svc.Deactivate(ctx, DeactivateRequest{EnrollmentID: e.ID, Status: StatusWithdrawn, By: by, Reason: reason})
}

// UpdateStatus moves an enrollment to status. Back to `active` reactivates the row, subject to
// the one-active-enrollment-per-school-year rule; any other status deactivates it.
func (svc *Service) UpdateStatus(ctx context.Context, enrollmentID int, status Status, by int, reason string) (Enrollment, error) {
	if !status.Valid() {
		return Enrollment{}, ErrInvalidStatus
	}
	if status != StatusActive {
		return svc.Deactivate(ctx, DeactivateRequest{EnrollmentID: enrollmentID, Status: status, By: by, Reason: reason})
	}

	var e Enrollment
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if e, err = svc.repo.GetEnrollment(ctx, enrollmentID, exec); err != nil {
			return err
		}
		if e.IsActive {
			return nil
		}
		cls, err := svc.writableClass(ctx, exec, e.ClassID)
		if err != nil {
			return err
		}
		e, err = svc.enroll(ctx, exec, e.StudentID, cls, by)
		return err
	})
	return e, err
}

// TransferStudentToClass moves the student's active enrollment to another class of the same school year.
func (svc *Service) TransferStudentToClass(ctx context.Context, studentID, fromClassID, toClassID, by int, reason string) (Enrollment, error) {
	var e Enrollment
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		from, err := svc.repo.FindEnrollment(ctx, studentID, fromClassID, exec)
		if err != nil {
			return err
		}
		fromCls, err := svc.classes.GetClass(ctx, fromClassID, exec)
		if err != nil {
			return err
		}
		toCls, err := svc.writableClass(ctx, exec, toClassID)
		if err != nil {
			return err
		}
		if fromCls.SchoolYearID != toCls.SchoolYearID {
			return ErrDifferentYear
		}
		if reason == "" {
			reason = "transferred to " + toCls.Label()
		}
		if _, err = svc.deactivate(ctx, exec, from, StatusTransferredOut, by, reason); err != nil {
			return err
		}
		e, err = svc.enroll(ctx, exec, studentID, toCls, by)
		return err
	})
	return e, err
}

// MoveStudents transfers each student separately; a failure does not stop the others.
func (svc *Service) MoveStudents(ctx context.Context, studentIDs []int, fromClassID, toClassID, by int) (MoveResult, error) {
	res := MoveResult{Moved: []Enrollment{}, Failed: []MoveFailure{}}
	for _, id := range studentIDs {
		e, err := svc.TransferStudentToClass(ctx, id, fromClassID, toClassID, by, "")
		if err != nil {
			if !isBusinessErr(err) {
				return res, errors.Wrapf(err, "moving student %d", id)
			}
			res.Failed = append(res.Failed, MoveFailure{StudentID: id, Reason: errors.Cause(err).Error()})
			continue
		}
		res.Moved = append(res.Moved, e)
	}
	return res, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter)
}

func isBusinessErr(err error) bool {
	switch errors.Cause(err) {
	case ErrNotFound, ErrNotActive, ErrAlreadyEnrolled, ErrYearLocked, ErrClassInactive, ErrStudentInactive,
		ErrDifferentYear, student.ErrNotFound, class.ErrNotFound:
		return true
	}
	return false
}
