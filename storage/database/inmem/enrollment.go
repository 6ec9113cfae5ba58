package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id int, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.t.enrollments[id]; ok {
		return e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) FindEnrollment(_ context.Context, studentID, classID int, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, e := range repo.db.t.enrollments {
		if e.StudentID == studentID && e.ClassID == classID {
			return e, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

// activeInYear must be called with mu held.
func (repo *enrollmentRepository) activeInYear(studentID, yearID int) bool {
	for _, e := range repo.db.t.enrollments {
		if e.StudentID == studentID && e.IsActive && repo.db.t.classes[e.ClassID].SchoolYearID == yearID {
			return true
		}
	}
	return false
}

func (repo *enrollmentRepository) HasActiveEnrollmentInYear(_ context.Context, studentID, yearID int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.db.checkFault("HasActiveEnrollmentInYear"); err != nil {
		return false, err
	}
	return repo.activeInYear(studentID, yearID), nil
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	defer repo.db.writeLock(exec)()

	if err := repo.db.checkFault("CreateEnrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}
	// unique (student_id, class_id)
	for _, other := range repo.db.t.enrollments {
		if other.StudentID == e.StudentID && other.ClassID == e.ClassID {
			return enrollment.Enrollment{}, errDuplicateKey
		}
	}
	e.ID = repo.db.nextPK()
	repo.db.t.enrollments[e.ID] = e
	return e, nil
}

func (repo *enrollmentRepository) update(op string, id int, fn func(*enrollment.Enrollment), exec []core.DBExecutor) (enrollment.Enrollment, error) {
	defer repo.db.writeLock(exec)()

	if err := repo.db.checkFault(op); err != nil {
		return enrollment.Enrollment{}, err
	}
	e, ok := repo.db.t.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	fn(&e)
	repo.db.t.enrollments[id] = e
	return e, nil
}

func (repo *enrollmentRepository) ReactivateEnrollment(_ context.Context, id, by int, at time.Time, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	return repo.update("ReactivateEnrollment", id, func(e *enrollment.Enrollment) {
		at = at.UTC()
		e.IsActive = true
		e.Status = enrollment.StatusActive
		e.EnrolledBy = null.NewInt(by, by > 0)
		e.EnrolledAt = at
		e.ReactivatedAt = null.TimeFrom(at)
		e.StatusChangedAt = null.TimeFrom(at)
		e.StatusChangedBy = null.NewInt(by, by > 0)
		e.StatusReason = null.String{}
	}, exec)
}

func (repo *enrollmentRepository) DeactivateEnrollment(_ context.Context, id int, status enrollment.Status, by int, reason string, at time.Time, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	return repo.update("DeactivateEnrollment", id, func(e *enrollment.Enrollment) {
		e.IsActive = false
		e.Status = status
		e.StatusChangedAt = null.TimeFrom(at.UTC())
		e.StatusChangedBy = null.NewInt(by, by > 0)
		e.StatusReason = null.NewString(reason, reason != "")
	}, exec)
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter enrollment.QueryFilter, _ ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.t.enrollments {
		switch {
		case filter.StudentID > 0 && e.StudentID != filter.StudentID,
			filter.ClassID > 0 && e.ClassID != filter.ClassID,
			filter.SchoolYearID > 0 && repo.db.t.classes[e.ClassID].SchoolYearID != filter.SchoolYearID,
			filter.ActiveOnly && !e.IsActive:
			continue
		}
		enrollments = append(enrollments, e)
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}
