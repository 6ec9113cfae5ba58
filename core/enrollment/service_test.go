package enrollment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/tests"
)

type fixture struct {
	store *testutil.Store
	svc   *enrollment.Service
	year  schoolyear.SchoolYear
	a, b  class.Class
}

func setup(t *testing.T) *fixture {
	store := testutil.NewStore()
	f := &fixture{
		store: store,
		svc:   enrollment.NewService(store.DB, store.Enrollments, store.Classes, store.Years, store.Students),
		year:  store.CreateYear(t, "2024-2025", true, false),
	}
	f.a = store.CreateClass(t, f.year.ID, "Grade 7", "A", 0)
	f.b = store.CreateClass(t, f.year.ID, "Grade 7", "B", 0)
	return f
}

func TestService_AssignStudentToClass(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	stu := f.store.CreateStudent(t, "", "Ana", "Diaz", true)
	inactive := f.store.CreateStudent(t, "", "Ben", "Cruz", false)

	e, err := f.svc.AssignStudentToClass(ctx, stu.ID, f.a.ID, 5)
	require.NoError(t, err)
	assert.True(t, e.IsActive)
	assert.Equal(t, enrollment.StatusActive, e.Status)
	assert.Equal(t, enrollment.LifecycleActive, e.Lifecycle())
	assert.Equal(t, 5, e.EnrolledBy.Int)

	tests := []struct {
		name      string
		studentID int
		classID   int
		wantErr   error
	}{
		{name: "same year other class", studentID: stu.ID, classID: f.b.ID, wantErr: enrollment.ErrAlreadyEnrolled},
		{name: "inactive student", studentID: inactive.ID, classID: f.a.ID, wantErr: enrollment.ErrStudentInactive},
		{name: "unknown class", studentID: stu.ID, classID: 999, wantErr: class.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.AssignStudentToClass(ctx, tt.studentID, tt.classID, 5); errors.Cause(err) != tt.wantErr {
				t.Errorf("AssignStudentToClass() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	assert.Equal(t, 1, f.store.ActiveEnrollmentsInYear(t, stu.ID, f.year.ID))

	t.Run("locked year", func(t *testing.T) {
		locked := f.store.CreateYear(t, "2025-2026", false, true)
		cls := f.store.CreateClass(t, locked.ID, "Grade 8", "A", 0)
		_, err := f.svc.AssignStudentToClass(ctx, stu.ID, cls.ID, 5)
		assert.Equal(t, enrollment.ErrYearLocked, errors.Cause(err))
	})

	t.Run("next year is independent", func(t *testing.T) {
		next := f.store.CreateYear(t, "2026-2027", false, false)
		cls := f.store.CreateClass(t, next.ID, "Grade 8", "A", 0)
		_, err := f.svc.AssignStudentToClass(ctx, stu.ID, cls.ID, 5)
		assert.NoError(t, err)
	})
}

func TestService_RemoveAndReactivate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	stu := f.store.CreateStudent(t, "", "Ana", "Diaz", true)
	orig, err := f.svc.AssignStudentToClass(ctx, stu.ID, f.a.ID, 1)
	require.NoError(t, err)

	removed, err := f.svc.RemoveStudentFromClass(ctx, stu.ID, f.a.ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, orig.ID, removed.ID)
	assert.False(t, removed.IsActive)
	assert.Equal(t, enrollment.StatusWithdrawn, removed.Status)
	assert.Equal(t, "removed from class", removed.StatusReason.String)
	assert.Equal(t, 2, removed.StatusChangedBy.Int)
	assert.Equal(t, enrollment.LifecycleHistorical, removed.Lifecycle())

	_, err = f.svc.RemoveStudentFromClass(ctx, stu.ID, f.a.ID, 2, "")
	assert.Equal(t, enrollment.ErrNotActive, errors.Cause(err))

	again, err := f.svc.AssignStudentToClass(ctx, stu.ID, f.a.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, again.ID, "row is reactivated, not duplicated")
	assert.Equal(t, enrollment.LifecycleReactivated, again.Lifecycle())
	assert.False(t, again.StatusReason.Valid)

	all, err := f.svc.Query(ctx, enrollment.QueryFilter{StudentID: stu.ID})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_Deactivate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	stu := f.store.CreateStudent(t, "", "Ana", "Diaz", true)
	e, err := f.svc.AssignStudentToClass(ctx, stu.ID, f.a.ID, 1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     enrollment.DeactivateRequest
		wantErr error
	}{
		{name: "active is not a deactivation", req: enrollment.DeactivateRequest{EnrollmentID: e.ID, Status: enrollment.StatusActive}, wantErr: enrollment.ErrInvalidStatus},
		{name: "bogus status", req: enrollment.DeactivateRequest{EnrollmentID: e.ID, Status: "expelled"}, wantErr: enrollment.ErrInvalidStatus},
		{name: "unknown enrollment", req: enrollment.DeactivateRequest{EnrollmentID: 999, Status: enrollment.StatusDropped}, wantErr: enrollment.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Deactivate(ctx, tt.req); errors.Cause(err) != tt.wantErr {
				t.Errorf("Deactivate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	_, err = f.svc.Deactivate(ctx, enrollment.DeactivateRequest{})
	assert.Error(t, err, "validation")

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	enrollment.NowFunc = func() time.Time { return now }
	defer func() { enrollment.NowFunc = time.Now }()

	got, err := f.svc.Deactivate(ctx, enrollment.DeactivateRequest{EnrollmentID: e.ID, Status: enrollment.StatusDropped, By: 9, Reason: "  moved away "})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusDropped, got.Status)
	assert.Equal(t, "moved away", got.StatusReason.String)
	assert.True(t, now.Equal(got.StatusChangedAt.Time))
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	stu := f.store.CreateStudent(t, "", "Ana", "Diaz", true)
	e, err := f.svc.AssignStudentToClass(ctx, stu.ID, f.a.ID, 1)
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(ctx, e.ID, enrollment.StatusCompleted, 1, "")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// student moves on to class B meanwhile
	_, err = f.svc.AssignStudentToClass(ctx, stu.ID, f.b.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, e.ID, enrollment.StatusActive, 1, "")
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, errors.Cause(err))

	_, err = f.svc.UpdateStatus(ctx, e.ID, "nope", 1, "")
	assert.Equal(t, enrollment.ErrInvalidStatus, errors.Cause(err))
	assert.Equal(t, 1, f.store.ActiveEnrollmentsInYear(t, stu.ID, f.year.ID))
}

func TestService_TransferStudentToClass(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	stu := f.store.CreateStudent(t, "", "Ana", "Diaz", true)
	from, err := f.svc.AssignStudentToClass(ctx, stu.ID, f.a.ID, 1)
	require.NoError(t, err)

	to, err := f.svc.TransferStudentToClass(ctx, stu.ID, f.a.ID, f.b.ID, 4, "")
	require.NoError(t, err)
	assert.Equal(t, f.b.ID, to.ClassID)
	assert.True(t, to.IsActive)

	old, err := f.store.Enrollments.GetEnrollment(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusTransferredOut, old.Status)
	assert.Equal(t, "transferred to Grade 7 - B", old.StatusReason.String)
	assert.Equal(t, 1, f.store.ActiveEnrollmentsInYear(t, stu.ID, f.year.ID))

	other := f.store.CreateYear(t, "2025-2026", false, false)
	far := f.store.CreateClass(t, other.ID, "Grade 8", "A", 0)
	_, err = f.svc.TransferStudentToClass(ctx, stu.ID, f.b.ID, far.ID, 4, "")
	assert.Equal(t, enrollment.ErrDifferentYear, errors.Cause(err))
	assert.Equal(t, 1, f.store.ActiveEnrollmentsInYear(t, stu.ID, f.year.ID), "failed transfer rolls back")
}

func TestService_MoveStudents(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.store.CreateStudent(t, "", "Ana", "Diaz", true)
	b := f.store.CreateStudent(t, "", "Ben", "Cruz", true)
	c := f.store.CreateStudent(t, "", "Cai", "Bautista", true)
	for _, s := range []int{a.ID, b.ID} {
		_, err := f.svc.AssignStudentToClass(ctx, s, f.a.ID, 1)
		require.NoError(t, err)
	}

	res, err := f.svc.MoveStudents(ctx, []int{a.ID, c.ID, b.ID}, f.a.ID, f.b.ID, 1)
	require.NoError(t, err)
	require.Len(t, res.Moved, 2)
	assert.Equal(t, a.ID, res.Moved[0].StudentID)
	assert.Equal(t, b.ID, res.Moved[1].StudentID)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, c.ID, res.Failed[0].StudentID)
	assert.Equal(t, enrollment.ErrNotFound.Error(), res.Failed[0].Reason)

	t.Run("store failure aborts", func(t *testing.T) {
		f.store.DB.FailAfter("DeactivateEnrollment", 0, errors.New("connection reset"))
		_, err := f.svc.MoveStudents(ctx, []int{a.ID}, f.b.ID, f.a.ID, 1)
		assert.Error(t, err)
	})
}
