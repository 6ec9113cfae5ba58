package class_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/tests"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	svc := class.NewService(store.Classes, store.Years)
	year := store.CreateYear(t, "2024-2025", true, false)
	locked := store.CreateYear(t, "2023-2024", false, true)

	cls, err := svc.Create(ctx, class.NewClass{GradeLevel: "Grade 7", Section: "A", SchoolYearID: year.ID})
	require.NoError(t, err)
	assert.True(t, cls.IsActive)
	assert.Equal(t, class.DefaultMaxCapacity, cls.MaxCapacity)
	assert.Equal(t, "Grade 7 - A", cls.Label())

	tests := []struct {
		name    string
		nc      class.NewClass
		wantErr error
	}{
		{name: "duplicate", nc: class.NewClass{GradeLevel: "Grade 7", Section: " A", SchoolYearID: year.ID}, wantErr: class.ErrDuplicateClass},
		{name: "locked year", nc: class.NewClass{GradeLevel: "Grade 7", Section: "A", SchoolYearID: locked.ID}, wantErr: class.ErrYearLocked},
		{name: "unknown year", nc: class.NewClass{GradeLevel: "Grade 7", Section: "A", SchoolYearID: 999}, wantErr: schoolyear.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.nc)
			assert.True(t, errors.Is(err, tt.wantErr), "Create() error = %v, wantErr %v", err, tt.wantErr)
		})
	}

	t.Run("after deactivation", func(t *testing.T) {
		_, err := svc.Deactivate(ctx, cls.ID)
		require.NoError(t, err)
		again, err := svc.Create(ctx, class.NewClass{GradeLevel: "Grade 7", Section: "A", SchoolYearID: year.ID})
		require.NoError(t, err)
		assert.NotEqual(t, cls.ID, again.ID)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	svc := class.NewService(store.Classes, store.Years)
	year := store.CreateYear(t, "2024-2025", true, false)
	a := store.CreateClass(t, year.ID, "Grade 7", "A", 0)
	store.CreateClass(t, year.ID, "Grade 7", "B", 0)

	_, err := svc.Update(ctx, a.ID, class.UpdateClass{Section: "B"})
	assert.True(t, errors.Is(err, class.ErrDuplicateClass), "got %v", err)

	got, err := svc.Update(ctx, a.ID, class.UpdateClass{Section: "C", MaxCapacity: 30})
	require.NoError(t, err)
	assert.Equal(t, "Grade 7", got.GradeLevel)
	assert.Equal(t, "C", got.Section)
	assert.Equal(t, 30, got.MaxCapacity)

	got, err = svc.AssignTeacher(ctx, a.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, got.TeacherID.Int)

	_, err = svc.Update(ctx, 999, class.UpdateClass{})
	assert.Equal(t, class.ErrNotFound, errors.Cause(err))
}

func TestService_CheckCapacity(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	svc := class.NewService(store.Classes, store.Years)
	year := store.CreateYear(t, "2024-2025", true, false)
	cls := store.CreateClass(t, year.ID, "Grade 7", "A", 50)
	for i := 0; i < 45; i++ {
		stu := store.CreateStudent(t, "", "Kid", "Filler", true)
		store.Enroll(t, stu.ID, cls.ID, i%2 == 0 || i < 40)
	}

	capa, err := svc.CheckCapacity(ctx, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, 43, capa.Current)
	assert.Equal(t, 44, capa.Projected)
	assert.False(t, capa.AtThreshold)

	capa, err = svc.CheckCapacity(ctx, cls.ID, 8)
	require.NoError(t, err)
	assert.True(t, capa.ExceedsCapacity)

	list, err := svc.List(ctx, class.QueryFilter{SchoolYearID: year.ID, GradeLevel: " Grade 7 "}, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
