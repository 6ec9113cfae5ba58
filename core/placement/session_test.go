package placement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Init(t *testing.T) {
	s := NewSession("placement:1")
	s.Init(1, 2)
	s.AddPendingPlacement(10, 100)
	s.Push(IndividualAssign{StudentID: 10, NewClassID: 100})

	s.Init(0, 3)
	assert.Equal(t, 1, s.SourceYearID, "zero id must not overwrite")
	assert.Equal(t, 3, s.TargetYearID)
	assert.Equal(t, map[int]int{10: 100}, s.Assignments)
	assert.Len(t, s.UndoStack, 1)
}

func TestSession_AddPendingPlacement(t *testing.T) {
	s := NewSession("placement:1")
	assert.Equal(t, 0, s.AddPendingPlacement(10, 100))
	assert.Equal(t, 100, s.AddPendingPlacement(10, 200), "last write wins")

	classID, ok := s.PendingPlacement(10)
	assert.True(t, ok)
	assert.Equal(t, 200, classID)
}

func TestSession_RemovePendingPlacement(t *testing.T) {
	tests := []struct {
		name          string
		studentID     int
		expectedClass int
		want          bool
		wantLeft      map[int]int
	}{
		{name: "missing entry", studentID: 99, want: false, wantLeft: map[int]int{10: 100}},
		{name: "class mismatch", studentID: 10, expectedClass: 200, want: false, wantLeft: map[int]int{10: 100}},
		{name: "class match", studentID: 10, expectedClass: 100, want: true, wantLeft: map[int]int{}},
		{name: "any class", studentID: 10, want: true, wantLeft: map[int]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("placement:1")
			s.AddPendingPlacement(10, 100)
			assert.Equal(t, tt.want, s.RemovePendingPlacement(tt.studentID, tt.expectedClass))
			assert.Equal(t, tt.wantLeft, s.Assignments)
		})
	}
}

func TestSession_Clear(t *testing.T) {
	s := NewSession("placement:1")
	s.Init(1, 2)
	s.AddPendingPlacement(10, 100)
	s.Push(BulkAssign{StudentIDs: []int{10}, TargetClassID: 100})

	s.Clear()
	assert.Zero(t, s.SourceYearID)
	assert.Zero(t, s.TargetYearID)
	assert.Empty(t, s.Assignments)
	assert.Empty(t, s.UndoStack)
	assert.Nil(t, s.Pop())
}

func TestSession_PushPop(t *testing.T) {
	s := NewSession("placement:1")
	first := IndividualAssign{StudentID: 1, NewClassID: 2}
	second := RemovePlacement{StudentID: 1, RemovedClassID: 2}
	s.Push(first)
	s.Push(second)

	assert.Equal(t, second, s.Pop())
	assert.Equal(t, first, s.Pop())
	assert.Nil(t, s.Pop())
}

func TestSession_UndoIndividualAssign(t *testing.T) {
	t.Run("no previous mapping", func(t *testing.T) {
		s := NewSession("placement:1")
		before := s.PendingPlacements()

		prev := s.AddPendingPlacement(10, 100)
		s.Push(IndividualAssign{StudentID: 10, PreviousClassID: prev, NewClassID: 100})

		res := s.UndoLast()
		assert.True(t, res.Success)
		assert.Equal(t, KindIndividualAssign, res.Action)
		assert.Equal(t, before, s.Assignments)
		assert.Empty(t, s.UndoStack)
	})

	t.Run("restores previous class", func(t *testing.T) {
		s := NewSession("placement:1")
		s.AddPendingPlacement(10, 100)
		prev := s.AddPendingPlacement(10, 200)
		s.Push(IndividualAssign{StudentID: 10, PreviousClassID: prev, NewClassID: 200})

		assert.True(t, s.UndoLast().Success)
		assert.Equal(t, map[int]int{10: 100}, s.Assignments)
	})
}

func TestSession_UndoBulkAssign(t *testing.T) {
	s := NewSession("placement:1")
	ids := []int{1, 2, 3, 4}
	for _, id := range ids {
		s.AddPendingPlacement(id, 100)
	}
	s.Push(BulkAssign{StudentIDs: ids, TargetClassID: 100})

	// student 3 is re-staged elsewhere outside of the undo history
	s.AddPendingPlacement(3, 200)

	res := s.UndoLast()
	require.True(t, res.Success)
	assert.Equal(t, KindBulkAssign, res.Action)
	assert.Equal(t, map[int]int{3: 200}, s.Assignments)
}

func TestSession_UndoRemovePlacement(t *testing.T) {
	s := NewSession("placement:1")
	s.AddPendingPlacement(10, 100)
	require.True(t, s.RemovePendingPlacement(10, 100))
	s.Push(RemovePlacement{StudentID: 10, RemovedClassID: 100})

	assert.True(t, s.UndoLast().Success)
	assert.Equal(t, map[int]int{10: 100}, s.Assignments)
}

func TestSession_UndoEmptyOrUnknown(t *testing.T) {
	s := NewSession("placement:1")
	res := s.UndoLast()
	assert.False(t, res.Success)
	assert.Equal(t, "Nothing to undo", res.Message)

	s.AddPendingPlacement(10, 100)
	s.Push(unknownAction{kind: "merge_classes"})
	res = s.UndoLast()
	assert.False(t, res.Success)
	assert.Equal(t, ActionKind("merge_classes"), res.Action)
	assert.Equal(t, map[int]int{10: 100}, s.Assignments)
	assert.Len(t, s.UndoStack, 1)
}

func TestSession_BinaryRoundTrip(t *testing.T) {
	s := NewSession("placement:9")
	s.Init(1, 2)
	s.AddPendingPlacement(10, 100)
	s.AddPendingPlacement(11, 100)
	s.Push(BulkAssign{StudentIDs: []int{10, 11}, TargetClassID: 100})
	s.Push(IndividualAssign{StudentID: 11, PreviousClassID: 100, NewClassID: 101})
	s.Push(RemovePlacement{StudentID: 10, RemovedClassID: 100})
	s.Push(unknownAction{kind: "future_kind", data: []byte(`{"x":1}`)})
	s.TouchedAt = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	data, err := s.MarshalBinary()
	require.NoError(t, err)

	got := new(Session)
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Assignments, got.Assignments)
	assert.True(t, s.TouchedAt.Equal(got.TouchedAt))
	require.Len(t, got.UndoStack, 4)
	assert.Equal(t, s.UndoStack[:3], got.UndoStack[:3])
	assert.Equal(t, ActionKind("future_kind"), got.UndoStack[3].Kind())
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("placement:1")
	s.AddPendingPlacement(10, 100)
	s.Push(BulkAssign{StudentIDs: []int{10}, TargetClassID: 100})

	c := s.Clone()
	c.AddPendingPlacement(11, 100)
	c.UndoStack[0].(BulkAssign).StudentIDs[0] = 99

	assert.Equal(t, map[int]int{10: 100}, s.Assignments)
	assert.Equal(t, []int{10}, s.UndoStack[0].(BulkAssign).StudentIDs)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	ms := NewMemoryStore(time.Hour)
	ms.now = func() time.Time { return now }

	s, err := ms.Load(ctx, "placement:1")
	require.NoError(t, err)
	assert.Equal(t, "placement:1", s.ID)
	s.Init(1, 2)
	s.AddPendingPlacement(10, 100)
	require.NoError(t, ms.Save(ctx, s))

	// callers work on copies
	s.AddPendingPlacement(11, 100)
	got, err := ms.Load(ctx, "placement:1")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{10: 100}, got.Assignments)

	// idle for less than the TTL
	now = now.Add(59 * time.Minute)
	got, err = ms.Load(ctx, "placement:1")
	require.NoError(t, err)
	assert.Len(t, got.Assignments, 1)

	// abandoned
	now = now.Add(2 * time.Minute)
	got, err = ms.Load(ctx, "placement:1")
	require.NoError(t, err)
	assert.Empty(t, got.Assignments)
	assert.Zero(t, got.SourceYearID)
}

func TestMemoryStore_SweepAndDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	ms := NewMemoryStore(0)
	ms.now = func() time.Time { return now }
	assert.Equal(t, DefaultSessionTTL, ms.ttl)

	require.NoError(t, ms.Save(ctx, NewSession("placement:1")))
	now = now.Add(6 * time.Hour)
	require.NoError(t, ms.Save(ctx, NewSession("placement:2")))
	require.NoError(t, ms.Save(ctx, NewSession("placement:3")))
	require.NoError(t, ms.Delete(ctx, "placement:3"))

	now = now.Add(7 * time.Hour)
	assert.Equal(t, 1, ms.Sweep())
	_, ok := ms.sessions["placement:2"]
	assert.True(t, ok)
	assert.Len(t, ms.sessions, 1)
}

func TestSuggestedGrade(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Grade 6", "Grade 7"},
		{"Grade 12", "Grade 13"},
		{"grade 1", "Grade 2"},
		{"Grade-6", "Grade 7"},
		{"Grade  6 (STE)", "Grade 7"},
		{" Grade 9 ", "Grade 10"},
		{"Gradebook 5", "Gradebook 5"},
		{"Kindergarten", "Grade 1"},
		{"K", "Grade 1"},
		{"Unknown", "Unknown"},
		{"Grade", "Grade"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestedGrade(tt.in))
		})
	}
}

func TestFilterStudents(t *testing.T) {
	list := []EligibleStudent{
		{StudentID: 1, SourceGradeLevel: "Grade 6", SourceSection: "A"},
		{StudentID: 2, SourceGradeLevel: "Grade 6", SourceSection: "B"},
		{StudentID: 3, SourceGradeLevel: "Grade 5", SourceSection: "A"},
	}
	ids := func(l []EligibleStudent) []int {
		out := []int{}
		for _, es := range l {
			out = append(out, es.StudentID)
		}
		return out
	}
	assert.Equal(t, []int{1, 2, 3}, ids(FilterStudents(list, "", "")))
	assert.Equal(t, []int{1, 2}, ids(FilterStudents(list, "Grade 6", "")))
	assert.Equal(t, []int{1, 3}, ids(FilterStudents(list, "", "A")))
	assert.Equal(t, []int{2}, ids(FilterStudents(list, "Grade 6", "B")))
	assert.Empty(t, FilterStudents(list, "Grade 6 ", ""))
}
