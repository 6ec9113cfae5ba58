package placement

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// SessionID keys the placement session of one operator.
func SessionID(operatorID int) string {
	return "placement:" + strconv.Itoa(operatorID)
}

// Session is an operator's staging area: pending student -> class assignments for one
// source/target school year pair, plus the undo history. It has no internal locking.
type Session struct {
	ID           string
	SourceYearID int // 0 when unset
	TargetYearID int // 0 when unset
	Assignments  map[int]int
	UndoStack    []Action
	TouchedAt    time.Time
}

func NewSession(id string) *Session {
	return &Session{ID: id, Assignments: make(map[int]int)}
}

// Init sets the school year pair. Only non-zero ids overwrite; staged state is preserved.
func (s *Session) Init(sourceYearID, targetYearID int) {
	if s.Assignments == nil {
		s.Assignments = make(map[int]int)
	}
	if sourceYearID != 0 {
		s.SourceYearID = sourceYearID
	}
	if targetYearID != 0 {
		s.TargetYearID = targetYearID
	}
}

// AddPendingPlacement stages studentID into classID, overwriting any previous mapping.
// It returns the class the student was previously staged into, 0 if none.
func (s *Session) AddPendingPlacement(studentID, classID int) int {
	if s.Assignments == nil {
		s.Assignments = make(map[int]int)
	}
	prev := s.Assignments[studentID]
	s.Assignments[studentID] = classID
	return prev
}

func (s *Session) PendingPlacement(studentID int) (int, bool) {
	classID, ok := s.Assignments[studentID]
	return classID, ok
}

// PendingPlacements returns a copy of the staged assignments.
func (s *Session) PendingPlacements() map[int]int {
	out := make(map[int]int, len(s.Assignments))
	for k, v := range s.Assignments {
		out[k] = v
	}
	return out
}

// PendingStudentIDs lists staged students in ascending id order.
func (s *Session) PendingStudentIDs() []int {
	ids := make([]int, 0, len(s.Assignments))
	for id := range s.Assignments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// RemovePendingPlacement drops the student's pending entry. It reports false without mutating
// anything when there is no entry, or when expectedClassID is non-zero and does not match.
func (s *Session) RemovePendingPlacement(studentID, expectedClassID int) bool {
	classID, ok := s.Assignments[studentID]
	if !ok || (expectedClassID != 0 && classID != expectedClassID) {
		return false
	}
	delete(s.Assignments, studentID)
	return true
}

// Clear wipes assignments, undo history and the year pair.
func (s *Session) Clear() {
	s.SourceYearID = 0
	s.TargetYearID = 0
	s.Assignments = make(map[int]int)
	s.UndoStack = nil
}

func (s *Session) Push(a Action) {
	s.UndoStack = append(s.UndoStack, a)
}

// Pop removes and returns the most recent action, nil when the stack is empty.
func (s *Session) Pop() Action {
	n := len(s.UndoStack)
	if n == 0 {
		return nil
	}
	a := s.UndoStack[n-1]
	s.UndoStack[n-1] = nil
	s.UndoStack = s.UndoStack[:n-1]
	return a
}

func (s *Session) peek() Action {
	if len(s.UndoStack) == 0 {
		return nil
	}
	return s.UndoStack[len(s.UndoStack)-1]
}

type UndoResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Action  ActionKind `json:"action,omitempty"`
}

// UndoLast reverts the most recent action.
func (s *Session) UndoLast() UndoResult {
	a := s.peek()
	if a == nil {
		return UndoResult{Message: "Nothing to undo"}
	}

	var msg string
	switch act := a.(type) {
	case BulkAssign:
		cleared := 0
		for _, id := range act.StudentIDs {
			// students re-staged elsewhere since keep their newer mapping
			if s.RemovePendingPlacement(id, act.TargetClassID) {
				cleared++
			}
		}
		msg = "Undid bulk assignment of " + strconv.Itoa(cleared) + " student(s)"
	case IndividualAssign:
		if act.PreviousClassID != 0 {
			s.AddPendingPlacement(act.StudentID, act.PreviousClassID)
			msg = "Restored previous class assignment"
		} else {
			delete(s.Assignments, act.StudentID)
			msg = "Removed pending assignment"
		}
	case RemovePlacement:
		s.AddPendingPlacement(act.StudentID, act.RemovedClassID)
		msg = "Restored removed placement"
	default:
		return UndoResult{Message: "Cannot undo unknown action " + strconv.Quote(string(a.Kind())), Action: a.Kind()}
	}
	s.Pop()
	return UndoResult{Success: true, Message: msg, Action: a.Kind()}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Assignments = s.PendingPlacements()
	if s.UndoStack != nil {
		c.UndoStack = make([]Action, len(s.UndoStack))
		for i, a := range s.UndoStack {
			if ba, ok := a.(BulkAssign); ok {
				ba.StudentIDs = append([]int(nil), ba.StudentIDs...)
				a = ba
			}
			c.UndoStack[i] = a
		}
	}
	return &c
}

type sessionPayload struct {
	ID           string           `json:"id"`
	SourceYearID int              `json:"source_year_id"`
	TargetYearID int              `json:"target_year_id"`
	Assignments  map[int]int      `json:"assignments"`
	UndoStack    []actionEnvelope `json:"undo_stack"`
	TouchedAt    time.Time        `json:"touched_at"`
}

func (s *Session) MarshalBinary() ([]byte, error) {
	p := sessionPayload{
		ID:           s.ID,
		SourceYearID: s.SourceYearID,
		TargetYearID: s.TargetYearID,
		Assignments:  s.Assignments,
		UndoStack:    make([]actionEnvelope, 0, len(s.UndoStack)),
		TouchedAt:    s.TouchedAt,
	}
	for _, a := range s.UndoStack {
		env, err := encodeAction(a)
		if err != nil {
			return nil, err
		}
		p.UndoStack = append(p.UndoStack, env)
	}
	return json.Marshal(p)
}

func (s *Session) UnmarshalBinary(data []byte) error {
	var p sessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrap(err, "decoding placement session")
	}
	*s = Session{
		ID:           p.ID,
		SourceYearID: p.SourceYearID,
		TargetYearID: p.TargetYearID,
		Assignments:  p.Assignments,
		TouchedAt:    p.TouchedAt,
	}
	if s.Assignments == nil {
		s.Assignments = make(map[int]int)
	}
	for _, env := range p.UndoStack {
		a, err := decodeAction(env)
		if err != nil {
			return err
		}
		s.UndoStack = append(s.UndoStack, a)
	}
	return nil
}
