package placement

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

var (
	// errors
	ErrYearRequired = errors.New("source and target school years are required")
	ErrSameYear     = errors.New("source and target school years must differ")
)

type (
	Repositories struct {
		Students    student.Repository
		Classes     class.Repository
		Years       schoolyear.Repository
		Enrollments enrollment.Repository
		Reports     Repository
	}

	Service struct {
		students  student.Repository
		classes   class.Repository
		years       schoolyear.Repository
		enrollments enrollment.Repository
		reports     Repository
		validator *Validator
		committer *Committer
		recorder  Recorder
	}

	BulkStageResult struct {
		AssignedCount int             `json:"assigned_count"`
		Skipped       []Skipped       `json:"skipped"`
		Warnings      []string        `json:"warnings"`
		Capacity      *class.Capacity `json:"capacity,omitempty"`
	}

	StageResult struct {
		Success         bool            `json:"success"`
		Message         string          `json:"message"`
		PreviousClassID int             `json:"previous_class_id"`
		Warnings        []string        `json:"warnings"`
		Capacity        *class.Capacity `json:"capacity,omitempty"`
	}
)

// NewService wires the placement workflow. notifier and recorder may be nil.
func NewService(db core.Transactor, repos Repositories, logger core.Logger, notifier core.Notifier, recorder Recorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	v := NewValidator(repos.Students, repos.Classes, repos.Years, repos.Enrollments)
	return &Service{
		students:  repos.Students,
		classes:   repos.Classes,
		years:       repos.Years,
		enrollments: repos.Enrollments,
		reports:     repos.Reports,
		validator: v,
		committer: &Committer{
			db:          db,
			validator:   v,
			enrollments: repos.Enrollments,
			classes:     repos.Classes,
			students:    repos.Students,
			notifier:    notifier,
			logger:      logger,
			recorder:    recorder,
		},
		recorder: recorder,
	}
}

func checkYears(sourceYearID, targetYearID int) error {
	if sourceYearID <= 0 || targetYearID <= 0 {
		return ErrYearRequired
	}
	if sourceYearID == targetYearID {
		return ErrSameYear
	}
	return nil
}

// InitSession binds sess to a school year pair, keeping already staged work.
func (svc *Service) InitSession(ctx context.Context, sess *Session, sourceYearID, targetYearID int) error {
	for _, id := range []int{sourceYearID, targetYearID} {
		if id == 0 {
			continue
		}
		if _, err := svc.years.GetYear(ctx, id); err != nil {
			return err
		}
	}
	sess.Init(sourceYearID, targetYearID)
	return checkYears(sess.SourceYearID, sess.TargetYearID)
}

// GetEligibleStudents lists source-year students with no active enrollment in the target year,
// each with a suggested grade and the class it is currently staged into.
func (svc *Service) GetEligibleStudents(ctx context.Context, sourceYearID, targetYearID int) ([]EligibleStudent, error) {
	if err := checkYears(sourceYearID, targetYearID); err != nil {
		return nil, err
	}
	list, err := svc.reports.QueryEligibleStudents(ctx, sourceYearID, targetYearID)
	if err != nil {
		return nil, errors.Wrap(err, "querying eligible students")
	}
	for i := range list {
		list[i].SuggestedGrade = SuggestedGrade(list[i].SourceGradeLevel)
	}
	return list, nil
}

// ListEligible is GetEligibleStudents for the session's year pair, filtered and annotated with
// the session's pending placements.
func (svc *Service) ListEligible(ctx context.Context, sess *Session, gradeLevel, section string) ([]EligibleStudent, error) {
	list, err := svc.GetEligibleStudents(ctx, sess.SourceYearID, sess.TargetYearID)
	if err != nil {
		return nil, err
	}
	list = FilterStudents(list, core.CleanString(gradeLevel), core.CleanString(section))
	for i := range list {
		if classID, ok := sess.PendingPlacement(list[i].StudentID); ok {
			list[i].PendingClassID.SetValid(classID)
		}
	}
	return list, nil
}

func (svc *Service) ValidatePlacement(ctx context.Context, studentID, classID int) (Validation, error) {
	return svc.validator.ValidatePlacement(ctx, studentID, classID)
}

func (svc *Service) ValidateBulkPlacement(ctx context.Context, studentIDs []int, classID int) (BulkValidation, error) {
	return svc.validator.ValidateBulkPlacement(ctx, studentIDs, classID)
}

// HasPendingPlacement reports whether the student is staged into a class of yearID.
func (svc *Service) HasPendingPlacement(ctx context.Context, sess *Session, studentID, yearID int) (bool, error) {
	classID, ok := sess.PendingPlacement(studentID)
	if !ok {
		return false, nil
	}
	cls, err := svc.classes.GetClass(ctx, classID)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding pending class")
	}
	return cls.SchoolYearID == yearID, nil
}

// StageBulk validates the batch and stages its valid students into classID as one undoable action.
func (svc *Service) StageBulk(ctx context.Context, sess *Session, studentIDs []int, classID int) (BulkStageResult, error) {
	val, err := svc.validator.ValidateBulkPlacement(ctx, studentIDs, classID)
	if err != nil {
		return BulkStageResult{}, err
	}
	res := BulkStageResult{Skipped: val.Invalid, Warnings: val.Warnings, Capacity: val.Capacity}
	if !val.Valid {
		return res, nil
	}
	for _, id := range val.ValidIDs {
		sess.AddPendingPlacement(id, classID)
	}
	sess.Push(BulkAssign{StudentIDs: val.ValidIDs, TargetClassID: classID})
	res.AssignedCount = len(val.ValidIDs)
	svc.recorder.PlacementsStaged(res.AssignedCount)
	return res, nil
}

// StageIndividual stages or re-stages one student.
func (svc *Service) StageIndividual(ctx context.Context, sess *Session, studentID, classID int) (StageResult, error) {
	val, err := svc.validator.ValidatePlacement(ctx, studentID, classID)
	if err != nil {
		return StageResult{}, err
	}
	res := StageResult{Warnings: val.Warnings, Capacity: val.Capacity}
	res.PreviousClassID, _ = sess.PendingPlacement(studentID)
	if !val.Valid {
		res.Message = val.Error.Message
		return res, nil
	}

	prev := sess.AddPendingPlacement(studentID, classID)
	sess.Push(IndividualAssign{StudentID: studentID, PreviousClassID: prev, NewClassID: classID})
	svc.recorder.PlacementsStaged(1)

	res.Success = true
	res.Message = "Student staged for placement"
	if cls, err := svc.classes.GetClass(ctx, classID); err == nil {
		res.Message = fmt.Sprintf("Student staged for %s", cls.Label())
	}
	return res, nil
}

// RemovePending unstages a student. expectedClassID of 0 matches any class.
func (svc *Service) RemovePending(sess *Session, studentID, expectedClassID int) bool {
	classID, _ := sess.PendingPlacement(studentID)
	if !sess.RemovePendingPlacement(studentID, expectedClassID) {
		return false
	}
	sess.Push(RemovePlacement{StudentID: studentID, RemovedClassID: classID})
	return true
}

func (svc *Service) Undo(sess *Session) UndoResult {
	return sess.UndoLast()
}

// Commit saves the session's staged placements.
func (svc *Service) Commit(ctx context.Context, sess *Session, committedBy int) (CommitResult, error) {
	return svc.committer.SavePlacements(ctx, sess, nil, committedBy)
}

// SavePlacements commits an explicit set of placements; sess, when given, is cleared on success.
func (svc *Service) SavePlacements(ctx context.Context, sess *Session, placements map[int]int, committedBy int) (CommitResult, error) {
	return svc.committer.SavePlacements(ctx, sess, placements, committedBy)
}
