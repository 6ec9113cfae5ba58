package placement

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

const (
	msgNothingToSave = "No valid placements to save"
	msgCommitFailed  = "Failed to save placements, no changes were made. Please try again."
)

var (
	ErrCommitFailed = errors.New("placement commit failed")

	NowFunc = time.Now // mockable
)

type CommitResult struct {
	Success      bool                    `json:"success"`
	CreatedCount int                     `json:"created_count"`
	SkippedCount int                     `json:"skipped_count"`
	Skipped      []Skipped               `json:"skipped"`
	Enrollments  []enrollment.Enrollment `json:"enrollments"`
	Error        string                  `json:"error,omitempty"`
}

// Recorder receives placement metrics.
type Recorder interface {
	PlacementsStaged(n int)
	PlacementSkipped(code Code)
	EnrollmentsCommitted(n int)
	CommitFailed()
	CommitDuration(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) PlacementsStaged(int)         {}
func (nopRecorder) PlacementSkipped(Code)        {}
func (nopRecorder) EnrollmentsCommitted(int)     {}
func (nopRecorder) CommitFailed()                {}
func (nopRecorder) CommitDuration(time.Duration) {}

// Committer writes staged placements into the enrollment store in a single transaction.
type Committer struct {
	db          core.Transactor
	validator   *Validator
	enrollments enrollment.Repository
	classes     class.Repository
	students    student.Repository
	notifier    core.Notifier
	logger      core.Logger
	recorder    Recorder
}

type pendingEntry struct {
	studentID int
	classID   int
}

// SavePlacements commits placements, or the session's staged assignments when placements is nil.
// Invalid entries are skipped before the transaction opens. Students enrolled into the target
// year meanwhile are skipped inside it. Any store error rolls back every write and the result
// carries a single generic error; the returned error wraps ErrCommitFailed.
// On success the session is cleared.
func (c *Committer) SavePlacements(ctx context.Context, sess *Session, placements map[int]int, committedBy int) (CommitResult, error) {
	res := CommitResult{Skipped: []Skipped{}, Enrollments: []enrollment.Enrollment{}}
	if placements == nil && sess != nil {
		placements = sess.Assignments
	}

	var valid []pendingEntry
	for _, studentID := range sortedKeys(placements) {
		classID := placements[studentID]
		val, err := c.validator.ValidatePlacement(ctx, studentID, classID)
		if err != nil {
			return CommitResult{}, errors.Wrapf(err, "validating placement of student %d", studentID)
		}
		if !val.Valid {
			res.Skipped = append(res.Skipped, skip(studentID, classID, val.Error))
			continue
		}
		valid = append(valid, pendingEntry{studentID: studentID, classID: classID})
	}
	if len(valid) == 0 {
		res.Error = msgNothingToSave
		c.finish(&res)
		return res, nil
	}

	start := NowFunc()
	var (
		created []enrollment.Enrollment
		raced   []Skipped
	)
	err := c.db.InTx(ctx, func(exec core.DBExecutor) error {
		classes := make(map[int]class.Class)
		for _, pe := range valid {
			cls, ok := classes[pe.classID]
			if !ok {
				var err error
				if cls, err = c.classes.GetClass(ctx, pe.classID, exec); err != nil {
					return errors.Wrapf(err, "finding class %d", pe.classID)
				}
				classes[pe.classID] = cls
			}

			enrolled, err := c.enrollments.HasActiveEnrollmentInYear(ctx, pe.studentID, cls.SchoolYearID, exec)
			if err != nil {
				return errors.Wrapf(err, "re-checking enrollment of student %d", pe.studentID)
			}
			if enrolled {
				raced = append(raced, skip(pe.studentID, pe.classID, reject(CodeConcurrentModification)))
				continue
			}

			e, err := enrollment.Enroll(ctx, c.enrollments, exec, pe.studentID, pe.classID, committedBy, start)
			if err != nil {
				return errors.Wrapf(err, "enrolling student %d", pe.studentID)
			}
			created = append(created, e)
		}
		return nil
	})
	c.recorder.CommitDuration(NowFunc().Sub(start))
	if err != nil {
		c.logger.Error("placement commit rolled back", err, core.Operator{ID: committedBy})
		c.recorder.CommitFailed()
		res.Error = msgCommitFailed
		c.finish(&res)
		return res, errors.Wrap(ErrCommitFailed, err.Error())
	}

	res.Skipped = append(res.Skipped, raced...)
	res.Enrollments = created
	res.CreatedCount = len(created)
	res.Success = true
	c.finish(&res)
	c.recorder.EnrollmentsCommitted(res.CreatedCount)
	if sess != nil {
		sess.Clear()
	}
	c.notifyParents(ctx, created)
	return res, nil
}

func (c *Committer) finish(res *CommitResult) {
	res.SkippedCount = len(res.Skipped)
	for _, s := range res.Skipped {
		c.recorder.PlacementSkipped(s.Code)
	}
}

// notifyParents is best-effort: the enrollments are already committed.
func (c *Committer) notifyParents(ctx context.Context, created []enrollment.Enrollment) {
	if c.notifier == nil || len(created) == 0 {
		return
	}
	ids := make([]int, len(created))
	classOf := make(map[int]int, len(created))
	for i, e := range created {
		ids[i] = e.StudentID
		classOf[e.StudentID] = e.ClassID
	}
	students, err := c.students.QueryStudentsByID(ctx, ids)
	if err != nil {
		c.logger.Warn("loading students for placement notices", err)
		return
	}
	labels := make(map[int]string)
	for _, stu := range students {
		n := core.Notification{To: stu.Parent(), Subject: "Class placement for " + stu.FirstName}
		if !n.HasRecipient() {
			continue
		}
		classID := classOf[stu.ID]
		if _, ok := labels[classID]; !ok {
			cls, err := c.classes.GetClass(ctx, classID)
			if err != nil {
				c.logger.Warn(fmt.Sprintf("loading class %d for placement notice", classID), err)
				continue
			}
			labels[classID] = cls.Label()
		}
		n.Body = fmt.Sprintf("%s %s has been enrolled in %s for the new school year.", stu.FirstName, stu.LastName, labels[classID])
		if err := c.notifier.Notify(ctx, n); err != nil {
			c.logger.Warn(fmt.Sprintf("queueing placement notice for student %d", stu.ID), err)
		}
	}
}

func sortedKeys(m map[int]int) []int {
	s := Session{Assignments: m}
	return s.PendingStudentIDs()
}
