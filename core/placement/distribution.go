package placement

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
)

type (
	ClassDistribution struct {
		Class          class.Class          `json:"class"`
		Enrolled       int                  `json:"enrolled"`
		Pending        int                  `json:"pending"`
		Total          int                  `json:"total"`
		CapacityStatus class.CapacityStatus `json:"capacity_status"`
	}

	PendingStudent struct {
		StudentID int    `json:"student_id"`
		LRN       string `json:"lrn"`
		Name      string `json:"name"`
	}

	// ClassReview lists who is in a class: saved enrollments and students staged into it.
	ClassReview struct {
		Class    class.Class      `json:"class"`
		Capacity class.Capacity   `json:"capacity"`
		Saved    []RosterEntry    `json:"saved"`
		Pending  []PendingStudent `json:"pending"`
	}
)

var classOrdering = []core.DBOrdering{
	{Field: "grade_level", Ascending: true},
	{Field: "section", Ascending: true},
}

// stagedNotEnrolled returns the session assignments of students without an active enrollment in
// yearID. A student committed by someone else since staging is already counted as enrolled.
func (svc *Service) stagedNotEnrolled(ctx context.Context, sess *Session, yearID int) (map[int]int, error) {
	staged := make(map[int]int)
	if sess == nil || len(sess.Assignments) == 0 {
		return staged, nil
	}
	active, err := svc.enrollments.QueryEnrollments(ctx, enrollment.QueryFilter{SchoolYearID: yearID, ActiveOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "querying active enrollments")
	}
	enrolled := make(map[int]bool, len(active))
	for _, e := range active {
		enrolled[e.StudentID] = true
	}
	for studentID, classID := range sess.Assignments {
		if !enrolled[studentID] {
			staged[studentID] = classID
		}
	}
	return staged, nil
}

// GetClassDistribution reports head counts for every active class of targetYearID. Pending
// counts only include staged students bound to those classes who are not enrolled yet.
func (svc *Service) GetClassDistribution(ctx context.Context, sess *Session, targetYearID int, includePending bool) ([]ClassDistribution, error) {
	if targetYearID <= 0 {
		return nil, ErrYearRequired
	}
	classes, err := svc.classes.QueryClasses(ctx, class.QueryFilter{SchoolYearID: targetYearID, ActiveOnly: true}, classOrdering)
	if err != nil {
		return nil, errors.Wrap(err, "querying target year classes")
	}
	counts, err := svc.reports.CountActiveEnrollmentsByClass(ctx, targetYearID)
	if err != nil {
		return nil, errors.Wrap(err, "counting enrollments")
	}

	pending := make(map[int]int)
	if includePending {
		staged, err := svc.stagedNotEnrolled(ctx, sess, targetYearID)
		if err != nil {
			return nil, err
		}
		for _, classID := range staged {
			pending[classID]++
		}
	}

	dist := make([]ClassDistribution, 0, len(classes))
	for _, cls := range classes {
		d := ClassDistribution{Class: cls, Enrolled: counts[cls.ID], Pending: pending[cls.ID]}
		d.Total = d.Enrolled + d.Pending
		d.CapacityStatus = class.StatusFor(d.Total, cls.MaxCapacity)
		dist = append(dist, d)
	}
	return dist, nil
}

// GetClassReview returns the saved roster of classID and the students staged into it.
func (svc *Service) GetClassReview(ctx context.Context, sess *Session, classID int) (ClassReview, error) {
	cls, err := svc.classes.GetClass(ctx, classID)
	if err != nil {
		return ClassReview{}, err
	}
	roster, err := svc.reports.QueryClassRoster(ctx, classID)
	if err != nil {
		return ClassReview{}, errors.Wrap(err, "querying class roster")
	}

	staged, err := svc.stagedNotEnrolled(ctx, sess, cls.SchoolYearID)
	if err != nil {
		return ClassReview{}, err
	}
	var ids []int
	if sess != nil {
		for _, id := range sess.PendingStudentIDs() {
			if cid, ok := staged[id]; ok && cid == classID {
				ids = append(ids, id)
			}
		}
	}
	review := ClassReview{
		Class:    cls,
		Capacity: class.NewCapacity(cls, len(roster), len(ids)),
		Saved:    roster,
		Pending:  []PendingStudent{},
	}
	if len(ids) > 0 {
		students, err := svc.students.QueryStudentsByID(ctx, ids)
		if err != nil {
			return ClassReview{}, errors.Wrap(err, "querying pending students")
		}
		for _, stu := range students {
			review.Pending = append(review.Pending, PendingStudent{StudentID: stu.ID, LRN: stu.LRN, Name: stu.FullName()})
		}
		sort.Slice(review.Pending, func(i, j int) bool { return review.Pending[i].Name < review.Pending[j].Name })
	}
	return review, nil
}
