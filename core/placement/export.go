package placement

import (
	"context"
	"encoding/csv"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
)

type PreviewStatus string

const (
	PreviewPending  PreviewStatus = "Pending"  // eligible, not staged
	PreviewAssigned PreviewStatus = "Assigned" // eligible and staged
	PreviewPlaced   PreviewStatus = "Placed"   // committed into the target year
	PreviewConflict PreviewStatus = "Conflict" // staged, but placed already or no longer eligible
)

var PreviewHeader = []string{"Student Name", "LRN", "Source Class", "Target Class", "Status"}

type PreviewRow struct {
	StudentID   int           `json:"student_id"`
	StudentName string        `json:"student_name"`
	LRN         string        `json:"lrn"`
	SourceClass string        `json:"source_class"`
	TargetClass string        `json:"target_class"`
	Status      PreviewStatus `json:"status"`
}

func (r PreviewRow) Record() []string {
	return []string{r.StudentName, r.LRN, r.SourceClass, r.TargetClass, string(r.Status)}
}

// BuildPreview lists every student involved in the transition from sourceYearID to targetYearID:
// eligible ones, those already placed and those staged in sess.
func (svc *Service) BuildPreview(ctx context.Context, sess *Session, sourceYearID, targetYearID int) ([]PreviewRow, error) {
	eligible, err := svc.GetEligibleStudents(ctx, sourceYearID, targetYearID)
	if err != nil {
		return nil, err
	}
	placed, err := svc.reports.QueryPlacedStudents(ctx, sourceYearID, targetYearID)
	if err != nil {
		return nil, errors.Wrap(err, "querying placed students")
	}

	staged := make(map[int]int)
	if sess != nil {
		staged = sess.PendingPlacements()
	}
	labels := make(map[int]string)
	label := func(classID int) (string, error) {
		if l, ok := labels[classID]; ok {
			return l, nil
		}
		cls, err := svc.classes.GetClass(ctx, classID)
		if err != nil {
			if errors.Cause(err) == class.ErrNotFound {
				return "", nil
			}
			return "", errors.Wrapf(err, "finding class %d", classID)
		}
		labels[classID] = cls.Label()
		return labels[classID], nil
	}

	rows := make([]PreviewRow, 0, len(eligible)+len(placed))
	for _, es := range eligible {
		row := PreviewRow{StudentID: es.StudentID, StudentName: es.FullName(), LRN: es.LRN, SourceClass: es.SourceClass(), Status: PreviewPending}
		if classID, ok := staged[es.StudentID]; ok {
			if row.TargetClass, err = label(classID); err != nil {
				return nil, err
			}
			row.Status = PreviewAssigned
			delete(staged, es.StudentID)
		}
		rows = append(rows, row)
	}
	for _, ps := range placed {
		row := PreviewRow{StudentID: ps.StudentID, StudentName: ps.FullName(), LRN: ps.LRN, SourceClass: ps.SourceClass(), TargetClass: ps.TargetClass(), Status: PreviewPlaced}
		if classID, ok := staged[ps.StudentID]; ok {
			if row.TargetClass, err = label(classID); err != nil {
				return nil, err
			}
			row.Status = PreviewConflict
			delete(staged, ps.StudentID)
		}
		rows = append(rows, row)
	}

	// staged for students that are neither eligible nor placed
	if len(staged) > 0 {
		ids := make([]int, 0, len(staged))
		for id := range staged {
			ids = append(ids, id)
		}
		students, err := svc.students.QueryStudentsByID(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "querying staged students")
		}
		for _, stu := range students {
			row := PreviewRow{StudentID: stu.ID, StudentName: stu.FullName(), LRN: stu.LRN, Status: PreviewConflict}
			if row.TargetClass, err = label(staged[stu.ID]); err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StudentName != rows[j].StudentName {
			return rows[i].StudentName < rows[j].StudentName
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return rows, nil
}

// WriteCSV writes the preview as comma-separated text with a header row.
func WriteCSV(w io.Writer, rows []PreviewRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PreviewHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
