package placement

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

// Code identifies why a placement was rejected or skipped.
type Code string

const (
	CodeInvalidID              Code = "INVALID_ID"
	CodeStudentInactive        Code = "STUDENT_INACTIVE"
	CodeClassNotFound          Code = "CLASS_NOT_FOUND"
	CodeClassInactive          Code = "CLASS_INACTIVE"
	CodeYearLocked             Code = "YEAR_LOCKED"
	CodeAlreadyEnrolled        Code = "ALREADY_ENROLLED"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
)

var codeMessages = map[Code]string{
	CodeInvalidID:              "invalid student or class id",
	CodeStudentInactive:        "student is not active",
	CodeClassNotFound:          "class not found",
	CodeClassInactive:          "class is not active",
	CodeYearLocked:             "school year is locked",
	CodeAlreadyEnrolled:        "student is already enrolled in the target school year",
	CodeConcurrentModification: "concurrent modification",
}

func (c Code) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return string(c)
}

type Rejection struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func reject(code Code) *Rejection {
	return &Rejection{Code: code, Message: code.Message()}
}

// Skipped is a placement left out of a batch, with its reason.
type Skipped struct {
	StudentID int    `json:"student_id"`
	ClassID   int    `json:"class_id"`
	Code      Code   `json:"code"`
	Reason    string `json:"reason"`
}

func skip(studentID, classID int, r *Rejection) Skipped {
	return Skipped{StudentID: studentID, ClassID: classID, Code: r.Code, Reason: r.Message}
}

type (
	// Validation of a single placement. Warnings never affect Valid.
	Validation struct {
		Valid    bool            `json:"valid"`
		Error    *Rejection      `json:"error,omitempty"`
		Warnings []string        `json:"warnings"`
		Capacity *class.Capacity `json:"capacity,omitempty"`
	}

	// BulkValidation partitions a batch into valid and invalid students. Capacity is computed once
	// for the whole valid subset.
	BulkValidation struct {
		Valid    bool            `json:"valid"`
		Error    *Rejection      `json:"error,omitempty"`
		ValidIDs []int           `json:"valid_ids"`
		Invalid  []Skipped       `json:"invalid"`
		Warnings []string        `json:"warnings"`
		Capacity *class.Capacity `json:"capacity,omitempty"`
	}

	Validator struct {
		students    student.Repository
		classes     class.Repository
		years       schoolyear.Repository
		enrollments enrollment.Repository
	}
)

func NewValidator(students student.Repository, classes class.Repository, years schoolyear.Repository, enrollments enrollment.Repository) *Validator {
	return &Validator{students: students, classes: classes, years: years, enrollments: enrollments}
}

// checkClass runs the class-level rules. A nil rejection means the class accepts placements.
func (v *Validator) checkClass(ctx context.Context, classID int) (class.Class, *Rejection, error) {
	cls, err := v.classes.GetClass(ctx, classID)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return class.Class{}, reject(CodeClassNotFound), nil
		}
		return class.Class{}, nil, errors.Wrap(err, "finding class")
	}
	if !cls.IsActive {
		return cls, reject(CodeClassInactive), nil
	}
	year, err := v.years.GetYear(ctx, cls.SchoolYearID)
	if err != nil {
		return cls, nil, errors.Wrap(err, "finding school year")
	}
	if year.IsLocked {
		return cls, reject(CodeYearLocked), nil
	}
	return cls, nil, nil
}

func (v *Validator) checkStudentActive(ctx context.Context, studentID int) (*Rejection, error) {
	stu, err := v.students.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return reject(CodeStudentInactive), nil
		}
		return nil, errors.Wrap(err, "finding student")
	}
	if !stu.IsActive {
		return reject(CodeStudentInactive), nil
	}
	return nil, nil
}

func (v *Validator) checkNotEnrolled(ctx context.Context, studentID, yearID int) (*Rejection, error) {
	enrolled, err := v.enrollments.HasActiveEnrollmentInYear(ctx, studentID, yearID)
	if err != nil {
		return nil, errors.Wrap(err, "checking target year enrollment")
	}
	if enrolled {
		return reject(CodeAlreadyEnrolled), nil
	}
	return nil, nil
}

func (v *Validator) capacity(ctx context.Context, cls class.Class, additional int) (class.Capacity, error) {
	current, err := v.classes.CountActiveEnrollments(ctx, cls.ID)
	if err != nil {
		return class.Capacity{}, errors.Wrap(err, "counting class enrollments")
	}
	return class.NewCapacity(cls, current, additional), nil
}

// ValidatePlacement checks one student -> class placement. Rules apply in a fixed order and the
// first failing rule decides the rejection.
func (v *Validator) ValidatePlacement(ctx context.Context, studentID, classID int) (Validation, error) {
	res := Validation{Warnings: []string{}}
	if studentID <= 0 || classID <= 0 {
		res.Error = reject(CodeInvalidID)
		return res, nil
	}

	var err error
	if res.Error, err = v.checkStudentActive(ctx, studentID); err != nil || res.Error != nil {
		return res, err
	}
	cls, rej, err := v.checkClass(ctx, classID)
	if err != nil || rej != nil {
		res.Error = rej
		return res, err
	}
	if res.Error, err = v.checkNotEnrolled(ctx, studentID, cls.SchoolYearID); err != nil || res.Error != nil {
		return res, err
	}

	capa, err := v.capacity(ctx, cls, 1)
	if err != nil {
		return res, err
	}
	res.Valid = true
	res.Capacity = &capa
	res.Warnings = append(res.Warnings, capa.Warnings()...)
	return res, nil
}

// ValidateBulkPlacement checks a batch bound for one class. Class rules run once; each distinct
// student is then checked on its own. The batch is valid when at least one student is.
func (v *Validator) ValidateBulkPlacement(ctx context.Context, studentIDs []int, classID int) (BulkValidation, error) {
	res := BulkValidation{ValidIDs: []int{}, Invalid: []Skipped{}, Warnings: []string{}}
	ids := uniqueIDs(studentIDs)

	rejectAll := func(r *Rejection) (BulkValidation, error) {
		res.Error = r
		for _, id := range ids {
			res.Invalid = append(res.Invalid, skip(id, classID, r))
		}
		return res, nil
	}
	if classID <= 0 {
		return rejectAll(reject(CodeInvalidID))
	}
	cls, rej, err := v.checkClass(ctx, classID)
	if err != nil {
		return res, err
	}
	if rej != nil {
		return rejectAll(rej)
	}

	for _, id := range ids {
		if id <= 0 {
			res.Invalid = append(res.Invalid, skip(id, classID, reject(CodeInvalidID)))
			continue
		}
		rej, err := v.checkStudentActive(ctx, id)
		if err == nil && rej == nil {
			rej, err = v.checkNotEnrolled(ctx, id, cls.SchoolYearID)
		}
		if err != nil {
			return res, err
		}
		if rej != nil {
			res.Invalid = append(res.Invalid, skip(id, classID, rej))
			continue
		}
		res.ValidIDs = append(res.ValidIDs, id)
	}

	if len(res.ValidIDs) > 0 {
		capa, err := v.capacity(ctx, cls, len(res.ValidIDs))
		if err != nil {
			return res, err
		}
		res.Valid = true
		res.Capacity = &capa
		res.Warnings = append(res.Warnings, capa.Warnings()...)
	}
	return res, nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
