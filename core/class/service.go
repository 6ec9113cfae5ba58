package class

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
)

var (
	// errors
	ErrNotFound       = errors.New("class not found")
	ErrDuplicateClass = errors.New("an active class with this grade level and section already exists for the school year")
	ErrYearLocked     = errors.New("school year is locked")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Class, error)
		// ActiveClassExists matches grade level, section and school year among active classes, excluding excludedID.
		ActiveClassExists(ctx context.Context, gradeLevel, section string, yearID, excludedID int, exec ...core.DBExecutor) (bool, error)
		UpdateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		CountActiveEnrollments(ctx context.Context, classID int, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo  Repository
		years schoolyear.Repository
	}
)

func NewService(repo Repository, years schoolyear.Repository) *Service {
	return &Service{repo: repo, years: years}
}

func (svc *Service) checkUniqueness(ctx context.Context, gradeLevel, section string, yearID, excludedID int) error {
	exists, err := svc.repo.ActiveClassExists(ctx, gradeLevel, section, yearID, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking class uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrDuplicateClass, core.FieldError{Field: "section", Error: ErrDuplicateClass.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	if err := nc.Validate(); err != nil {
		return Class{}, err
	}
	year, err := svc.years.GetYear(ctx, nc.SchoolYearID)
	if err != nil {
		if errors.Cause(err) == schoolyear.ErrNotFound {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "school_year_id", Error: err.Error()})
		}
		return Class{}, errors.Wrap(err, "finding school year")
	}
	if year.IsLocked {
		return Class{}, ErrYearLocked
	}
	if err := svc.checkUniqueness(ctx, nc.GradeLevel, nc.Section, nc.SchoolYearID, 0); err != nil {
		return Class{}, err
	}

	cls := Class{
		GradeLevel:   nc.GradeLevel,
		Section:      nc.Section,
		TeacherID:    null.IntFromPtr(nc.TeacherID),
		SchoolYearID: nc.SchoolYearID,
		MaxCapacity:  nc.MaxCapacity,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if cls, err = svc.repo.CreateClass(ctx, cls); err != nil {
		return Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) List(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	filter.Clean()
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id int, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if err := uc.Validate(cls); err != nil {
		return Class{}, err
	}
	if cls.IsActive && (uc.GradeLevel != cls.GradeLevel || uc.Section != cls.Section) {
		if err := svc.checkUniqueness(ctx, uc.GradeLevel, uc.Section, cls.SchoolYearID, cls.ID); err != nil {
			return Class{}, err
		}
	}
	cls.GradeLevel = uc.GradeLevel
	cls.Section = uc.Section
	cls.MaxCapacity = uc.MaxCapacity
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) AssignTeacher(ctx context.Context, id, teacherID int) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	cls.TeacherID = null.NewInt(teacherID, teacherID > 0)
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Deactivate(ctx context.Context, id int) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	cls.IsActive = false
	return svc.repo.UpdateClass(ctx, cls)
}

// CheckCapacity reports how full the class is and would be after adding `additional` students (1 by default).
func (svc *Service) CheckCapacity(ctx context.Context, id int, additional ...int) (Capacity, error) {
	add := 1
	if len(additional) > 0 {
		add = additional[0]
	}
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Capacity{}, err
	}
	current, err := svc.repo.CountActiveEnrollments(ctx, id)
	if err != nil {
		return Capacity{}, errors.Wrap(err, "counting class enrollments")
	}
	return NewCapacity(cls, current, add), nil
}
