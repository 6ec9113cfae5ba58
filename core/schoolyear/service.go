package schoolyear

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

var (
	// errors
	ErrNotFound      = errors.New("school year not found")
	ErrDuplicateName = errors.New("a school year with this name already exists")
	ErrInvalidFormat = errors.New("school year must look like 2024-2025 with consecutive years")
	ErrNoActiveYear  = errors.New("no active school year")
)

type (
	Repository interface {
		CreateYear(ctx context.Context, year SchoolYear, exec ...core.DBExecutor) (SchoolYear, error)
		GetYear(ctx context.Context, id int, exec ...core.DBExecutor) (SchoolYear, error)
		GetYearByName(ctx context.Context, name string, exec ...core.DBExecutor) (SchoolYear, error)
		GetActiveYear(ctx context.Context, exec ...core.DBExecutor) (SchoolYear, error)
		QueryYears(ctx context.Context, exec ...core.DBExecutor) ([]SchoolYear, error)
		DeactivateAllYears(ctx context.Context, exec ...core.DBExecutor) error
		SetYearActive(ctx context.Context, id int, exec ...core.DBExecutor) error
		SetYearLocked(ctx context.Context, id int, locked bool, exec ...core.DBExecutor) error
	}

	Service struct {
		db   core.Transactor
		repo Repository
	}
)

func NewService(db core.Transactor, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) Create(ctx context.Context, ny NewSchoolYear) (SchoolYear, error) {
	if err := ny.Validate(); err != nil {
		return SchoolYear{}, err
	}
	if _, err := svc.repo.GetYearByName(ctx, ny.Name); err == nil {
		return SchoolYear{}, core.NewValidationError(ErrDuplicateName, core.FieldError{Field: "name", Error: ErrDuplicateName.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return SchoolYear{}, errors.Wrap(err, "checking school year uniqueness")
	}

	year := SchoolYear{
		Name:      ny.Name,
		StartDate: null.TimeFromPtr(ny.StartDate),
		EndDate:   null.TimeFromPtr(ny.EndDate),
		CreatedAt: time.Now().UTC(),
	}
	year, err := svc.repo.CreateYear(ctx, year)
	if err != nil {
		return SchoolYear{}, errors.Wrap(err, "creating school year")
	}
	return year, nil
}

func (svc *Service) Get(ctx context.Context, id int) (SchoolYear, error) {
	return svc.repo.GetYear(ctx, id)
}

func (svc *Service) GetActive(ctx context.Context) (SchoolYear, error) {
	return svc.repo.GetActiveYear(ctx)
}

func (svc *Service) List(ctx context.Context) ([]SchoolYear, error) {
	return svc.repo.QueryYears(ctx)
}

// SetActive makes id the only active school year.
func (svc *Service) SetActive(ctx context.Context, id int) (SchoolYear, error) {
	var year SchoolYear
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if year, err = svc.repo.GetYear(ctx, id, exec); err != nil {
			return err
		}
		if err = svc.repo.DeactivateAllYears(ctx, exec); err != nil {
			return errors.Wrap(err, "deactivating school years")
		}
		if err = svc.repo.SetYearActive(ctx, id, exec); err != nil {
			return errors.Wrap(err, "activating school year")
		}
		return nil
	})
	if err != nil {
		return SchoolYear{}, err
	}
	year.IsActive = true
	return year, nil
}

func (svc *Service) Lock(ctx context.Context, id int) (LockResult, error) {
	return svc.setLocked(ctx, id, true)
}

func (svc *Service) Unlock(ctx context.Context, id int) (LockResult, error) {
	return svc.setLocked(ctx, id, false)
}

func (svc *Service) setLocked(ctx context.Context, id int, locked bool) (LockResult, error) {
	year, err := svc.repo.GetYear(ctx, id)
	if err != nil {
		return LockResult{}, err
	}
	if year.IsLocked == locked {
		return LockResult{Year: year, AlreadyLocked: locked, AlreadyUnlocked: !locked}, nil
	}
	if err := svc.repo.SetYearLocked(ctx, id, locked); err != nil {
		return LockResult{}, errors.Wrap(err, "setting school year lock")
	}
	year.IsLocked = locked
	return LockResult{Year: year}, nil
}
