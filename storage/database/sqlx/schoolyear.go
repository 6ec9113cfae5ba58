package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
)

const yearColumns = "id, name, start_date, end_date, is_active, is_locked, created_at"

type schoolYearRepository struct {
	repo
}

var _ schoolyear.Repository = (*schoolYearRepository)(nil) // interface compliance check

func NewSchoolYearRepository(exec core.DBExecutor) *schoolYearRepository {
	return &schoolYearRepository{repo{exec: exec}}
}

func (r schoolYearRepository) CreateYear(ctx context.Context, year schoolyear.SchoolYear, exec ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	q := `INSERT INTO school_years (name, start_date, end_date, is_active, is_locked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := sqlx.GetContext(ctx, r.getExec(exec), &year.ID, q,
		year.Name, year.StartDate, year.EndDate, year.IsActive, year.IsLocked, year.CreatedAt.UTC())
	if err != nil {
		return schoolyear.SchoolYear{}, errors.Wrap(err, "inserting school year")
	}
	return year, nil
}

func (r schoolYearRepository) getBy(ctx context.Context, exe core.DBExecutor, notFound error, where string, args ...interface{}) (schoolyear.SchoolYear, error) {
	var year schoolyear.SchoolYear
	if err := sqlx.GetContext(ctx, exe, &year, "SELECT "+yearColumns+" FROM school_years WHERE "+where, args...); err != nil {
		return schoolyear.SchoolYear{}, trapNoRowsErr(err, notFound, "finding school year")
	}
	return year, nil
}

func (r schoolYearRepository) GetYear(ctx context.Context, id int, exec ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	return r.getBy(ctx, r.getExec(exec), schoolyear.ErrNotFound, "id = $1", id)
}

func (r schoolYearRepository) GetYearByName(ctx context.Context, name string, exec ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	return r.getBy(ctx, r.getExec(exec), schoolyear.ErrNotFound, "name = $1", name)
}

func (r schoolYearRepository) GetActiveYear(ctx context.Context, exec ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	return r.getBy(ctx, r.getExec(exec), schoolyear.ErrNoActiveYear, "is_active LIMIT 1")
}

func (r schoolYearRepository) QueryYears(ctx context.Context, exec ...core.DBExecutor) ([]schoolyear.SchoolYear, error) {
	years := []schoolyear.SchoolYear{}
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &years, "SELECT "+yearColumns+" FROM school_years ORDER BY name DESC"); err != nil {
		return nil, errors.Wrap(err, "querying school years")
	}
	return years, nil
}

func (r schoolYearRepository) DeactivateAllYears(ctx context.Context, exec ...core.DBExecutor) error {
	_, err := r.getExec(exec).ExecContext(ctx, "UPDATE school_years SET is_active = FALSE WHERE is_active")
	return errors.Wrap(err, "deactivating school years")
}

func (r schoolYearRepository) SetYearActive(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, "UPDATE school_years SET is_active = TRUE WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "activating school year")
	}
	return expectAffected(res, schoolyear.ErrNotFound, "activating school year")
}

func (r schoolYearRepository) SetYearLocked(ctx context.Context, id int, locked bool, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, "UPDATE school_years SET is_locked = $2 WHERE id = $1", id, locked)
	if err != nil {
		return errors.Wrap(err, "locking school year")
	}
	return expectAffected(res, schoolyear.ErrNotFound, "locking school year")
}
