package inmemdb

import (
	"context"
	"sort"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
)

type schoolYearRepository struct {
	db *DB
}

var _ schoolyear.Repository = (*schoolYearRepository)(nil) // interface compliance check

func NewSchoolYearRepository(db *DB) *schoolYearRepository {
	return &schoolYearRepository{db: db}
}

func (repo *schoolYearRepository) CreateYear(_ context.Context, year schoolyear.SchoolYear, exec ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	defer repo.db.writeLock(exec)()

	year.ID = repo.db.nextPK()
	repo.db.t.years[year.ID] = year
	return year, nil
}

func (repo *schoolYearRepository) GetYear(_ context.Context, id int, _ ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if year, ok := repo.db.t.years[id]; ok {
		return year, nil
	}
	return schoolyear.SchoolYear{}, schoolyear.ErrNotFound
}

func (repo *schoolYearRepository) GetYearByName(_ context.Context, name string, _ ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, year := range repo.db.t.years {
		if year.Name == name {
			return year, nil
		}
	}
	return schoolyear.SchoolYear{}, schoolyear.ErrNotFound
}

func (repo *schoolYearRepository) GetActiveYear(_ context.Context, _ ...core.DBExecutor) (schoolyear.SchoolYear, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, year := range repo.db.t.years {
		if year.IsActive {
			return year, nil
		}
	}
	return schoolyear.SchoolYear{}, schoolyear.ErrNoActiveYear
}

func (repo *schoolYearRepository) QueryYears(_ context.Context, _ ...core.DBExecutor) ([]schoolyear.SchoolYear, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	years := make([]schoolyear.SchoolYear, 0, len(repo.db.t.years))
	for _, year := range repo.db.t.years {
		years = append(years, year)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Name > years[j].Name })
	return years, nil
}

func (repo *schoolYearRepository) DeactivateAllYears(_ context.Context, exec ...core.DBExecutor) error {
	defer repo.db.writeLock(exec)()

	for id, year := range repo.db.t.years {
		year.IsActive = false
		repo.db.t.years[id] = year
	}
	return nil
}

func (repo *schoolYearRepository) update(id int, fn func(*schoolyear.SchoolYear), exec []core.DBExecutor) error {
	defer repo.db.writeLock(exec)()

	year, ok := repo.db.t.years[id]
	if !ok {
		return schoolyear.ErrNotFound
	}
	fn(&year)
	repo.db.t.years[id] = year
	return nil
}

func (repo *schoolYearRepository) SetYearActive(_ context.Context, id int, exec ...core.DBExecutor) error {
	return repo.update(id, func(y *schoolyear.SchoolYear) { y.IsActive = true }, exec)
}

func (repo *schoolYearRepository) SetYearLocked(_ context.Context, id int, locked bool, exec ...core.DBExecutor) error {
	return repo.update(id, func(y *schoolyear.SchoolYear) { y.IsLocked = locked }, exec)
}
