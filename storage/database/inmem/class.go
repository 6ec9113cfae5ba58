package inmemdb

import (
	"context"
	"sort"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	defer repo.db.writeLock(exec)()

	cls.ID = repo.db.nextPK()
	repo.db.t.classes[cls.ID] = cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, id int, _ ...core.DBExecutor) (class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.t.classes[id]; ok {
		return cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(_ context.Context, filter class.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]class.Class, 0)
	for _, cls := range repo.db.t.classes {
		switch {
		case filter.SchoolYearID > 0 && cls.SchoolYearID != filter.SchoolYearID,
			filter.GradeLevel != "" && cls.GradeLevel != filter.GradeLevel,
			filter.Section != "" && cls.Section != filter.Section,
			filter.ActiveOnly && !cls.IsActive:
			continue
		}
		classes = append(classes, cls)
	}
	// always grade level then section
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].GradeLevel != classes[j].GradeLevel {
			return classes[i].GradeLevel < classes[j].GradeLevel
		}
		if classes[i].Section != classes[j].Section {
			return classes[i].Section < classes[j].Section
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *classRepository) ActiveClassExists(_ context.Context, gradeLevel, section string, yearID, excludedID int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cls := range repo.db.t.classes {
		if cls.IsActive && cls.ID != excludedID && cls.GradeLevel == gradeLevel && cls.Section == section && cls.SchoolYearID == yearID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	defer repo.db.writeLock(exec)()

	orig, ok := repo.db.t.classes[cls.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	// school year and creation time are immutable
	cls.SchoolYearID = orig.SchoolYearID
	cls.CreatedAt = orig.CreatedAt
	repo.db.t.classes[cls.ID] = cls
	return cls, nil
}

func (repo *classRepository) CountActiveEnrollments(_ context.Context, classID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	n := 0
	for _, e := range repo.db.t.enrollments {
		if e.ClassID == classID && e.IsActive {
			n++
		}
	}
	return n, nil
}
