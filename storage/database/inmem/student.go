package inmemdb

import (
	"context"
	"sort"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	defer repo.db.writeLock(exec)()

	s.ID = repo.db.nextPK()
	repo.db.t.students[s.ID] = s
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.students[id]; ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudentsByID(_ context.Context, ids []int, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if s, ok := repo.db.t.students[id]; ok && !seen[id] {
			seen[id] = true
			students = append(students, s)
		}
	}
	sortStudents(students)
	return students, nil
}

// SetActive flags a student active or inactive.
func (repo *studentRepository) SetActive(id int, active bool) error {
	defer repo.db.writeLock(nil)()

	s, ok := repo.db.t.students[id]
	if !ok {
		return student.ErrNotFound
	}
	s.IsActive = active
	repo.db.t.students[id] = s
	return nil
}

func sortStudents(students []student.Student) {
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
}
