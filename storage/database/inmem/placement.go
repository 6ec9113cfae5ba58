package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

type placementRepository struct {
	db *DB
}

var _ placement.Repository = (*placementRepository)(nil) // interface compliance check

func NewPlacementRepository(db *DB) *placementRepository {
	return &placementRepository{db: db}
}

func (repo *placementRepository) yearOf(e enrollment.Enrollment) int {
	return repo.db.t.classes[e.ClassID].SchoolYearID
}

func (repo *placementRepository) activeInYear(studentID, yearID int) bool {
	for _, e := range repo.db.t.enrollments {
		if e.StudentID == studentID && e.IsActive && repo.yearOf(e) == yearID {
			return true
		}
	}
	return false
}

func (repo *placementRepository) QueryEligibleStudents(_ context.Context, sourceYearID, targetYearID int, _ ...core.DBExecutor) ([]placement.EligibleStudent, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]placement.EligibleStudent, 0)
	for _, e := range repo.db.t.enrollments {
		if !e.IsActive || repo.yearOf(e) != sourceYearID {
			continue
		}
		s, ok := repo.db.t.students[e.StudentID]
		if !ok || !s.IsActive || repo.activeInYear(s.ID, targetYearID) {
			continue
		}
		cls := repo.db.t.classes[e.ClassID]
		list = append(list, placement.EligibleStudent{
			StudentID:        s.ID,
			LRN:              s.LRN,
			FirstName:        s.FirstName,
			LastName:         s.LastName,
			ParentPhone:      s.ParentPhone,
			ParentEmail:      s.ParentEmail,
			SourceClassID:    cls.ID,
			SourceGradeLevel: cls.GradeLevel,
			SourceSection:    cls.Section,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.SourceGradeLevel != b.SourceGradeLevel {
			return a.SourceGradeLevel < b.SourceGradeLevel
		}
		if a.SourceSection != b.SourceSection {
			return a.SourceSection < b.SourceSection
		}
		return lessName(a.LastName, a.FirstName, a.StudentID, b.LastName, b.FirstName, b.StudentID)
	})
	return list, nil
}

func (repo *placementRepository) QueryPlacedStudents(_ context.Context, sourceYearID, targetYearID int, _ ...core.DBExecutor) ([]placement.PlacedStudent, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]placement.PlacedStudent, 0)
	for _, e := range repo.db.t.enrollments {
		if !e.IsActive || repo.yearOf(e) != targetYearID {
			continue
		}
		s := repo.db.t.students[e.StudentID]
		cls := repo.db.t.classes[e.ClassID]
		ps := placement.PlacedStudent{
			StudentID:        s.ID,
			LRN:              s.LRN,
			FirstName:        s.FirstName,
			LastName:         s.LastName,
			TargetClassID:    cls.ID,
			TargetGradeLevel: cls.GradeLevel,
			TargetSection:    cls.Section,
		}
		if src, ok := repo.sourceEnrollment(s.ID, sourceYearID); ok {
			srcCls := repo.db.t.classes[src.ClassID]
			ps.SourceGradeLevel = null.StringFrom(srcCls.GradeLevel)
			ps.SourceSection = null.StringFrom(srcCls.Section)
		}
		list = append(list, ps)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.TargetGradeLevel != b.TargetGradeLevel {
			return a.TargetGradeLevel < b.TargetGradeLevel
		}
		if a.TargetSection != b.TargetSection {
			return a.TargetSection < b.TargetSection
		}
		return lessName(a.LastName, a.FirstName, a.StudentID, b.LastName, b.FirstName, b.StudentID)
	})
	return list, nil
}

// sourceEnrollment prefers the active enrollment of the year, then the most recent one.
func (repo *placementRepository) sourceEnrollment(studentID, yearID int) (enrollment.Enrollment, bool) {
	var (
		best  enrollment.Enrollment
		found bool
	)
	for _, e := range repo.db.t.enrollments {
		if e.StudentID != studentID || repo.yearOf(e) != yearID {
			continue
		}
		if !found || (e.IsActive && !best.IsActive) || (e.IsActive == best.IsActive && e.ID > best.ID) {
			best, found = e, true
		}
	}
	return best, found
}

func (repo *placementRepository) CountActiveEnrollmentsByClass(_ context.Context, yearID int, _ ...core.DBExecutor) (map[int]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[int]int)
	for _, cls := range repo.db.t.classes {
		if cls.SchoolYearID == yearID {
			counts[cls.ID] = 0
		}
	}
	for _, e := range repo.db.t.enrollments {
		if _, ok := counts[e.ClassID]; ok && e.IsActive {
			counts[e.ClassID]++
		}
	}
	return counts, nil
}

func (repo *placementRepository) QueryClassRoster(_ context.Context, classID int, _ ...core.DBExecutor) ([]placement.RosterEntry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var students []student.Student
	enrollmentOf := make(map[int]int)
	for _, e := range repo.db.t.enrollments {
		if e.ClassID == classID && e.IsActive {
			students = append(students, repo.db.t.students[e.StudentID])
			enrollmentOf[e.StudentID] = e.ID
		}
	}
	sortStudents(students)

	roster := make([]placement.RosterEntry, 0, len(students))
	for _, s := range students {
		roster = append(roster, placement.RosterEntry{
			EnrollmentID: enrollmentOf[s.ID],
			StudentID:    s.ID,
			LRN:          s.LRN,
			FirstName:    s.FirstName,
			LastName:     s.LastName,
		})
	}
	return roster, nil
}

func lessName(lastA, firstA string, idA int, lastB, firstB string, idB int) bool {
	if lastA != lastB {
		return lastA < lastB
	}
	if firstA != firstB {
		return firstA < firstB
	}
	return idA < idB
}
