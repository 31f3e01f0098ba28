package inmemdb

import (
	"context"
	"sort"

	"github.com/ericlagergren/decimal"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
)

type courseworkRepository struct {
	db *DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateMaterial(_ context.Context, m coursework.Material) (coursework.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[m.CourseID]; !ok {
		return coursework.Material{}, course.ErrNotFound
	}
	m.ID = repo.db.nextID("material")
	repo.db.materials[m.ID] = &m
	return m, nil
}

func (repo *courseworkRepository) QueryMaterials(_ context.Context, courseID int64) ([]coursework.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	materials := make([]coursework.Material, 0)
	for _, m := range repo.db.materials {
		if m.CourseID == courseID {
			materials = append(materials, *m)
		}
	}
	sort.Slice(materials, func(i, j int) bool {
		if !materials[i].CreatedAt.Equal(materials[j].CreatedAt) {
			return materials[i].CreatedAt.After(materials[j].CreatedAt)
		}
		return materials[i].ID > materials[j].ID
	})
	return materials, nil
}

func (repo *courseworkRepository) CreateActivity(_ context.Context, a coursework.Activity) (coursework.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[a.CourseID]; !ok {
		return coursework.Activity{}, course.ErrNotFound
	}
	a.ID = repo.db.nextID("activity")
	repo.db.activities[a.ID] = &a
	return a, nil
}

func (repo *courseworkRepository) GetActivity(_ context.Context, id int64) (coursework.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.activities[id]; ok {
		return *a, nil
	}
	return coursework.Activity{}, coursework.ErrActivityNotFound
}

func (repo *courseworkRepository) QueryActivities(_ context.Context, courseID int64) ([]coursework.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	activities := make([]coursework.Activity, 0)
	for _, a := range repo.db.activities {
		if a.CourseID == courseID {
			activities = append(activities, *a)
		}
	}
	sort.Slice(activities, func(i, j int) bool {
		if !activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].CreatedAt.After(activities[j].CreatedAt)
		}
		return activities[i].ID > activities[j].ID
	})
	return activities, nil
}

// copyGrade keeps stored grades apart from the callers' *decimal.Big, like a NUMERIC column.
func copyGrade(grade types.NullDecimal) types.NullDecimal {
	if grade.Big == nil {
		return types.NullDecimal{}
	}
	return types.NewNullDecimal(new(decimal.Big).Copy(grade.Big))
}

// withRefs fills the read-only fields of sub. Must be called with the lock held.
func (repo *courseworkRepository) withRefs(sub coursework.Submission) coursework.Submission {
	sub.Grade = copyGrade(sub.Grade)
	sub.StudentUsername = repo.db.username(sub.StudentID)
	if a, ok := repo.db.activities[sub.ActivityID]; ok {
		sub.ActivityTitle = a.Title
		sub.CourseID = a.CourseID
		if c, ok := repo.db.courses[a.CourseID]; ok {
			sub.CourseName = c.Name
		}
	}
	return sub
}

func (repo *courseworkRepository) UpsertSubmission(_ context.Context, s coursework.Submission) (coursework.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.activities[s.ActivityID]; !ok {
		return coursework.Submission{}, coursework.ErrActivityNotFound
	}
	for _, existing := range repo.db.submissions {
		if existing.ActivityID == s.ActivityID && existing.StudentID == s.StudentID {
			existing.Attachment = s.Attachment
			existing.Link = s.Link
			return repo.withRefs(*existing), nil
		}
	}

	s.ID = repo.db.nextID("submission")
	s.Grade = types.NullDecimal{}
	stored := s
	repo.db.submissions[s.ID] = &stored
	return repo.withRefs(s), nil
}

func (repo *courseworkRepository) matches(sub coursework.Submission, filter coursework.SubmissionFilter) bool {
	if filter.ID != 0 && sub.ID != filter.ID {
		return false
	}
	if filter.ActivityID != 0 && sub.ActivityID != filter.ActivityID {
		return false
	}
	if filter.StudentID != 0 && sub.StudentID != filter.StudentID {
		return false
	}
	if filter.CourseID != 0 && sub.CourseID != filter.CourseID {
		return false
	}
	if filter.TeacherID != 0 {
		c, ok := repo.db.courses[sub.CourseID]
		if !ok || c.TeacherID != filter.TeacherID {
			return false
		}
	}
	if filter.Ungraded && sub.IsGraded() {
		return false
	}
	return true
}

func (repo *courseworkRepository) GetSubmission(_ context.Context, filter coursework.SubmissionFilter) (coursework.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.submissions {
		if sub := repo.withRefs(*s); repo.matches(sub, filter) {
			return sub, nil
		}
	}
	return coursework.Submission{}, coursework.ErrSubmissionNotFound
}

func (repo *courseworkRepository) QuerySubmissions(_ context.Context, filter coursework.SubmissionFilter) ([]coursework.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]coursework.Submission, 0)
	for _, s := range repo.db.submissions {
		if sub := repo.withRefs(*s); repo.matches(sub, filter) {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	if filter.Limit > 0 && len(subs) > filter.Limit {
		subs = subs[:filter.Limit]
	}
	return subs, nil
}

func (repo *courseworkRepository) SetGrade(_ context.Context, id int64, grade types.NullDecimal) (coursework.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.submissions[id]
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	sub.Grade = copyGrade(grade)
	return repo.withRefs(*sub), nil
}
