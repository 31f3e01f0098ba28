package coursework

import (
	"context"
	"errors"
	"time"

	perrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/registro/core"
)

const (
	materialsDir   = "materials"
	submissionsDir = "submissions"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrActivityNotFound   = errors.New("activity not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrMaterialNeedsFile  = errors.New("Sube un archivo para este material.")
	ErrMaterialNeedsURL   = errors.New("Agrega el enlace del recurso.")
	ErrSubmissionEmpty    = errors.New("Sube un archivo o agrega un enlace de tu entrega.")
)

type (
	Repository interface {
		CreateMaterial(ctx context.Context, m Material) (Material, error)
		// QueryMaterials returns the course materials, newest first.
		QueryMaterials(ctx context.Context, courseID int64) ([]Material, error)

		CreateActivity(ctx context.Context, a Activity) (Activity, error)
		GetActivity(ctx context.Context, id int64) (Activity, error)
		// QueryActivities returns the course activities, newest first.
		QueryActivities(ctx context.Context, courseID int64) ([]Activity, error)

		// UpsertSubmission inserts the submission or, when (activity, student) exists,
		// overwrites its attachment and link only.
		UpsertSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, filter SubmissionFilter) (Submission, error)
		// QuerySubmissions returns the matching submissions, oldest first.
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		// SetGrade writes the grade column only.
		SetGrade(ctx context.Context, id int64, grade types.NullDecimal) (Submission, error)
	}

	ServiceInterface interface {
		CreateMaterial(ctx context.Context, courseID int64, nm NewMaterial) (Material, error)
		Materials(ctx context.Context, courseID int64) ([]Material, error)
		CreateActivity(ctx context.Context, courseID int64, na NewActivity) (Activity, error)
		GetActivity(ctx context.Context, id int64) (Activity, error)
		Activities(ctx context.Context, courseID int64) ([]Activity, error)
		Submit(ctx context.Context, activityID, studentID int64, ns NewSubmission) (Submission, error)
		StudentSubmission(ctx context.Context, activityID, studentID int64) (Submission, error)
		GetGradable(ctx context.Context, id, teacherID int64) (Submission, error)
		Grade(ctx context.Context, id, teacherID int64, gi GradeInput) (Submission, error)
		CourseSubmissions(ctx context.Context, courseID int64) ([]Submission, error)
		PendingSubmissions(ctx context.Context, teacherID int64, limit int) ([]Submission, error)
		FileURL(key string) string
	}

	Service struct {
		repo  Repository
		files core.FileStorage
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, files core.FileStorage) *Service {
	return &Service{repo: repo, files: files}
}

func (svc *Service) saveFile(ctx context.Context, dir string, up *core.Upload) (null.String, error) {
	if up == nil {
		return null.String{}, nil
	}
	key, err := svc.files.Save(ctx, dir, up)
	if err != nil {
		return null.String{}, perrors.Wrap(err, "saving "+up.Filename)
	}
	return null.StringFrom(key), nil
}

func (svc *Service) CreateMaterial(ctx context.Context, courseID int64, nm NewMaterial) (Material, error) {
	file, err := svc.saveFile(ctx, materialsDir, nm.File)
	if err != nil {
		return Material{}, err
	}
	return svc.repo.CreateMaterial(ctx, Material{
		CourseID:    courseID,
		Type:        nm.Type,
		Title:       nm.Title,
		Description: nm.Description,
		File:        file,
		URL:         nm.URL,
		CreatedAt:   nowFunc().UTC(),
	})
}

func (svc *Service) Materials(ctx context.Context, courseID int64) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, courseID)
}

func (svc *Service) CreateActivity(ctx context.Context, courseID int64, na NewActivity) (Activity, error) {
	return svc.repo.CreateActivity(ctx, Activity{
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.dueDate.UTC(),
		CreatedAt:   nowFunc().UTC(),
	})
}

func (svc *Service) GetActivity(ctx context.Context, id int64) (Activity, error) {
	return svc.repo.GetActivity(ctx, id)
}

func (svc *Service) Activities(ctx context.Context, courseID int64) ([]Activity, error) {
	return svc.repo.QueryActivities(ctx, courseID)
}

// Submit stores the student's work for the activity, replacing a previous
// attachment/link but keeping its grade.
func (svc *Service) Submit(ctx context.Context, activityID, studentID int64, ns NewSubmission) (Submission, error) {
	attachment, err := svc.saveFile(ctx, submissionsDir, ns.Attachment)
	if err != nil {
		return Submission{}, err
	}
	return svc.repo.UpsertSubmission(ctx, Submission{
		ActivityID:  activityID,
		StudentID:   studentID,
		Attachment:  attachment,
		Link:        ns.Link,
		SubmittedAt: nowFunc().UTC(),
	})
}

func (svc *Service) StudentSubmission(ctx context.Context, activityID, studentID int64) (Submission, error) {
	return svc.repo.GetSubmission(ctx, SubmissionFilter{ActivityID: activityID, StudentID: studentID})
}

// GetGradable returns the submission only if it belongs to a course taught by teacherID.
func (svc *Service) GetGradable(ctx context.Context, id, teacherID int64) (Submission, error) {
	if teacherID == 0 {
		return Submission{}, ErrSubmissionNotFound
	}
	return svc.repo.GetSubmission(ctx, SubmissionFilter{ID: id, TeacherID: teacherID})
}

func (svc *Service) Grade(ctx context.Context, id, teacherID int64, gi GradeInput) (Submission, error) {
	sub, err := svc.GetGradable(ctx, id, teacherID)
	if err != nil {
		return Submission{}, err
	}
	return svc.repo.SetGrade(ctx, sub.ID, gi.grade)
}

func (svc *Service) CourseSubmissions(ctx context.Context, courseID int64) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, SubmissionFilter{CourseID: courseID})
}

// PendingSubmissions returns the oldest ungraded submissions across the teacher's courses.
func (svc *Service) PendingSubmissions(ctx context.Context, teacherID int64, limit int) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, SubmissionFilter{TeacherID: teacherID, Ungraded: true, Limit: limit})
}

func (svc *Service) FileURL(key string) string {
	if key == "" {
		return ""
	}
	return svc.files.URL(key)
}
