package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/coursework"
)

const (
	materialColumns = "id, course_id, type, title, description, file, url, created_at"
	activityColumns = "id, course_id, title, description, due_date, created_at"
)

type courseworkRepository struct {
	db core.DBExecutor
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db core.DBExecutor) *courseworkRepository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateMaterial(ctx context.Context, m coursework.Material) (coursework.Material, error) {
	q, args, err := psql.Insert("material").
		Columns("course_id", "type", "title", "description", "file", "url", "created_at").
		Values(m.CourseID, m.Type, m.Title, m.Description, m.File, m.URL, m.CreatedAt).
		Suffix("RETURNING " + materialColumns).
		ToSql()
	if err != nil {
		return coursework.Material{}, errors.Wrap(err, "building query")
	}

	var created coursework.Material
	if err = repo.db.GetContext(ctx, &created, q, args...); err != nil {
		return coursework.Material{}, errors.Wrap(err, "inserting material")
	}
	return created, nil
}

func (repo *courseworkRepository) QueryMaterials(ctx context.Context, courseID int64) ([]coursework.Material, error) {
	q, args, err := psql.Select(materialColumns).From("material").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	materials := make([]coursework.Material, 0)
	if err = repo.db.SelectContext(ctx, &materials, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting materials")
	}
	return materials, nil
}

func (repo *courseworkRepository) CreateActivity(ctx context.Context, a coursework.Activity) (coursework.Activity, error) {
	q, args, err := psql.Insert("activity").
		Columns("course_id", "title", "description", "due_date", "created_at").
		Values(a.CourseID, a.Title, a.Description, a.DueDate, a.CreatedAt).
		Suffix("RETURNING " + activityColumns).
		ToSql()
	if err != nil {
		return coursework.Activity{}, errors.Wrap(err, "building query")
	}

	var created coursework.Activity
	if err = repo.db.GetContext(ctx, &created, q, args...); err != nil {
		return coursework.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return created, nil
}

func (repo *courseworkRepository) GetActivity(ctx context.Context, id int64) (coursework.Activity, error) {
	q, args, err := psql.Select(activityColumns).From("activity").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return coursework.Activity{}, errors.Wrap(err, "building query")
	}

	var a coursework.Activity
	if err = repo.db.GetContext(ctx, &a, q, args...); err != nil {
		return coursework.Activity{}, trapNoRowsErr(err, coursework.ErrActivityNotFound, "selecting activity")
	}
	return a, nil
}

func (repo *courseworkRepository) QueryActivities(ctx context.Context, courseID int64) ([]coursework.Activity, error) {
	q, args, err := psql.Select(activityColumns).From("activity").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	activities := make([]coursework.Activity, 0)
	if err = repo.db.SelectContext(ctx, &activities, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting activities")
	}
	return activities, nil
}

func submissionQuery(filter coursework.SubmissionFilter) sq.SelectBuilder {
	query := psql.Select(
		"s.id", "s.activity_id", "s.student_id", "s.attachment", "s.link", "s.submitted_at", "s.grade",
		"u.username AS student_username",
		"a.title AS activity_title",
		"c.id AS course_id",
		"c.name AS course_name",
	).From("submission s").
		Join("app_user u ON u.id = s.student_id").
		Join("activity a ON a.id = s.activity_id").
		Join("course c ON c.id = a.course_id").
		OrderBy("s.id")

	if filter.ID != 0 {
		query = query.Where(sq.Eq{"s.id": filter.ID})
	}
	if filter.ActivityID != 0 {
		query = query.Where(sq.Eq{"s.activity_id": filter.ActivityID})
	}
	if filter.StudentID != 0 {
		query = query.Where(sq.Eq{"s.student_id": filter.StudentID})
	}
	if filter.CourseID != 0 {
		query = query.Where(sq.Eq{"c.id": filter.CourseID})
	}
	if filter.TeacherID != 0 {
		query = query.Where(sq.Eq{"c.teacher_id": filter.TeacherID})
	}
	if filter.Ungraded {
		query = query.Where(sq.Eq{"s.grade": nil})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	return query
}

func (repo *courseworkRepository) UpsertSubmission(ctx context.Context, s coursework.Submission) (coursework.Submission, error) {
	q, args, err := psql.Insert("submission").
		Columns("activity_id", "student_id", "attachment", "link", "submitted_at").
		Values(s.ActivityID, s.StudentID, s.Attachment, s.Link, s.SubmittedAt).
		Suffix("ON CONFLICT (activity_id, student_id) DO UPDATE SET attachment = EXCLUDED.attachment, link = EXCLUDED.link RETURNING id").
		ToSql()
	if err != nil {
		return coursework.Submission{}, errors.Wrap(err, "building query")
	}

	var id int64
	if err = repo.db.GetContext(ctx, &id, q, args...); err != nil {
		return coursework.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return repo.GetSubmission(ctx, coursework.SubmissionFilter{ID: id})
}

func (repo *courseworkRepository) GetSubmission(ctx context.Context, filter coursework.SubmissionFilter) (coursework.Submission, error) {
	q, args, err := submissionQuery(filter).Limit(1).ToSql()
	if err != nil {
		return coursework.Submission{}, errors.Wrap(err, "building query")
	}

	var sub coursework.Submission
	if err = repo.db.GetContext(ctx, &sub, q, args...); err != nil {
		return coursework.Submission{}, trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "selecting submission")
	}
	return sub, nil
}

func (repo *courseworkRepository) QuerySubmissions(ctx context.Context, filter coursework.SubmissionFilter) ([]coursework.Submission, error) {
	q, args, err := submissionQuery(filter).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	subs := make([]coursework.Submission, 0)
	if err = repo.db.SelectContext(ctx, &subs, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	return subs, nil
}

func (repo *courseworkRepository) SetGrade(ctx context.Context, id int64, grade types.NullDecimal) (coursework.Submission, error) {
	q, args, err := psql.Update("submission").Set("grade", grade).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return coursework.Submission{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return coursework.Submission{}, errors.Wrap(err, "updating grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	return repo.GetSubmission(ctx, coursework.SubmissionFilter{ID: id})
}
