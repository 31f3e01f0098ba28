package inmemdb_test

import (
	"context"
	"testing"

	"github.com/ericlagergren/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/user"
	"github.com/trezcool/registro/storage/database/inmem"
	"github.com/trezcool/registro/testutil"
)

func TestCourseworkRepository_SetGrade(t *testing.T) {
	db := inmemdb.Open()
	ctx := context.Background()
	usrRepo := inmemdb.NewUserRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	repo := inmemdb.NewCourseworkRepository(db)

	teacher := testutil.CreateUser(t, usrRepo, "profe", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "alumno", "", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, courseRepo, teacher.ID, "MAT1", "Matemáticas", "Primaria")
	act := testutil.CreateActivity(t, repo, crs.ID, "Tarea 1")
	sub, err := repo.UpsertSubmission(ctx, coursework.Submission{ActivityID: act.ID, StudentID: student.ID, Link: "https://example.com"})
	require.NoError(t, err)

	grade := decimal.New(850, 2)
	graded, err := repo.SetGrade(ctx, sub.ID, types.NewNullDecimal(grade))
	require.NoError(t, err)
	assert.Equal(t, "8.50", graded.GradeString())

	// neither the caller's value nor a returned one alias the stored grade
	grade.SetMantScale(1, 0)
	graded.Grade.Big.SetMantScale(2, 0)

	stored, err := repo.GetSubmission(ctx, coursework.SubmissionFilter{ID: sub.ID})
	require.NoError(t, err)
	assert.Equal(t, "8.50", stored.GradeString())

	cleared, err := repo.SetGrade(ctx, sub.ID, types.NullDecimal{})
	require.NoError(t, err)
	assert.False(t, cleared.IsGraded())

	_, err = repo.SetGrade(ctx, sub.ID+100, types.NullDecimal{})
	assert.Equal(t, coursework.ErrSubmissionNotFound, err)
}
