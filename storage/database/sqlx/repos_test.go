package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
	sqlxrepos "github.com/trezcool/registro/storage/database/sqlx"
	"github.com/trezcool/registro/testutil"
)

// These tests run against $TEST_DATABASE_URL and are skipped without it.

func TestUserRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.ResetDB(t, db)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	usr := testutil.CreateUser(t, repo, "ana", "ana@registro.test", user.RoleStudent, true)
	assert.NotZero(t, usr.ID)

	assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "ana"))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "ana", usr))
	_, err := repo.CreateUser(ctx, user.User{Username: "ana", DateJoined: time.Now().UTC()})
	assert.Equal(t, user.ErrUsernameExists, err)

	got, err := repo.GetUser(ctx, user.GetFilter{Username: "ana"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	_, err = repo.GetUser(ctx, user.GetFilter{ID: usr.ID + 100})
	assert.Equal(t, user.ErrNotFound, err)

	now := time.Now().UTC().Truncate(time.Second)
	got.LastLogin = null.TimeFrom(now)
	got.IsActive = false
	updated, err := repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.LastLogin.Time.Equal(now))

	prof, err := repo.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, prof.Role)

	prof, err = repo.SaveProfile(ctx, user.Profile{UserID: usr.ID, Role: user.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, prof.Role)

	other := testutil.CreateUser(t, repo, "beto", "", user.RoleNone, true)
	_, err = repo.GetProfile(ctx, other.ID)
	assert.Equal(t, user.ErrProfileNotFound, err)
}

func TestUserRepository_CreateUserWithProfile(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.ResetDB(t, db)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)
	newUser := user.User{Username: "ana", IsActive: true, DateJoined: time.Now().UTC()}

	// the role CHECK constraint fails after the user row was inserted: both roll back
	_, _, err := repo.CreateUserWithProfile(ctx, newUser, "admin")
	require.Error(t, err)
	_, err = repo.GetUser(ctx, user.GetFilter{Username: "ana"})
	assert.Equal(t, user.ErrNotFound, err)

	usr, prof, err := repo.CreateUserWithProfile(ctx, newUser, user.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, prof.UserID)
	assert.Equal(t, user.RoleTeacher, prof.Role)

	_, _, err = repo.CreateUserWithProfile(ctx, newUser, user.RoleStudent)
	assert.Equal(t, user.ErrUsernameExists, err)
}

func TestCourseRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.ResetDB(t, db)
	ctx := context.Background()
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewCourseRepository(db)

	teacher := testutil.CreateUser(t, usrRepo, "profe", "", user.RoleTeacher, true)
	s1 := testutil.CreateUser(t, usrRepo, "alumno1", "", user.RoleStudent, true)
	s2 := testutil.CreateUser(t, usrRepo, "alumno2", "", user.RoleStudent, true)

	mat := testutil.CreateCourse(t, repo, teacher.ID, "MAT1", "Matemáticas", "Primaria")
	testutil.CreateCourse(t, repo, teacher.ID, "FIS1", "Física", "Secundaria")

	assert.Equal(t, course.ErrCodeExists, repo.CheckCodeUniqueness(ctx, "MAT1"))
	_, err := repo.CreateCourse(ctx, course.Course{Name: "x", Code: "MAT1", Level: "x", TeacherID: teacher.ID})
	assert.Equal(t, course.ErrCodeExists, err)

	_, err = repo.GetCourse(ctx, course.GetFilter{ID: mat.ID, TeacherID: s1.ID})
	assert.Equal(t, course.ErrNotFound, err)

	courses, err := repo.QueryCourses(ctx, course.QueryFilter{Name: "fís"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "FIS1", courses[0].Code)

	enr, created, err := repo.EnrollStudent(ctx, course.Enrollment{StudentID: s1.ID, CourseID: mat.ID, FullName: "Ana", NationalID: "1", EnrolledAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alumno1", enr.StudentUsername)

	again, created, err := repo.EnrollStudent(ctx, course.Enrollment{StudentID: s1.ID, CourseID: mat.ID, FullName: "Otra", NationalID: "2", EnrolledAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, enr.ID, again.ID)
	assert.Equal(t, "Ana", again.FullName)

	ids, err := repo.EnrolledCourseIDs(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{mat.ID}, ids)

	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkAttendance(ctx, mat.ID, day, []course.AttendanceMark{
		{StudentID: s1.ID, Status: course.StatusPresent},
		{StudentID: s2.ID, Status: course.StatusPresent},
	}))
	require.NoError(t, repo.MarkAttendance(ctx, mat.ID, day, []course.AttendanceMark{
		{StudentID: s1.ID, Status: course.StatusAbsent},
	}))

	records, err := repo.QueryAttendance(ctx, mat.ID, 20)
	require.NoError(t, err)
	require.Len(t, records, 2)
	statuses := map[string]course.AttendanceStatus{}
	for _, r := range records {
		assert.Equal(t, "2024-05-06", r.SessionDate.Format("2006-01-02"))
		statuses[r.StudentUsername] = r.Status
	}
	assert.Equal(t, map[string]course.AttendanceStatus{"alumno1": course.StatusAbsent, "alumno2": course.StatusPresent}, statuses)
}

func TestCourseworkRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.ResetDB(t, db)
	ctx := context.Background()
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewCourseworkRepository(db)

	teacher := testutil.CreateUser(t, usrRepo, "profe", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "alumno", "", user.RoleStudent, true)
	mat := testutil.CreateCourse(t, courseRepo, teacher.ID, "MAT1", "Matemáticas", "Primaria")

	m, err := repo.CreateMaterial(ctx, coursework.Material{
		CourseID:  mat.ID,
		Type:      coursework.MaterialPDF,
		Title:     "Guía",
		File:      null.StringFrom("materials/guia.pdf"),
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	materials, err := repo.QueryMaterials(ctx, mat.ID)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, m.File, materials[0].File)

	act := testutil.CreateActivity(t, repo, mat.ID, "Tarea 1")
	_, err = repo.GetActivity(ctx, act.ID+100)
	assert.Equal(t, coursework.ErrActivityNotFound, err)

	sub, err := repo.UpsertSubmission(ctx, coursework.Submission{
		ActivityID:  act.ID,
		StudentID:   student.ID,
		Attachment:  null.StringFrom("submissions/v1.pdf"),
		SubmittedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Matemáticas", sub.CourseName)
	assert.Equal(t, "Tarea 1", sub.ActivityTitle)

	graded, err := repo.SetGrade(ctx, sub.ID, types.NewNullDecimal(decimal.New(850, 2)))
	require.NoError(t, err)
	assert.Equal(t, "8.50", graded.GradeString())

	resub, err := repo.UpsertSubmission(ctx, coursework.Submission{
		ActivityID:  act.ID,
		StudentID:   student.ID,
		Link:        "https://example.com",
		SubmittedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, resub.ID)
	assert.False(t, resub.Attachment.Valid)
	assert.Equal(t, "8.50", resub.GradeString())

	_, err = repo.GetSubmission(ctx, coursework.SubmissionFilter{ID: sub.ID, TeacherID: student.ID})
	assert.Equal(t, coursework.ErrSubmissionNotFound, err)

	pending, err := repo.QuerySubmissions(ctx, coursework.SubmissionFilter{TeacherID: teacher.ID, Ungraded: true})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = repo.SetGrade(ctx, sub.ID+100, types.NullDecimal{})
	assert.Equal(t, coursework.ErrSubmissionNotFound, err)
}

func TestNotificationRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.ResetDB(t, db)
	ctx := context.Background()
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewNotificationRepository(db)

	teacher := testutil.CreateUser(t, usrRepo, "profe", "profe@registro.test", user.RoleTeacher, true)
	enrolled := testutil.CreateUser(t, usrRepo, "alumno", "alumno@registro.test", user.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "otro", "otro@registro.test", user.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "inactivo", "inactivo@registro.test", user.RoleStudent, false)
	mat := testutil.CreateCourse(t, courseRepo, teacher.ID, "MAT1", "Matemáticas", "Primaria")
	testutil.Enroll(t, courseRepo, mat.ID, enrolled.ID, "Ana")

	n, err := repo.CreateNotification(ctx, notification.Notification{
		CourseID:    null.Int64From(mat.ID),
		CreatedByID: teacher.ID,
		Message:     "Hola",
		Audience:    notification.AudienceStudents,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "profe", n.AuthorUsername)
	assert.Equal(t, "Matemáticas", n.CourseName.String)

	notifs, err := repo.QueryNotifications(ctx, notification.QueryFilter{Audiences: []notification.Audience{notification.AudienceTeachers}})
	require.NoError(t, err)
	assert.Empty(t, notifs)

	usernames := func(users []user.User) []string {
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.Username)
		}
		return names
	}

	users, err := repo.QueryRecipients(ctx, notification.RecipientFilter{Roles: []user.Role{user.RoleStudent}})
	require.NoError(t, err)
	assert.Equal(t, []string{"alumno", "otro"}, usernames(users))

	users, err = repo.QueryRecipients(ctx, notification.RecipientFilter{
		Roles:         []user.Role{user.RoleTeacher, user.RoleStudent},
		CourseID:      mat.ID,
		ExcludeUserID: teacher.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alumno"}, usernames(users))
}
