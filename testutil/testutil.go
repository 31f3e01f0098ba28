// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/user"
	logsvc "github.com/trezcool/registro/services/logger"
	"github.com/trezcool/registro/storage/database"
)

// Password passes every password policy check.
const Password = "correcto-caballo-42"

func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		Build:     "test",
		TestMode:  true,
		AppName:   "Registro",
		SecretKey: "test-secret-key",
		TimeZone:  "UTC",
		Server: core.ServerConfig{
			Address:            ":0",
			ReadTimeout:        5 * time.Second,
			WriteTimeout:       5 * time.Second,
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
			MaxUploadSize:      "1M",
		},
		Mail: core.MailConfig{
			FromName:    "Registro",
			FromAddress: "noreply@registro.test",
			Notify:      true,
			BaseURL:     "http://registro.test",
		},
		Storage: core.StorageConfig{Backend: "local", BaseURL: "/media/"},
	}
}

// NewLogger returns a logger writing to nowhere, Rollbar disabled.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom tag and Spanish translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	coursework.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, uname, email string, role user.Role, isActive bool) user.User {
	t.Helper()
	ctx := context.Background()

	usr := user.User{
		Username:   uname,
		Email:      email,
		IsActive:   isActive,
		DateJoined: time.Now().UTC(),
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(ctx, usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if role != user.RoleNone {
		if _, err := repo.SaveProfile(ctx, user.Profile{UserID: usr.ID, Role: role}); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, teacherID int64, code, name, level string) course.Course {
	t.Helper()
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Name:      name,
		Code:      code,
		Level:     level,
		TeacherID: teacherID,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo course.Repository, courseID, studentID int64, fullName string) course.Enrollment {
	t.Helper()
	enr, _, err := repo.EnrollStudent(context.Background(), course.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		FullName:   fullName,
		NationalID: "0000",
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateActivity(t *testing.T, repo coursework.Repository, courseID int64, title string) coursework.Activity {
	t.Helper()
	now := time.Now().UTC()
	act, err := repo.CreateActivity(context.Background(), coursework.Activity{
		CourseID:    courseID,
		Title:       title,
		Description: title,
		DueDate:     now.Add(24 * time.Hour),
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateActivity() failed: %v", err)
	}
	return act
}

// OpenDB connects to $TEST_DATABASE_URL and migrates it.
// The test is skipped when the variable is not set.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(url)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE app_user, profile, course, enrollment, attendance, material,
		activity, submission, notification RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}
