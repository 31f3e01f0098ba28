package coursework

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/registro/core"
)

type MaterialType string

const (
	MaterialPDF   MaterialType = "pdf"
	MaterialVideo MaterialType = "video"
	MaterialLink  MaterialType = "link"
)

type MaterialTypeChoice struct {
	Value MaterialType
	Label string
}

var MaterialTypes = []MaterialTypeChoice{
	{Value: MaterialPDF, Label: "PDF"},
	{Value: MaterialVideo, Label: "Video"},
	{Value: MaterialLink, Label: "Enlace"},
}

// NeedsFile reports whether materials of this type must carry an uploaded file.
func (t MaterialType) NeedsFile() bool {
	return t == MaterialPDF || t == MaterialVideo
}

func (t MaterialType) Label() string {
	for _, c := range MaterialTypes {
		if c.Value == t {
			return c.Label
		}
	}
	return string(t)
}

type Material struct {
	ID          int64        `db:"id"`
	CourseID    int64        `db:"course_id"`
	Type        MaterialType `db:"type"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	File        null.String  `db:"file"` // storage key
	URL         string       `db:"url"`
	CreatedAt   time.Time    `db:"created_at"`
}

type Activity struct {
	ID          int64     `db:"id"`
	CourseID    int64     `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	CreatedAt   time.Time `db:"created_at"`
}

type Submission struct {
	ID          int64             `db:"id"`
	ActivityID  int64             `db:"activity_id"`
	StudentID   int64             `db:"student_id"`
	Attachment  null.String       `db:"attachment"` // storage key
	Link        string            `db:"link"`
	SubmittedAt time.Time         `db:"submitted_at"`
	Grade       types.NullDecimal `db:"grade"`

	// read-only
	StudentUsername string `db:"student_username"`
	ActivityTitle   string `db:"activity_title"`
	CourseID        int64  `db:"course_id"`
	CourseName      string `db:"course_name"`
}

func (s Submission) IsGraded() bool {
	return s.Grade.Big != nil
}

// GradeString formats the grade with two decimals, or "" when ungraded.
func (s Submission) GradeString() string {
	if !s.IsGraded() {
		return ""
	}
	return s.Grade.Big.String()
}

type NewMaterial struct {
	Type        MaterialType `form:"type" validate:"required,oneof=pdf video link"`
	Title       string       `form:"title" validate:"required,notblank,max=150"`
	Description string       `form:"description"`
	URL         string       `form:"url" validate:"omitempty,url,max=200"`
	File        *core.Upload `form:"-"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.URL = core.CleanString(nm.URL)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.Type.NeedsFile() && nm.File == nil {
		return core.NewValidationError(ErrMaterialNeedsFile, core.FieldError{Field: "file", Error: ErrMaterialNeedsFile.Error()})
	}
	if nm.Type == MaterialLink && nm.URL == "" {
		return core.NewValidationError(ErrMaterialNeedsURL, core.FieldError{Field: "url", Error: ErrMaterialNeedsURL.Error()})
	}
	return nil
}

type NewActivity struct {
	Title       string `form:"title" validate:"required,notblank,max=150"`
	Description string `form:"description" validate:"required,notblank"`
	DueDate     string `form:"due_date" validate:"required,datetime_local"`

	dueDate time.Time
}

// Validate checks the form and reads DueDate in loc. Past dates are accepted.
func (na *NewActivity) Validate(validate *validator.Validate, loc *time.Location) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.DueDate = core.CleanString(na.DueDate)

	if err := validate.Struct(na); err != nil {
		return err
	}
	na.dueDate, _ = core.ParseDateTimeLocal(na.DueDate, loc)
	return nil
}

// NewSubmission needs an attachment, a link, or both.
type NewSubmission struct {
	Link       string       `form:"link" validate:"omitempty,url,max=200"`
	Attachment *core.Upload `form:"-"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Link = core.CleanString(ns.Link)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Attachment == nil && ns.Link == "" {
		return core.NewValidationError(ErrSubmissionEmpty)
	}
	return nil
}

// GradeInput is the grading form. A blank grade clears the stored one.
type GradeInput struct {
	Grade string `form:"grade" validate:"omitempty,grade"`

	grade types.NullDecimal
}

func (gi *GradeInput) Validate(validate *validator.Validate) error {
	gi.Grade = core.CleanString(gi.Grade)

	if err := validate.Struct(gi); err != nil {
		return err
	}
	gi.grade = types.NullDecimal{}
	if gi.Grade != "" {
		d, _ := parseGrade(gi.Grade)
		gi.grade = types.NewNullDecimal(d)
	}
	return nil
}

type SubmissionFilter struct {
	ID         int64
	ActivityID int64
	StudentID  int64
	CourseID   int64
	TeacherID  int64 // owner of the activity's course
	Ungraded   bool
	Limit      int
}
