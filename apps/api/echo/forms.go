package echoapi

import (
	"io"
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
)

var errHTTPNotFound = echo.NewHTTPError(http.StatusNotFound, "No encontrado")

// formErrors maps validation errors to messages keyed by form field.
// ok is false for any other error.
func formErrors(err error, translator ut.Translator) (map[string]string, bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return fldErrs, true
	case *core.ValidationError:
		return origErr.FieldErrors(), true
	}
	return nil, false
}

// pathID reads a positive integer path param. Anything else is a 404.
func pathID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHTTPNotFound
	}
	return id, nil
}

// formUpload returns the uploaded file of field, or nil when none was sent.
func formUpload(ctx echo.Context, field string) (*core.Upload, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading "+field)
	}
	if fh.Filename == "" {
		return nil, nil
	}
	return &core.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

func isPost(ctx echo.Context) bool {
	return ctx.Request().Method == http.MethodPost
}
