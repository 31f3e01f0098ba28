package echoapi

import (
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
	appfs "github.com/trezcool/registro/fs"
)

const (
	pagesDir   = "templates/pages"
	layoutFile = "templates/layout.gohtml"
)

// page is the data every template receives.
type page struct {
	Title     string
	Principal user.Principal
	CSRF      string
	Flashes   []Flash
	Errors    map[string]string // by form field, core.NonFieldErrors for the form itself
	Form      interface{}
	Data      interface{}
}

func (p page) NonFieldError() string {
	return p.Errors[core.NonFieldErrors]
}

type renderer struct {
	templates map[string]*template.Template
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer(files core.FileStorage, loc *time.Location) (*renderer, error) {
	funcs := template.FuncMap{
		"fileURL": func(key null.String) string {
			if !key.Valid || key.String == "" || files == nil {
				return ""
			}
			return files.URL(key.String)
		},
		"date": func(t time.Time) string {
			return t.Format("02/01/2006")
		},
		"datetime": func(t time.Time) string {
			return t.In(loc).Format("02/01/2006 15:04")
		},
	}

	r := &renderer{templates: make(map[string]*template.Template)}
	err := fs.WalkDir(appfs.FS, pagesDir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(fp) != ".gohtml" {
			return err
		}
		tmpl, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(appfs.FS, layoutFile, fp)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", fp)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(fp, pagesDir+"/"), ".gohtml")
		r.templates[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading templates")
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
