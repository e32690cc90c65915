package template

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/ghaggin/citas/internal/dashboard"
	"github.com/ghaggin/citas/internal/model"
)

const (
	templateDir string = "tmpl"
)

//go:embed tmpl/*.html
var files embed.FS

type Data struct {
	PageTitle string
	Flash     string
	User      *model.User
	Tree      dashboard.Tree
	Route     dashboard.Route
	Items     any
	Message   string
	// Role preselects the account type on the registration form.
	Role model.Role
}

var funcs = template.FuncMap{
	"routeURL": func(r dashboard.Route) string {
		return "/screens/" + r.Name
	},
}

// RenderStatus executes tmpl inside base.html and writes status and the
// result only when execution succeeded.
func RenderStatus(w http.ResponseWriter, _ *http.Request, status int, tmpl string, td any) error {
	t, err := template.New(tmpl).Funcs(funcs).ParseFS(files,
		templateDir+"/"+tmpl,
		templateDir+"/"+"base.html",
	)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}

	err = t.Execute(buf, td)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
