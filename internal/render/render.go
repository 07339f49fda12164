package render

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer turns a View into region fragments. It holds no state besides the
// parsed templates, so the same View always renders the same bytes.
type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("regions").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Must is New for package init and tests.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(region Region, v View) (string, error) {
	build, ok := builders[region]
	if !ok {
		return "", fmt.Errorf("render: unknown region %q", region)
	}
	var b strings.Builder
	if err := r.tmpl.ExecuteTemplate(&b, "region-"+string(region), build(v)); err != nil {
		return "", fmt.Errorf("render %s: %w", region, err)
	}
	return b.String(), nil
}

// RenderAll renders every region in page order.
func (r *Renderer) RenderAll(v View) ([]Fragment, error) {
	return r.RenderSome(v, Regions...)
}

func (r *Renderer) RenderSome(v View, regions ...Region) ([]Fragment, error) {
	out := make([]Fragment, 0, len(regions))
	for _, region := range regions {
		html, err := r.Render(region, v)
		if err != nil {
			return nil, err
		}
		out = append(out, Fragment{Region: region, ID: region.DOMID(), HTML: html})
	}
	return out, nil
}
