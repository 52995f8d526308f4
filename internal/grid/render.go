package grid

import (
	"embed"
	"html/template"
	"io"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

var gridTemplate = template.Must(template.New("grid.html").Funcs(template.FuncMap{
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}).ParseFS(templateFS, "templates/grid.html"))

type renderData struct {
	Cards      []Card
	Message    string
	Viewer     *Viewer
	CitySuffix string
}

// Render writes the grid fragment: the cards with their filter metadata, the
// inline message when there are none, and the photo viewer when it is open.
func (g *Grid) Render(w io.Writer) error {
	return gridTemplate.Execute(w, renderData{
		Cards:      g.cards,
		Message:    g.message,
		Viewer:     g.viewer,
		CitySuffix: g.opts.CitySuffix,
	})
}
