package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"moncal/internal/calendar"
	"moncal/internal/model"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

type pages struct {
	month *template.Template
}

var pageFuncs = template.FuncMap{
	"monthParam": monthParam,
	"shortDay": func(d time.Weekday) string {
		return d.String()[:3]
	},
	"isZero": func(d model.Date) bool { return d.IsZero() },
	"sameDay": func(a, b model.Date) bool { return a == b },
	"titles": func(v *calendar.MonthView, d model.Date) []string {
		return v.Events[d]
	},
}

func loadPages() (*pages, error) {
	t, err := template.New("calendar.html").Funcs(pageFuncs).ParseFS(embeddedTemplates, "templates/calendar.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &pages{month: t}, nil
}

func (p *pages) renderMonth(w io.Writer, view *calendar.MonthView) error {
	if err := p.month.Execute(w, view); err != nil {
		return fmt.Errorf("render month: %w", err)
	}
	return nil
}
