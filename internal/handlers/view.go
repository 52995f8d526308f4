package handlers

import (
	"embed"
	"html/template"

	"listing-portal/internal/grid"
	"listing-portal/internal/notify"
	"listing-portal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type option struct {
	Value string
	Label string
}

var (
	propertyTypeOptions = []option{
		{"", "All types"},
		{"house", "House"},
		{"apartment", "Apartment"},
		{"land", "Land"},
		{"commercial", "Commercial"},
	}
	statusOptions = []option{
		{"", "Any status"},
		{"ready", "Ready to move in"},
		{"under_construction", "Under construction"},
		{"launch", "Launch"},
	}
	bedroomOptions = []option{
		{"", "Any"},
		{"1", "1"},
		{"2", "2"},
		{"3", "3"},
		{grid.BedroomsFourPlus, "4+"},
	}
)

type pageData struct {
	Page          session.Page
	View          session.View
	Notices       []notify.Notice
	Grid          template.HTML
	Filter        grid.FilterEvent
	TypeOptions   []option
	StatusOptions []option
	BedroomOpts   []option
}
