package handlers

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"bike-predict/internal/form"
	"bike-predict/internal/models"
	"bike-predict/internal/utils"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageData feeds templates/index.html.
type pageData struct {
	View      ViewState
	Fields    map[string]models.FieldSpec
	Brands    []Choice
	Locations []Choice
	Owners    []models.Owner
	Busy      string
	Note      string
}

func renderPage(w io.Writer, c *form.Controller) error {
	st := c.State()

	data := pageData{
		View:   newViewState(st),
		Fields: make(map[string]models.FieldSpec),
		Owners: models.ValidOwners(),
		Busy:   "Analyzing...",
		Note:   "*Based on current market trends",
	}
	for _, f := range models.FormFields() {
		data.Fields[f.Name] = f
	}

	if catalog := c.Catalog(); catalog != nil {
		data.Brands = toChoices(catalog.Brands())
		data.Locations = locationChoices(catalog.Locations())
	}
	// Other is always on offer, even before the mappings load
	data.Locations = append(data.Locations, Choice{
		Value: strconv.Itoa(models.LocationOther),
		Label: models.LocationOtherLabel,
	})

	return pageTemplate.Execute(w, data)
}

// locationChoices keeps location names as the service spells them.
func locationChoices(entries []models.Entry) []Choice {
	out := make([]Choice, 0, len(entries)+1)
	for _, e := range entries {
		out = append(out, Choice{Value: strconv.Itoa(e.Code), Label: utils.Sanitize(e.Name)})
	}
	return out
}
