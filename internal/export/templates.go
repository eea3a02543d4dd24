package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"seatplan/api/internal/seating"
)

//go:embed templates/*.html
var templateFS embed.FS

var chartTemplate *template.Template

func init() {
	templateContent, err := templateFS.ReadFile("templates/chart.html")
	if err != nil {
		// Fallback to built-in template if file not found
		chartTemplate = template.Must(template.New("chart").Parse(fallbackTemplate))
		return
	}

	chartTemplate = template.Must(template.New("chart").Parse(string(templateContent)))
}

// TemplateData holds data for chart template rendering
type TemplateData struct {
	ClassName string
	Period    string
	DateLabel string
	Cells     [][]TemplateCell
	Seated    int
}

// TemplateCell is one grid cell in the rendered room
type TemplateCell struct {
	Active   bool
	Name     string
	Priority bool
	FlagType string
}

// buildTemplateData projects a chart onto the render grid. Desks that sit
// outside the current bounds are part of the chart state but not of the
// rendered room.
func buildTemplateData(state seating.State) TemplateData {
	desks := make(map[string]struct{}, len(state.Desks))
	for _, key := range state.Desks {
		desks[key] = struct{}{}
	}

	data := TemplateData{
		ClassName: state.Settings.ClassName,
		Period:    state.Settings.Period,
		DateLabel: state.Settings.DateLabel,
		Cells:     make([][]TemplateCell, state.Rows),
	}
	for row := 0; row < state.Rows; row++ {
		cells := make([]TemplateCell, state.Cols)
		for col := 0; col < state.Cols; col++ {
			key := (seating.Coord{Row: row, Col: col}).Key()
			if _, ok := desks[key]; !ok {
				continue
			}
			flags := state.Metadata[key]
			cells[col] = TemplateCell{
				Active:   true,
				Name:     state.Assignments[key],
				Priority: flags.IsPriority,
				FlagType: flags.Type,
			}
			if cells[col].Name != "" {
				data.Seated++
			}
		}
		data.Cells[row] = cells
	}
	return data
}

// chartTitle picks the filename stem for an export.
func chartTitle(state seating.State) string {
	if name := strings.TrimSpace(state.Settings.ClassName); name != "" {
		return name
	}
	return "seating-chart"
}

// RenderChartHTML renders the chart template with provided data
func RenderChartHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := chartTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{if .ClassName}}{{.ClassName}}{{else}}Seating Chart{{end}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2rem; }
    table { border-collapse: separate; border-spacing: 4px; }
    td { width: 90px; height: 56px; text-align: center; vertical-align: middle; }
    td.desk { border: 2px solid #333; border-radius: 4px; }
    td.priority { background: #fff3cd; }
    .badge { font-size: 0.7em; color: #666; }
  </style>
</head>
<body>
  <h1>{{if .ClassName}}{{.ClassName}}{{else}}Seating Chart{{end}}</h1>
  <table>
    {{range .Cells}}<tr>
      {{range .}}<td class="{{if .Active}}desk{{end}}{{if .Priority}} priority{{end}}">{{.Name}}{{if .FlagType}}<div class="badge">{{.FlagType}}</div>{{end}}</td>{{end}}
    </tr>{{end}}
  </table>
</body>
</html>`
