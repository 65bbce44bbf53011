package export

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/helixir/labmanager-service/internal/domain"
)

const htmlDocumentTemplate = `<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- range .Groups}}
{{- if .Heading}}
<h2>{{.Heading}}</h2>
{{- end}}
<ol class="publications">
{{- range .Entries}}
<li class="publication">
{{- if .Authors}}<span class="authors">{{.Authors}}</span>. {{end -}}
<span class="title">{{.Title}}</span>.
{{- if .Venue}} <em class="venue">{{.Venue}}</em>{{if .Details}},{{end}}{{end}}
{{- if .Details}} <span class="details">{{.Details}}</span>{{end}}.
{{- if .DOI}} <a class="doi" href="https://doi.org/{{.DOI}}">doi:{{.DOI}}</a>{{else if .URL}} <a class="url" href="{{.URL}}">{{.URL}}</a>{{end}}
{{- if .Abstract}}
<p class="abstract">{{.Abstract}}</p>
{{- end}}
</li>
{{- end}}
</ol>
{{- end}}
</body>
</html>
`

// HTMLDocument renders publications as a standalone HTML page.
type HTMLDocument struct {
	tmpl *template.Template
}

// NewHTMLDocument creates an HTML exporter.
func NewHTMLDocument() *HTMLDocument {
	return &HTMLDocument{
		tmpl: template.Must(template.New("publications").Parse(htmlDocumentTemplate)),
	}
}

// ExportPublications renders the publications as an HTML document.
func (h *HTMLDocument) ExportPublications(pubs []*domain.Publication, cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, buildDocument(pubs, cfg)); err != nil {
		return nil, fmt.Errorf("failed to render html document: %w", err)
	}
	return buf.Bytes(), nil
}
