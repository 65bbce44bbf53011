package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/helixir/labmanager-service/internal/domain"
)

// ODTMimeType is the media type of OpenDocument Text packages.
const ODTMimeType = "application/vnd.oasis.opendocument.text"

const odtManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
 <manifest:file-entry manifest:full-path="/" manifest:media-type="application/vnd.oasis.opendocument.text"/>
 <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
 <manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>
 <manifest:file-entry manifest:full-path="meta.xml" manifest:media-type="text/xml"/>
</manifest:manifest>
`

const odtStyles = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-styles xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0" xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0" office:version="1.2">
 <office:styles>
  <style:style style:name="Standard" style:family="paragraph"/>
  <style:style style:name="Heading_1" style:display-name="Heading 1" style:family="paragraph" style:default-outline-level="1">
   <style:text-properties fo:font-size="18pt" fo:font-weight="bold"/>
  </style:style>
  <style:style style:name="Heading_2" style:display-name="Heading 2" style:family="paragraph" style:default-outline-level="2">
   <style:text-properties fo:font-size="14pt" fo:font-weight="bold"/>
  </style:style>
  <style:style style:name="Publication" style:family="paragraph">
   <style:paragraph-properties fo:margin-bottom="0.2cm"/>
  </style:style>
  <style:style style:name="Abstract" style:family="paragraph">
   <style:paragraph-properties fo:margin-left="0.8cm" fo:margin-bottom="0.3cm"/>
   <style:text-properties fo:font-size="9pt"/>
  </style:style>
 </office:styles>
</office:document-styles>
`

const odtMetaTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0" xmlns:dc="http://purl.org/dc/elements/1.1/" office:version="1.2">
 <office:meta>
  <meta:generator>labmanager-service</meta:generator>
  <dc:title>{{xml .Title}}</dc:title>
  <dc:language>{{xml .Language}}</dc:language>
  <meta:creation-date>{{.Created}}</meta:creation-date>
 </office:meta>
</office:document-meta>
`

const odtContentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0" xmlns:xlink="http://www.w3.org/1999/xlink" office:version="1.2">
 <office:automatic-styles>
  <style:style style:name="TitleSpan" style:family="text"><style:text-properties fo:font-weight="bold"/></style:style>
  <style:style style:name="VenueSpan" style:family="text"><style:text-properties fo:font-style="italic"/></style:style>
 </office:automatic-styles>
 <office:body>
  <office:text>
   <text:h text:style-name="Heading_1" text:outline-level="1">{{xml .Title}}</text:h>
{{- range .Groups}}
{{- if .Heading}}
   <text:h text:style-name="Heading_2" text:outline-level="2">{{xml .Heading}}</text:h>
{{- end}}
{{- range .Entries}}
   <text:p text:style-name="Publication">
{{- if .Authors}}{{xml .Authors}}. {{end -}}
<text:span text:style-name="TitleSpan">{{xml .Title}}</text:span>.
{{- if .Venue}} <text:span text:style-name="VenueSpan">{{xml .Venue}}</text:span>{{if .Details}},{{end}}{{end}}
{{- if .Details}} {{xml .Details}}{{end}}.
{{- if .DOI}} <text:a xlink:type="simple" xlink:href="https://doi.org/{{xml .DOI}}">doi:{{xml .DOI}}</text:a>{{else if .URL}} <text:a xlink:type="simple" xlink:href="{{xml .URL}}">{{xml .URL}}</text:a>{{end -}}
</text:p>
{{- if .Abstract}}
   <text:p text:style-name="Abstract">{{xml .Abstract}}</text:p>
{{- end}}
{{- end}}
{{- end}}
  </office:text>
 </office:body>
</office:document-content>
`

// ODTDocument renders publications as an OpenDocument Text package.
type ODTDocument struct {
	content *template.Template
	meta    *template.Template
	now     func() time.Time
}

// NewODTDocument creates an ODT exporter.
func NewODTDocument() *ODTDocument {
	funcs := template.FuncMap{"xml": xmlEscape}
	return &ODTDocument{
		content: template.Must(template.New("content").Funcs(funcs).Parse(odtContentTemplate)),
		meta:    template.Must(template.New("meta").Funcs(funcs).Parse(odtMetaTemplate)),
		now:     time.Now,
	}
}

// ExportPublications renders the publications as a zipped ODT package.
func (o *ODTDocument) ExportPublications(pubs []*domain.Publication, cfg Config) ([]byte, error) {
	doc := buildDocument(pubs, cfg)

	var content bytes.Buffer
	if err := o.content.Execute(&content, doc); err != nil {
		return nil, fmt.Errorf("failed to render odt content: %w", err)
	}

	var meta bytes.Buffer
	metaData := struct {
		Title, Language, Created string
	}{doc.Title, doc.Language, o.now().UTC().Format("2006-01-02T15:04:05")}
	if err := o.meta.Execute(&meta, metaData); err != nil {
		return nil, fmt.Errorf("failed to render odt metadata: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// The mimetype entry must come first and be stored uncompressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, fmt.Errorf("failed to write odt mimetype: %w", err)
	}
	if _, err := mw.Write([]byte(ODTMimeType)); err != nil {
		return nil, fmt.Errorf("failed to write odt mimetype: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{"META-INF/manifest.xml", []byte(odtManifest)},
		{"styles.xml", []byte(odtStyles)},
		{"meta.xml", meta.Bytes()},
		{"content.xml", content.Bytes()},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize odt package: %w", err)
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
