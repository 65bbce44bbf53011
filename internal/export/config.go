// Package export renders publications as BibTeX, HTML and OpenDocument Text,
// and reads BibTeX databases back into publications.
package export

// Config controls the rendering of document exports.
type Config struct {
	// Title is the heading of the generated document.
	Title string

	// Language is the document language as a BCP 47 tag.
	Language string

	// GroupByYear puts publications under one heading per year, newest first.
	GroupByYear bool

	// IncludeAbstracts appends each publication's abstract to its entry.
	IncludeAbstracts bool
}

// DefaultConfig returns the configuration used when a caller passes none.
func DefaultConfig() Config {
	return Config{
		Title:    "Publications",
		Language: "en",
	}
}

// withDefaults fills the empty fields of c from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	return c
}
