package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/repository"
)

// Export formats accepted by POST /publications/export/{format}.
const (
	exportFormatBibTeX = "bibtex"
	exportFormatHTML   = "html"
	exportFormatODT    = "odt"
)

var exportContentTypes = map[string]string{
	exportFormatBibTeX: "application/x-bibtex; charset=utf-8",
	exportFormatHTML:   "text/html; charset=utf-8",
	exportFormatODT:    "application/vnd.oasis.opendocument.text",
}

var exportExtensions = map[string]string{
	exportFormatBibTeX: "bib",
	exportFormatHTML:   "html",
	exportFormatODT:    "odt",
}

// exportRequest is the JSON request body for exporting publications.
// Missing document options fall back to the server defaults.
type exportRequest struct {
	IDs              []int  `json:"ids" validate:"omitempty,max=1000,dive,gt=0"`
	Title            string `json:"title,omitempty" validate:"max=500"`
	Language         string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	GroupByYear      *bool  `json:"group_by_year,omitempty"`
	IncludeAbstracts *bool  `json:"include_abstracts,omitempty"`
}

// addAuthorRequest is the JSON request body for appending an author.
type addAuthorRequest struct {
	PersonID int `json:"person_id" validate:"required,gt=0"`
}

// listPublications handles GET /publications.
func (s *Server) listPublications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.PublicationFilter{}

	if t := q.Get("type"); t != "" {
		pt := domain.ParsePublicationType(t)
		if pt == domain.PublicationTypeMisc && !strings.EqualFold(strings.TrimSpace(t), string(domain.PublicationTypeMisc)) {
			writeDomainError(w, &domain.ValidationError{Field: "type", Message: "is not a known publication type"})
			return
		}
		filter.Type = pt
	}

	var ok bool
	if filter.Year, ok = queryInt(w, q.Get("year"), "year"); !ok {
		return
	}
	if filter.Limit, ok = queryInt(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, q.Get("offset"), "offset"); !ok {
		return
	}

	pubs, total, err := s.services.Publications.ListPublications(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]publicationResponse, len(pubs))
	for i, p := range pubs {
		responses[i] = domainPublicationToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPublicationsResponse{
		Publications: responses,
		TotalCount:   total,
	})
}

// getPublication handles GET /publications/{publicationID}.
func (s *Server) getPublication(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntID(w, chi.URLParam(r, "publicationID"), "publication_id")
	if !ok {
		return
	}

	pub, err := s.services.Publications.GetPublication(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if pub == nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, domainPublicationToResponse(pub))
}

// removePublication handles DELETE /publications/{publicationID}.
func (s *Server) removePublication(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntID(w, chi.URLParam(r, "publicationID"), "publication_id")
	if !ok {
		return
	}

	if err := s.services.Publications.RemovePublication(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getPublicationAuthors handles GET /publications/{publicationID}/authors.
func (s *Server) getPublicationAuthors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseIntID(w, chi.URLParam(r, "publicationID"), "publication_id")
	if !ok {
		return
	}

	pub, err := s.services.Publications.GetPublication(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if pub == nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}

	authors, err := s.services.Authorships.GetAuthorsFor(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := domainPersonsToResponse(authors)
	writeJSON(w, http.StatusOK, listPersonsResponse{
		Persons:    resp,
		TotalCount: len(resp),
	})
}

// addPublicationAuthor handles POST /publications/{publicationID}/authors.
// The person is appended after the current last author.
func (s *Server) addPublicationAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntID(w, chi.URLParam(r, "publicationID"), "publication_id")
	if !ok {
		return
	}

	var req addAuthorRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	a, err := s.services.Authorships.AddAuthorship(r.Context(), req.PersonID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domainAuthorshipToResponse(a))
}

// importPublications handles POST /publications/import. The body is a
// BibTeX document; authors are reconciled against the stored persons.
func (s *Server) importPublications(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxImportSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > s.maxImportSize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	ids, err := s.services.Publications.ImportPublications(r.Context(), string(body))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []int{}
	}

	status := http.StatusCreated
	if len(ids) == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, importResponse{PublicationIDs: ids, Imported: len(ids)})
}

// exportPublications handles POST /publications/export/{format}. A request
// without ids has nothing to export and gets 204.
func (s *Server) exportPublications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format := strings.ToLower(chi.URLParam(r, "format"))
	contentType, known := exportContentTypes[format]
	if !known {
		writeDomainError(w, fmt.Errorf("export format: %w", domain.ErrUnsupportedFormat))
		return
	}

	var req exportRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.IDs == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cfg := s.exportConfig
	if req.Title != "" {
		cfg.Title = req.Title
	}
	if req.Language != "" {
		cfg.Language = req.Language
	}
	if req.GroupByYear != nil {
		cfg.GroupByYear = *req.GroupByYear
	}
	if req.IncludeAbstracts != nil {
		cfg.IncludeAbstracts = *req.IncludeAbstracts
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case exportFormatBibTeX:
		data, err = s.services.Publications.ExportBibTeX(ctx, req.IDs)
	case exportFormatHTML:
		data, err = s.services.Publications.ExportHTML(ctx, req.IDs, cfg)
	case exportFormatODT:
		data, err = s.services.Publications.ExportODT(ctx, req.IDs, cfg)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="publications.%s"`, exportExtensions[format]))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(w http.ResponseWriter, raw, fieldName string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative integer", fieldName))
		return 0, false
	}
	return v, true
}
