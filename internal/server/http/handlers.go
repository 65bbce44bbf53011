package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helixir/labmanager-service/internal/domain"
)

// Request size limits.
const (
	maxRequestBodySize    = 1 << 20 // 1 MB limit for JSON request bodies
	defaultMaxImportBytes = 4 << 20
)

// createPersonRequest is the JSON request body for creating or updating a person.
type createPersonRequest struct {
	FirstName string `json:"first_name" validate:"max=200"`
	LastName  string `json:"last_name" validate:"required,max=200"`
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=320"`
}

// updatePersonRequest leaves names unchanged when they are empty.
type updatePersonRequest struct {
	FirstName string `json:"first_name" validate:"max=200"`
	LastName  string `json:"last_name" validate:"max=200"`
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=320"`
}

// extractPersonsRequest carries a free-text author list such as a BibTeX
// author field.
type extractPersonsRequest struct {
	Authors string `json:"authors" validate:"required,max=10000"`
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// It writes the error response itself and reports whether the caller may proceed.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) > maxRequestBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeDomainError(w, validationError(err))
		return false
	}
	return true
}

// validationError converts the first validator failure into a domain error.
// Submitted values are not echoed back.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Field: "body", Message: "is invalid"}
	}
	fe := verrs[0]
	msg := "is invalid"
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "max":
		msg = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		msg = "must be a valid email address"
	case "oneof":
		msg = fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt", "gte", "min":
		msg = fmt.Sprintf("must be at least %s", fe.Param())
	}
	return &domain.ValidationError{Field: fe.Field(), Message: msg}
}

// listPersons handles GET /persons.
func (s *Server) listPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := s.services.Persons.GetAllPersons(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := domainPersonsToResponse(persons)
	writeJSON(w, http.StatusOK, listPersonsResponse{
		Persons:    resp,
		TotalCount: len(resp),
	})
}

// createPerson handles POST /persons.
func (s *Server) createPerson(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	id, err := s.services.Persons.CreatePerson(r.Context(), strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/persons/"+strconv.Itoa(id))
	writeJSON(w, http.StatusCreated, createPersonResponse{ID: id})
}

// getPerson handles GET /persons/{personID}.
func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntID(w, chi.URLParam(r, "personID"), "person_id")
	if !ok {
		return
	}

	person, err := s.services.Persons.GetPerson(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if person == nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, domainPersonToResponse(person))
}

// updatePerson handles PUT /persons/{personID}.
func (s *Server) updatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseIntID(w, chi.URLParam(r, "personID"), "person_id")
	if !ok {
		return
	}

	var req updatePersonRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	existing, err := s.services.Persons.GetPerson(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if existing == nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}

	if err := s.services.Persons.UpdatePerson(ctx, id, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := s.services.Persons.GetPerson(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if updated == nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, domainPersonToResponse(updated))
}

// removePerson handles DELETE /persons/{personID}. Removing an unknown
// person succeeds.
func (s *Server) removePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntID(w, chi.URLParam(r, "personID"), "person_id")
	if !ok {
		return
	}

	if err := s.services.Persons.RemovePerson(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getDuplicateClusters handles GET /persons/duplicates.
func (s *Server) getDuplicateClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.services.Persons.ComputeDuplicateClusters(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := duplicatesResponse{Clusters: make([]clusterResponse, 0, len(clusters))}
	for _, c := range clusters {
		resp.Clusters = append(resp.Clusters, clusterResponse{Persons: domainPersonsToResponse(c.Persons)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookupPerson handles GET /persons/lookup?first_name=&last_name=&similar=.
// An exact lookup is the default; similar=true uses the name comparator.
func (s *Server) lookupPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	firstName := strings.TrimSpace(q.Get("first_name"))
	lastName := strings.TrimSpace(q.Get("last_name"))
	if lastName == "" {
		writeDomainError(w, &domain.ValidationError{Field: "last_name", Message: "is required"})
		return
	}

	similar := false
	if v := q.Get("similar"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeDomainError(w, &domain.ValidationError{Field: "similar", Message: "must be a boolean"})
			return
		}
		similar = parsed
	}

	var person *domain.Person
	if similar {
		p, err := s.services.Persons.FindBySimilarName(ctx, firstName, lastName)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		person = p
	} else {
		id, err := s.services.Persons.FindIDByName(ctx, firstName, lastName)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if id != 0 {
			p, err := s.services.Persons.GetPerson(ctx, id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			person = p
		}
	}

	if person == nil {
		writeJSON(w, http.StatusOK, lookupPersonResponse{Found: false})
		return
	}
	resp := domainPersonToResponse(person)
	writeJSON(w, http.StatusOK, lookupPersonResponse{Found: true, Person: &resp})
}

// extractPersons handles POST /persons/extract. Unknown authors come back
// as transient persons with id 0.
func (s *Server) extractPersons(w http.ResponseWriter, r *http.Request) {
	var req extractPersonsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	persons, err := s.services.Persons.ExtractPersonsFrom(r.Context(), req.Authors)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := domainPersonsToResponse(persons)
	writeJSON(w, http.StatusOK, listPersonsResponse{
		Persons:    resp,
		TotalCount: len(resp),
	})
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrParseAmbiguity):
		writeError(w, http.StatusBadRequest, "ambiguous author text")
	case errors.Is(err, domain.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "unsupported format")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseIntID parses a positive integer identifier, writing a 400 error response
// if invalid. The raw value is not echoed back.
func parseIntID(w http.ResponseWriter, s, fieldName string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", fieldName))
		return 0, false
	}
	return id, true
}
