package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/helixir/labmanager-service/internal/domain"
)

// ---------------------------------------------------------------------------
// TestSQLInjection_NameFields
// ---------------------------------------------------------------------------

// TestSQLInjection_NameFields verifies that SQL injection payloads in person
// names are treated as opaque data. The mock service accepts every call,
// proving the payload reaches it verbatim and the handler never returns a 500.
func TestSQLInjection_NameFields(t *testing.T) {
	payloads := []struct {
		name  string
		value string
	}{
		{"drop table", "'; DROP TABLE persons; --"},
		{"boolean tautology", "1 OR 1=1"},
		{"union select", "' UNION SELECT * FROM authorships --"},
		{"bobby tables", "Robert'); DROP TABLE students;--"},
		{"nested quotes", "'' OR ''='"},
		{"comment injection", "name/* comment */"},
		{"stacked queries", "'; EXEC xp_cmdshell('dir'); --"},
		{"batch separator", "name\nGO\nDROP TABLE publications"},
	}

	for _, tc := range payloads {
		t.Run(tc.name, func(t *testing.T) {
			var captured string
			persons := &mockPersonService{
				createFn: func(_ context.Context, _, last, _ string) (int, error) {
					captured = last
					return 1, nil
				},
			}
			srv := newTestHTTPServer(persons, nil, nil)

			bodyBytes, err := json.Marshal(map[string]string{"last_name": tc.value})
			if err != nil {
				t.Fatalf("failed to marshal request body: %v", err)
			}

			rr := serveHTTP(srv, jsonRequest(http.MethodPost, "/api/v1/persons", string(bodyBytes)))

			if rr.Code == http.StatusInternalServerError {
				t.Errorf("SQL injection payload %q caused a 500 response: %s", tc.value, rr.Body.String())
			}
			if rr.Code == http.StatusCreated && captured != strings.TrimSpace(tc.value) {
				t.Errorf("expected last name to be passed verbatim as %q, got %q", strings.TrimSpace(tc.value), captured)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestResponseSanitization
// ---------------------------------------------------------------------------

// TestResponseSanitization verifies that internal error details from
// dependencies (database driver errors, broker addresses, file paths)
// are never leaked to the HTTP client.
func TestResponseSanitization(t *testing.T) {
	sensitiveErrors := []struct {
		name      string
		err       error
		forbidden []string
	}{
		{
			name:      "postgres connection refused",
			err:       fmt.Errorf("pgx: connection refused to 10.0.0.5:5432"),
			forbidden: []string{"pgx", "connection refused", "10.0.0.5", "5432"},
		},
		{
			name:      "authentication failure",
			err:       fmt.Errorf("password authentication failed for user \"labmanager\""),
			forbidden: []string{"password", "labmanager", "authentication"},
		},
		{
			name:      "stack trace leak",
			err:       fmt.Errorf("goroutine 42 [running]: runtime/debug.Stack()"),
			forbidden: []string{"goroutine", "runtime/debug", "Stack()"},
		},
		{
			name:      "file path leak",
			err:       fmt.Errorf("open /etc/secrets/db_password: no such file or directory"),
			forbidden: []string{"/etc/secrets", "db_password"},
		},
		{
			name:      "kafka broker error",
			err:       fmt.Errorf("failed to publish 1 events: dial tcp 10.0.1.20:9092: i/o timeout"),
			forbidden: []string{"10.0.1.20", "9092", "dial tcp", "publish"},
		},
	}

	for _, tc := range sensitiveErrors {
		t.Run(tc.name, func(t *testing.T) {
			pubs := &mockPublicationService{
				importFn: func(_ context.Context, _ string) ([]int, error) {
					return nil, tc.err
				},
			}
			srv := newTestHTTPServer(nil, pubs, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/publications/import", strings.NewReader(`@article{a, title={T}}`))
			rr := serveHTTP(srv, req)

			responseBody := rr.Body.String()
			for _, fragment := range tc.forbidden {
				if strings.Contains(responseBody, fragment) {
					t.Errorf("response body contains sensitive fragment %q: %s", fragment, responseBody)
				}
			}

			var resp map[string]string
			if err := json.NewDecoder(strings.NewReader(responseBody)).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != "internal server error" {
				t.Errorf("expected generic error message, got %q", resp["error"])
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestXSSPayload_NameFields
// ---------------------------------------------------------------------------

// TestXSSPayload_NameFields verifies that HTML in stored names comes back
// escaped in JSON responses.
func TestXSSPayload_NameFields(t *testing.T) {
	xssPayloads := []struct {
		name    string
		value   string
		mustNot []string
	}{
		{"script tag", "<script>alert('xss')</script>", []string{"<script>", "</script>"}},
		{"img onerror", `<img src=x onerror=alert('xss')>`, []string{"<img"}},
		{"svg tag", `<svg/onload=alert('xss')>`, []string{"<svg"}},
		{"iframe injection", `<iframe src="javascript:alert('xss')">`, []string{"<iframe"}},
	}

	for _, tc := range xssPayloads {
		t.Run(tc.name, func(t *testing.T) {
			persons := &mockPersonService{
				getFn: func(_ context.Context, id int) (*domain.Person, error) {
					return &domain.Person{ID: id, FirstName: tc.value, LastName: "Doe"}, nil
				},
			}
			srv := newTestHTTPServer(persons, nil, nil)

			rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/persons/1", nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			body := rr.Body.String()
			for _, raw := range tc.mustNot {
				if strings.Contains(body, raw) {
					t.Errorf("response contains unescaped %q: %s", raw, body)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteDomainError_NeverLeaksInternalDetails
// ---------------------------------------------------------------------------

// TestWriteDomainError_NeverLeaksInternalDetails verifies that wrapped domain
// errors only expose the mapped message, not the wrapping context.
func TestWriteDomainError_NeverLeaksInternalDetails(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantMsg   string
		forbidden string
	}{
		{
			name:      "wrapped not found",
			err:       fmt.Errorf("select from persons where id=7 on db-primary: %w", domain.ErrNotFound),
			wantMsg:   "resource not found",
			forbidden: "db-primary",
		},
		{
			name:      "wrapped conflict",
			err:       fmt.Errorf("unique violation authorships_publication_rank_key: %w", domain.ErrAlreadyExists),
			wantMsg:   "resource already exists",
			forbidden: "authorships_publication_rank_key",
		},
		{
			name:      "wrapped ambiguity",
			err:       fmt.Errorf("input %q: %w", "secret text", domain.ErrParseAmbiguity),
			wantMsg:   "ambiguous author text",
			forbidden: "secret text",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tc.err)

			if strings.Contains(rr.Body.String(), tc.forbidden) {
				t.Errorf("response leaks %q: %s", tc.forbidden, rr.Body.String())
			}
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			if resp["error"] != tc.wantMsg {
				t.Errorf("expected %q, got %q", tc.wantMsg, resp["error"])
			}
		})
	}
}

// TestImportRateLimit verifies that imports above the configured rate are
// rejected with 429 before the service is reached.
func TestImportRateLimit(t *testing.T) {
	calls := 0
	pubs := &mockPublicationService{
		importFn: func(_ context.Context, _ string) ([]int, error) {
			calls++
			return []int{calls}, nil
		},
	}
	srv := NewServer(
		Config{ImportRateLimit: 0.001, ImportBurst: 1},
		Services{Persons: &mockPersonService{}, Publications: pubs, Authorships: &mockAuthorshipService{}},
		&mockHealthChecker{},
		nil,
		zerolog.Nop(),
	)

	first := serveHTTP(srv, httptest.NewRequest(http.MethodPost, "/api/v1/publications/import", strings.NewReader("@misc{a, title={A}}")))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	second := serveHTTP(srv, httptest.NewRequest(http.MethodPost, "/api/v1/publications/import", strings.NewReader("@misc{b, title={B}}")))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if calls != 1 {
		t.Errorf("expected 1 service call, got %d", calls)
	}
}
