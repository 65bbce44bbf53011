package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the lab manager service.
// Metrics are organized by subsystem: persons, duplicates, imports, exports
// and HTTP. All collectors are registered via promauto with the default
// Prometheus registry.
type Metrics struct {
	// PersonsCreated counts persons persisted, labeled by origin ("api", "import").
	PersonsCreated *prometheus.CounterVec

	// PersonsRemoved counts persons deleted.
	PersonsRemoved prometheus.Counter

	// AuthorshipsReranked counts authorships whose rank shifted after a removal.
	AuthorshipsReranked prometheus.Counter

	// DuplicateScans counts duplicate cluster computations.
	DuplicateScans prometheus.Counter

	// DuplicateClusters observes the number of clusters found per scan.
	DuplicateClusters prometheus.Histogram

	// AuthorsResolved counts authors resolved during import, labeled by
	// outcome ("existing", "created").
	AuthorsResolved *prometheus.CounterVec

	// PublicationsImported counts publications persisted by imports.
	PublicationsImported prometheus.Counter

	// ImportsFailed counts import batches that were rolled back, labeled by reason.
	ImportsFailed *prometheus.CounterVec

	// ImportDuration observes the duration of an import batch in seconds.
	ImportDuration prometheus.Histogram

	// Exports counts export operations, labeled by format.
	Exports *prometheus.CounterVec

	// ExportedPublications counts publications written by exports, labeled by format.
	ExportedPublications *prometheus.CounterVec

	// ExportDuration observes export duration in seconds, labeled by format.
	ExportDuration *prometheus.HistogramVec

	// HTTPRequests counts HTTP requests, labeled by method, route and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// EventsPublished counts domain events published, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts domain events that could not be published, labeled by event type.
	EventsFailed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Persons
		PersonsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persons",
			Name:      "created_total",
			Help:      "Total number of persons persisted",
		}, []string{"origin"}),
		PersonsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persons",
			Name:      "removed_total",
			Help:      "Total number of persons removed",
		}),
		AuthorshipsReranked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persons",
			Name:      "authorships_reranked_total",
			Help:      "Total number of authorship ranks shifted after person removal",
		}),

		// Duplicates
		DuplicateScans: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "duplicates",
			Name:      "scans_total",
			Help:      "Total number of duplicate person scans",
		}),
		DuplicateClusters: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "duplicates",
			Name:      "clusters",
			Help:      "Number of similarity clusters found per scan",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),

		// Imports
		AuthorsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "authors_resolved_total",
			Help:      "Total number of imported authors resolved, by outcome",
		}, []string{"outcome"}),
		PublicationsImported: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "publications_total",
			Help:      "Total number of publications persisted by imports",
		}),
		ImportsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "failed_total",
			Help:      "Total number of import batches rolled back",
		}, []string{"reason"}),
		ImportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Duration of import batches in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Exports
		Exports: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "requests_total",
			Help:      "Total number of export operations, by format",
		}, []string{"format"}),
		ExportedPublications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "publications_total",
			Help:      "Total number of publications written by exports, by format",
		}, []string{"format"}),
		ExportDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Duration of export operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of domain events published",
		}, []string{"event_type"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "failed_total",
			Help:      "Total number of domain events that failed to publish",
		}, []string{"event_type"}),
	}
}

// RecordPersonCreated records a person persisted through the API.
func (m *Metrics) RecordPersonCreated() {
	m.PersonsCreated.WithLabelValues("api").Inc()
}

// RecordPersonRemoved records a person removal and the number of authorships
// whose rank was shifted as a consequence.
func (m *Metrics) RecordPersonRemoved(reranked int) {
	m.PersonsRemoved.Inc()
	m.AuthorshipsReranked.Add(float64(reranked))
}

// RecordDuplicateScan records a duplicate scan and its cluster count.
func (m *Metrics) RecordDuplicateScan(clusters int) {
	m.DuplicateScans.Inc()
	m.DuplicateClusters.Observe(float64(clusters))
}

// RecordAuthorResolved records an imported author matched to an existing person.
func (m *Metrics) RecordAuthorResolved() {
	m.AuthorsResolved.WithLabelValues("existing").Inc()
}

// RecordAuthorCreated records an imported author persisted as a new person.
func (m *Metrics) RecordAuthorCreated() {
	m.AuthorsResolved.WithLabelValues("created").Inc()
	m.PersonsCreated.WithLabelValues("import").Inc()
}

// RecordImport records a committed import batch.
func (m *Metrics) RecordImport(publications int, durationSeconds float64) {
	m.PublicationsImported.Add(float64(publications))
	m.ImportDuration.Observe(durationSeconds)
}

// RecordImportFailed records a rolled back import batch.
func (m *Metrics) RecordImportFailed(reason string) {
	m.ImportsFailed.WithLabelValues(reason).Inc()
}

// RecordExport records an export of count publications in the given format.
func (m *Metrics) RecordExport(format string, count int, durationSeconds float64) {
	m.Exports.WithLabelValues(format).Inc()
	m.ExportedPublications.WithLabelValues(format).Add(float64(count))
	m.ExportDuration.WithLabelValues(format).Observe(durationSeconds)
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordEventPublished records a published domain event.
func (m *Metrics) RecordEventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records a domain event that could not be published.
func (m *Metrics) RecordEventFailed(eventType string) {
	m.EventsFailed.WithLabelValues(eventType).Inc()
}
