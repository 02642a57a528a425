package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "printfleet_"

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	transfersRecorded      prometheus.Counter
	maintenanceTransitions *prometheus.CounterVec
	reportsGenerated       prometheus.Counter
	printersImported       prometheus.Counter
	rentalsCreated         prometheus.Counter
)

// Init registers collectors on the default registry. Safe to call more than once.
func Init() {
	InitWith(prometheus.DefaultRegisterer)
}

func InitWith(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		)
		transfersRecorded = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "transfers_recorded_total",
			Help: "Printer transfers written to the transfer log",
		})
		maintenanceTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "maintenance_transitions_total",
				Help: "Maintenance record status changes by target status",
			},
			[]string{"status"},
		)
		reportsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "service_reports_generated_total",
			Help: "Service report snapshots written",
		})
		printersImported = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "printers_imported_total",
			Help: "Printers imported from the catalog",
		})
		rentalsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "rentals_created_total",
			Help: "Rental bookings created",
		})

		reg.MustRegister(
			httpRequests,
			httpLatency,
			transfersRecorded,
			maintenanceTransitions,
			reportsGenerated,
			printersImported,
			rentalsCreated,
		)
	})
}

func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if httpRequests == nil {
		return
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func IncTransfer() {
	if transfersRecorded != nil {
		transfersRecorded.Inc()
	}
}

func IncMaintenanceTransition(status string) {
	if maintenanceTransitions != nil {
		maintenanceTransitions.WithLabelValues(status).Inc()
	}
}

func IncReportGenerated() {
	if reportsGenerated != nil {
		reportsGenerated.Inc()
	}
}

func IncPrinterImported() {
	if printersImported != nil {
		printersImported.Inc()
	}
}

func IncRentalCreated() {
	if rentalsCreated != nil {
		rentalsCreated.Inc()
	}
}
