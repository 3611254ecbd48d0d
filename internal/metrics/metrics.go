// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adboard_login_attempts_total",
		Help: "Total number of credential checks by result.",
	}, []string{"result"})

	AdsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_ads_created_total",
		Help: "Total number of ads created.",
	})

	AdsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_ads_deleted_total",
		Help: "Total number of ads deleted.",
	})

	CommentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adboard_comments_created_total",
		Help: "Total number of comments created.",
	})

	ImageCleanupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adboard_image_cleanup_failures_total",
		Help: "Image files that could not be removed after their owner changed or was deleted.",
	}, []string{"namespace"})

	OrphanedImagesRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adboard_orphaned_images_removed_total",
		Help: "Unreferenced image files removed by the janitor.",
	}, []string{"namespace"})

	StoredImages = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "adboard_stored_images",
		Help: "Number of image files in the store.",
	}, []string{"namespace"})

	StoredImageBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "adboard_stored_image_bytes",
		Help: "Total size of image files in the store.",
	}, []string{"namespace"})

	UploadsDiskFreeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adboard_uploads_disk_free_bytes",
		Help: "Free space on the filesystem holding the image store.",
	})

	UploadsDiskUsedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adboard_uploads_disk_used_percent",
		Help: "Used space on the filesystem holding the image store.",
	})

	HostMemoryUsedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adboard_host_memory_used_percent",
		Help: "Host memory in use.",
	})

	LiveFeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adboard_live_feed_clients",
		Help: "Connected live feed websocket clients.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adboard_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adboard_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latencies labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
