package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgstash_queries_total",
			Help: "Total number of executed queries by outcome.",
		},
		[]string{"status"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgstash_query_duration_seconds",
			Help:    "Wall-clock query latency including connection setup.",
			Buckets: prometheus.DefBuckets,
		},
	)
	queryRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgstash_query_rows_total",
			Help: "Total number of rows fetched by queries.",
		},
	)
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgstash_uploads_total",
			Help: "Total number of table uploads by outcome.",
		},
		[]string{"status"},
	)
	uploadRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgstash_upload_rows_total",
			Help: "Total number of rows written by uploads.",
		},
	)
	cacheWritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgstash_cache_writes_total",
			Help: "Total number of cache entries written.",
		},
	)
	cacheSkipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgstash_cache_skips_total",
			Help: "Total number of cache saves skipped because the entry already existed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		queryRowsTotal,
		uploadsTotal,
		uploadRowsTotal,
		cacheWritesTotal,
		cacheSkipsTotal,
	)
}

func ObserveQuery(rows int, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queriesTotal.WithLabelValues(status).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
	if err == nil && rows > 0 {
		queryRowsTotal.Add(float64(rows))
	}
}

func ObserveUpload(rows int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	uploadsTotal.WithLabelValues(status).Inc()
	if err == nil && rows > 0 {
		uploadRowsTotal.Add(float64(rows))
	}
}

func ObserveCacheSave(written bool) {
	if written {
		cacheWritesTotal.Inc()
	} else {
		cacheSkipsTotal.Inc()
	}
}
