package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbchat_queries_total",
			Help: "Total number of chat queries handled",
		},
		[]string{"mode", "status"},
	)

	QueryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kbchat_query_cache_hits_total",
			Help: "Total number of queries answered from the cache",
		},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kbchat_upstream_duration_seconds",
			Help: "Duration of calls to the managed generation service",
		},
		[]string{"operation"},
	)

	SyncJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbchat_sync_jobs_total",
			Help: "Total number of document sync jobs processed",
		},
		[]string{"status"},
	)

	DocumentsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kbchat_documents_uploaded_total",
			Help: "Total number of documents uploaded to the document store",
		},
	)
)
