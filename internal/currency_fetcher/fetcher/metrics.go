package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const fiatSourceName = "fiat"

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cryptoconvert",
		Name:      "polls_total",
		Help:      "Price source polls by source and result.",
	}, []string{"source", "result"})

	pollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cryptoconvert",
		Name:      "poll_duration_seconds",
		Help:      "Duration of price source polls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	mergedTickers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cryptoconvert",
		Name:      "merged_tickers",
		Help:      "Rates each source contributed to the last crypto snapshot.",
	}, []string{"source"})

	lastUpdate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cryptoconvert",
		Name:      "last_update_timestamp_seconds",
		Help:      "Unix time of the last successful snapshot update.",
	}, []string{"partition"})
)

func observePoll(source string, seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	pollsTotal.WithLabelValues(source, result).Inc()
	pollDuration.WithLabelValues(source).Observe(seconds)
}
