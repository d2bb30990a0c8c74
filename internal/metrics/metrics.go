package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_admissions_total",
			Help: "Admission verdicts per request",
		},
		[]string{"decision"}, // allow|challenge|reject
	)

	ChallengeVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_challenge_verdicts_total",
			Help: "Challenge evaluation outcomes",
		},
		[]string{"result"}, // pass|fail|malformed|rate_limited
	)

	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_catalog_requests_total",
			Help: "Catalog API requests reaching the store",
		},
		[]string{"op", "status"}, // list|get, ok|not_found|error
	)
)

func init() {
	prometheus.MustRegister(AdmissionsTotal)
	prometheus.MustRegister(ChallengeVerdictsTotal)
	prometheus.MustRegister(CatalogRequestsTotal)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
