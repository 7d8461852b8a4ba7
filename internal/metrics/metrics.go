// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigledger_settlements_total",
		Help: "Job payment settlement attempts by outcome.",
	}, []string{"outcome"})

	Deposits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigledger_deposits_total",
		Help: "Balance deposit attempts by outcome.",
	}, []string{"outcome"})

	ReceiptsJournaled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigledger_receipts_journaled_total",
		Help: "Settlement receipts persisted by the journal worker.",
	})
)

// Handler serves the default registry, including the collectors above.
func Handler() http.Handler {
	return promhttp.Handler()
}
