package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsRecorded counts token calls recorded across all accounts.
	CallsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kol_token_calls_recorded_total",
		Help: "Number of token calls recorded",
	})

	// ScamPenalties counts immediate penalties applied at record time.
	ScamPenalties = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kol_scam_penalties_total",
		Help: "Number of scam-threshold penalties applied at call-record time",
	})

	// TrustAdjustments counts ledger adjustments by reason.
	TrustAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kol_trust_adjustments_total",
		Help: "Number of trust score adjustments applied",
	}, []string{"reason"})

	// ScanPasses counts scheduled pass outcomes.
	ScanPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kol_scan_passes_total",
		Help: "Number of scheduled scan passes by outcome",
	}, []string{"pass", "result"})

	// ExternalServiceErrors counts collaborator failures by service.
	ExternalServiceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kol_external_service_errors_total",
		Help: "Number of external collaborator failures",
	}, []string{"service"})

	// ReportsBuilt counts on-demand and scheduled reports produced.
	ReportsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kol_reports_built_total",
		Help: "Number of account reports assembled",
	})
)
