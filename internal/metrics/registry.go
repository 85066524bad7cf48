package metrics

// Registry holds the fixed set of counters and histograms the engine
// exposes, grounded on the teacher's dashboard.UpdateStats aggregation
// point (internal/dashboard/responsive.go) — one well-known struct that
// every component updates directly rather than a dynamic name->metric map,
// since the metric set is closed and known at compile time.
type Registry struct {
	OrdersCreated   Counter
	OrdersRejected  Counter
	OrdersFilled    Counter
	OrdersCancelled Counter

	RiskApprovals  Counter
	RiskRejections Counter
	BreakerTrips   Counter

	QuotesDropped Counter
	OrdersDropped Counter

	AlgosStarted   Counter
	AlgosCompleted Counter
	AlgosFailed    Counter

	SubmitLatencyNs Histogram
	AckLatencyNs    Histogram
	FillLatencyNs   Histogram

	NetExposureCents   Gauge
	DailyRealizedCents Gauge
}

// New builds an empty Registry; all counters start at zero.
func New() *Registry { return &Registry{} }
