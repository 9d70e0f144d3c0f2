package models

// LoadState is the valuation pipeline's loading state. Transitions:
// Idle → LoadingStatic → LoadingLive → Ready | Failed.
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoadingStatic
	LoadLoadingLive
	LoadReady
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoadingStatic:
		return "loading_static"
	case LoadLoadingLive:
		return "loading_live"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether loading has settled, successfully or not.
func (s LoadState) Done() bool {
	return s == LoadReady || s == LoadFailed
}

// PortfolioSnapshot is the cohesive read model the valuation pipeline
// exposes to views. Built fresh on every Load; nothing is cached across
// loads beyond the snapshot itself.
type PortfolioSnapshot struct {
	UserInfo      *UserProfile     `json:"user_info"`
	Holdings      []EnrichedHolding `json:"holdings"`
	OrderHistory  []Order          `json:"order_history"`
	PendingOrders []Order          `json:"pending_orders"`
	AssetHistory  []AssetSnapshot  `json:"asset_history"`
	Valuation     ValuationSummary `json:"valuation"`

	// Error holds the display message recorded when a load phase failed.
	// A snapshot with a non-empty Error is still usable; degraded values
	// are zeroed rather than missing.
	Error string `json:"error,omitempty"`
}
