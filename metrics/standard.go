package metrics

// Pre-defined metrics for the beacon node. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Campaign ledger ----

	CampaignsCreated = DefaultRegistry.Counter("randao.campaigns_created")
	Commits          = DefaultRegistry.Counter("randao.commits")
	Reveals          = DefaultRegistry.Counter("randao.reveals")
	// FinalizeFailed counts GetSecret calls rejected for missing quorum.
	FinalizeFailed = DefaultRegistry.Counter("randao.finalize_failed")

	// ---- Command pool ----

	PoolPending  = DefaultRegistry.Gauge("txpool.pending")
	PoolApplied  = DefaultRegistry.Counter("txpool.applied")
	PoolRejected = DefaultRegistry.Counter("txpool.rejected")
	PoolExpired  = DefaultRegistry.Counter("txpool.expired")

	// ---- Scheduling agent ----

	Height         = DefaultRegistry.Gauge("agent.height")
	Elections      = DefaultRegistry.Counter("agent.elections")
	ElectionsVoid  = DefaultRegistry.Counter("agent.elections_void")
	Rotations      = DefaultRegistry.Counter("agent.rotations")
	EntropyFetchMs = DefaultRegistry.Histogram("agent.entropy_fetch_ms")
	EntropyMisses  = DefaultRegistry.Counter("agent.entropy_fallbacks")
)
