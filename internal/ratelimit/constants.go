// Package ratelimit provides rate limiting for ArcGIS Online REST calls
// using a token bucket algorithm.
package ratelimit

// ArcGIS Online does not publish hard per-endpoint throttle numbers, but the
// sharing API starts returning 403 "too many requests" errors when an
// account sustains more than a handful of requests per second. The audit
// pipeline walks every folder and every item of the org account, so the
// limiter targets a sustained rate well below where we have seen throttling
// in practice.
const (
	// PortalRatePerSec is the sustained rate for read traffic against the
	// sharing API (search, folder listings, item reads, group lookups).
	PortalRatePerSec = 4.0

	// PortalBurstCapacity lets a run start quickly (initial folder walk)
	// before settling to the sustained rate.
	PortalBurstCapacity = 40

	// UpdateRatePerSec is the sustained rate for item mutations (update,
	// share, move, protect). Writes are heavier server-side and the fixer
	// only writes when tags actually changed, so a slower bucket costs
	// little.
	UpdateRatePerSec = 1.0

	// UpdateBurstCapacity covers a short run of consecutive updates.
	UpdateBurstCapacity = 10

	// PublishRatePerSec throttles the add-item/publish sequence. Staging
	// dominates publish wall time, so one request every few seconds is
	// never the bottleneck.
	PublishRatePerSec = 0.5

	// PublishBurstCapacity covers the fixed call sequence for one dataset
	// (add, publish, share, protect, update, move, capabilities).
	PublishBurstCapacity = 8
)
