package live

// Tier is the closed set of LiveDataServer tool grades, fixed from least to
// most dangerous.
type Tier int

// Closed set of tiers.
const (
	Tier1ReadOnlyPrimitives Tier = 1
	Tier2DomainComposites   Tier = 2
	Tier3Operational        Tier = 3
	Tier4GuardedEscapeHatch Tier = 4
)

// Tier1Tools is the closed set of read-only primitive tool names.
var Tier1Tools = []string{
	"count", "sample", "find", "pluck", "aggregate",
	"association_count", "schema", "recent", "status",
}

// Tier2Tools is the closed set of domain-aware composite tool names.
var Tier2Tools = []string{
	"diagnose_model", "data_snapshot", "validate_record", "check_setting",
	"update_setting", "check_policy", "validate_with", "check_eligibility", "decorate",
}

// Tier3Tools is the closed set of operational/analytics tool names.
var Tier3Tools = []string{
	"slow_endpoints", "error_rates", "throughput", "job_queues", "job_failures",
	"job_find", "job_schedule", "redis_info", "cache_stats", "channel_status",
}

// Tier4Tools is the closed set of guarded escape-hatch tool names.
var Tier4Tools = []string{"eval", "sql", "query"}

// RequiresConfirmation is the closed set of tool names that route through
// the Confirmation gate even outside Tier 4.
var RequiresConfirmation = map[string]struct{}{
	"update_setting": {},
	"job_find":       {}, // only when a retry is requested; enforced by the handler
	"eval":           {},
	"sql":            {},
	"query":          {},
}

// TierOf returns the tier a tool name belongs to, and whether it was found
// in any tier's closed set.
func TierOf(tool string) (Tier, bool) {
	for _, t := range Tier1Tools {
		if t == tool {
			return Tier1ReadOnlyPrimitives, true
		}
	}
	for _, t := range Tier2Tools {
		if t == tool {
			return Tier2DomainComposites, true
		}
	}
	for _, t := range Tier3Tools {
		if t == tool {
			return Tier3Operational, true
		}
	}
	for _, t := range Tier4Tools {
		if t == tool {
			return Tier4GuardedEscapeHatch, true
		}
	}
	return 0, false
}

// AllTools returns every tool name across all tiers.
func AllTools() []string {
	all := make([]string, 0, len(Tier1Tools)+len(Tier2Tools)+len(Tier3Tools)+len(Tier4Tools))
	all = append(all, Tier1Tools...)
	all = append(all, Tier2Tools...)
	all = append(all, Tier3Tools...)
	all = append(all, Tier4Tools...)
	return all
}
