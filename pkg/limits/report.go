package limits

import (
	"context"
	"time"
)

// ReportEntry describes one definition's current standing for a tenant, in
// the shape the /v1/limits endpoint serves.
type ReportEntry struct {
	Verb      string    `json:"verb"`
	URI       string    `json:"uri"`
	Value     int64     `json:"value"`
	Unit      string    `json:"unit"`
	Remaining int64     `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// allVerbs is the expansion used for definitions that apply to every verb.
var allVerbs = []string{"GET", "HEAD", "POST", "PUT", "DELETE"}

// Report lists, per verb, every definition that applies to the tenant's rate
// class, with the remaining quota and reset time of the tenant's base
// bucket. Quota is peeked, never consumed. Capture-scoped sub-buckets are
// reported at the definition level: their per-value counters are not
// enumerable without a store scan.
func (e *Engine) Report(ctx context.Context, tenantID, remoteAddr string) ([]ReportEntry, error) {
	now := e.now()

	class, err := e.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var entries []ReportEntry
	for _, def := range e.Definitions() {
		if def.RateClass != class {
			continue
		}

		remaining, reset, err := e.accountant.Remaining(ctx, def, tenantID, remoteAddr, now)
		if err != nil {
			e.metrics.observeError("peek")
			return nil, err
		}

		verbs := def.Verbs
		if len(verbs) == 0 {
			verbs = allVerbs
		}
		for _, verb := range verbs {
			entries = append(entries, ReportEntry{
				Verb:      verb,
				URI:       def.URI,
				Value:     def.Value,
				Unit:      string(def.Unit),
				Remaining: remaining,
				ResetTime: reset,
			})
		}
	}
	return entries, nil
}
