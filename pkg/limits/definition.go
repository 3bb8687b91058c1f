package limits

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Unit is the accounting window length of a limit definition.
type Unit string

const (
	// UnitSecond is a one-second window.
	UnitSecond Unit = "second"

	// UnitMinute is a sixty-second window.
	UnitMinute Unit = "minute"

	// UnitHour is a one-hour window.
	UnitHour Unit = "hour"

	// UnitDay is a 24-hour window.
	UnitDay Unit = "day"
)

// Window returns the window length for the unit, or false for an unknown unit.
func (u Unit) Window() (time.Duration, bool) {
	switch u {
	case UnitSecond:
		return time.Second, true
	case UnitMinute:
		return time.Minute, true
	case UnitHour:
		return time.Hour, true
	case UnitDay:
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Dimension selects the identity a definition's buckets are keyed by.
//
// The original deployment keyed buckets by tenant plus remote address
// unconditionally; here the choice is per definition.
type Dimension string

const (
	// DimensionTenant buckets by tenant identifier alone. Default.
	DimensionTenant Dimension = "tenant"

	// DimensionTenantAddr buckets by tenant identifier plus remote address,
	// so the same tenant calling from two addresses consumes two buckets.
	DimensionTenantAddr Dimension = "tenant_addr"
)

// Definition is one immutable rate rule: URI pattern + verbs + rate class +
// quota per window. Definitions are created by the loader at startup (or on
// a watched reload), validated once, and never mutated at request time.
type Definition struct {
	// UUID identifies the definition for the lifetime of the process and in
	// ledger bucket keys, so counters survive reloads of an unchanged rule.
	UUID string `yaml:"uuid"`

	// URI is the path-matching template, e.g. "/tenants/{tenant_id}/tokens".
	// Braced segments match one path segment and produce named captures.
	URI string `yaml:"uri"`

	// Verbs is the set of HTTP methods the rule applies to. Empty means all.
	Verbs []string `yaml:"verbs"`

	// RateClass is the only rate class this definition fires for. Matching
	// is exact and case-sensitive.
	RateClass string `yaml:"rate_class"`

	// Value is the request quota per window. Must be positive.
	Value int64 `yaml:"value"`

	// Unit is the window length: second, minute, hour or day.
	Unit Unit `yaml:"unit"`

	// Queries names captures whose values sub-bucket the quota, so each
	// distinct captured value gets an independent counter.
	Queries []string `yaml:"queries"`

	// Dimension selects tenant or tenant+address bucketing. Empty means
	// tenant.
	Dimension Dimension `yaml:"dimension"`

	pattern *pattern
	verbSet map[string]struct{}
}

// Validate checks the definition's invariants and compiles its URI pattern.
// It must be called (once) before the definition is matched against requests;
// the loader does this and skips definitions that fail.
func (d *Definition) Validate() error {
	if d.UUID == "" {
		return fmt.Errorf("definition has no uuid")
	}
	if _, err := uuid.Parse(d.UUID); err != nil {
		return fmt.Errorf("definition %q: invalid uuid: %w", d.UUID, err)
	}
	if d.URI == "" {
		return fmt.Errorf("definition %s: missing uri", d.UUID)
	}
	if d.RateClass == "" {
		return fmt.Errorf("definition %s: missing rate_class", d.UUID)
	}
	if d.Value <= 0 {
		return fmt.Errorf("definition %s: value must be positive, got %d", d.UUID, d.Value)
	}
	if _, ok := d.Unit.Window(); !ok {
		return fmt.Errorf("definition %s: unknown unit %q", d.UUID, d.Unit)
	}
	if d.Dimension == "" {
		d.Dimension = DimensionTenant
	}
	if d.Dimension != DimensionTenant && d.Dimension != DimensionTenantAddr {
		return fmt.Errorf("definition %s: unknown dimension %q", d.UUID, d.Dimension)
	}

	p, err := compilePattern(d.URI)
	if err != nil {
		return fmt.Errorf("definition %s: %w", d.UUID, err)
	}
	for _, q := range d.Queries {
		if !p.hasCapture(q) {
			return fmt.Errorf("definition %s: queries names %q but uri has no such capture", d.UUID, q)
		}
	}
	d.pattern = p

	d.verbSet = make(map[string]struct{}, len(d.Verbs))
	for _, v := range d.Verbs {
		d.verbSet[strings.ToUpper(v)] = struct{}{}
	}

	return nil
}

// matchVerb reports whether the definition applies to the HTTP method.
func (d *Definition) matchVerb(verb string) bool {
	if len(d.verbSet) == 0 {
		return true
	}
	_, ok := d.verbSet[strings.ToUpper(verb)]
	return ok
}

// matchPath matches path against the compiled URI pattern and returns the
// capture map on success.
func (d *Definition) matchPath(path string) (map[string]string, bool) {
	return d.pattern.match(path)
}

// BucketKey derives the ledger key for a request matched by this definition.
// The key is deterministic: same definition, dimension value and captures
// always produce the same key, and distinct pairs never collide because the
// UUID prefixes it and capture values are slash-joined in sorted name order.
func (d *Definition) BucketKey(tenantID, remoteAddr string, captures map[string]string) string {
	var b strings.Builder
	b.WriteString(d.UUID)
	b.WriteByte('/')
	b.WriteString(tenantID)
	if d.Dimension == DimensionTenantAddr {
		b.WriteByte(':')
		b.WriteString(remoteAddr)
	}

	if len(d.Queries) > 0 {
		names := make([]string, len(d.Queries))
		copy(names, d.Queries)
		sort.Strings(names)
		for _, name := range names {
			b.WriteByte('/')
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(captures[name])
		}
	}

	return b.String()
}
