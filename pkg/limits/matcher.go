package limits

// Request is the request-scoped input to the engine: the already-resolved
// tenant identity plus the request line. It is created per request and never
// shared across requests.
type Request struct {
	// TenantID is the opaque principal identifier, resolved by the host
	// pipeline's identity layer.
	TenantID string

	// RemoteAddr is the client address, used only by definitions with the
	// tenant_addr dimension.
	RemoteAddr string

	// Verb is the HTTP method.
	Verb string

	// Path is the request URI path.
	Path string

	// RateClass is the tenant's resolved rate class.
	RateClass string
}

// MatchedDefinition pairs a definition with the captures its URI pattern
// produced for a concrete request.
type MatchedDefinition struct {
	Definition *Definition
	Captures   map[string]string
}

// Match selects the definitions that apply to the request, in definition
// order. A definition applies iff the verb is in its verb set (or the set is
// empty), the path matches its URI pattern, and its rate class equals the
// request's resolved class exactly. All three are mandatory: a class-scoped
// rule must never fire for a request in a different class, even on a
// verb+path match.
//
// Result order is the definition load order, which keeps downstream delay
// aggregation deterministic across identical runs. An empty result is a
// valid outcome: no restriction applies.
func Match(definitions []*Definition, req Request) []MatchedDefinition {
	var matched []MatchedDefinition
	for _, def := range definitions {
		if def.RateClass != req.RateClass {
			continue
		}
		if !def.matchVerb(req.Verb) {
			continue
		}
		captures, ok := def.matchPath(req.Path)
		if !ok {
			continue
		}
		matched = append(matched, MatchedDefinition{Definition: def, Captures: captures})
	}
	return matched
}
