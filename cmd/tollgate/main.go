// Tollgate is a class-based rate limiting gateway for multi-tenant HTTP
// services.
//
// It resolves each request's tenant to a rate class in a shared store,
// matches class-scoped limit definitions by verb and URI pattern, and
// accounts matched requests against fixed-window quota counters.
//
// Usage:
//
//	# Start the gateway
//	tollgate run --config /etc/tollgate/config.yaml
//
//	# Validate a limit definitions file
//	tollgate lint --file limits.yaml
//
//	# Query or set a tenant's rate class
//	tollgate limit-class tenant-1234
//	tollgate limit-class tenant-1234 --class gold
//
//	# Show version information
//	tollgate version
package main

func main() {
	Execute()
}
