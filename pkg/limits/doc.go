// Package limits implements class-based, per-request rate limiting for
// multi-tenant HTTP services.
//
// Each request is attributed to a tenant; the tenant's rate class is
// resolved from the shared class store; the definitions scoped to that class
// are matched by verb and URI pattern; and each matched definition's
// fixed-window counter in the quota ledger decides allow or deny. The
// per-definition verdicts aggregate into one final verdict with a
// retry-after signal.
//
// # Flow
//
//	request -> Resolver -> Match -> Accountant (per definition) -> FinalVerdict
//
// # Concurrency
//
// The engine is invoked synchronously once per request and holds no shared
// mutable state between requests. All counter contention is resolved by the
// ledger's atomic increment, which keeps accounting exact across goroutines
// and across process instances sharing the same store.
//
// # Failure semantics
//
// A store failure fails the request (wrapping storage.ErrUnavailable); it is
// never treated as "allow" or "default class". A denied verdict is normal
// data, not an error. Malformed definitions are skipped at load time by the
// loader package and never reach the engine.
package limits
