package limits

import (
	"context"
	"fmt"

	"strato-hq/tollgate/pkg/limits/storage"
)

// DefaultClass is the rate class for tenants with no stored assignment.
const DefaultClass = "default"

// Resolver looks up a tenant's rate class in the shared class store.
//
// Resolution is purely a read: a tenant with no assignment resolves to
// DefaultClass without writing anything back. A store failure is returned as
// an error — "no assignment" and "cannot determine assignment" must stay
// distinguishable, because the latter has to fail the request rather than
// quietly applying default-class limits.
type Resolver struct {
	classes      storage.ClassStore
	defaultClass string
}

// NewResolver creates a resolver over the given class store. An empty
// defaultClass falls back to DefaultClass.
func NewResolver(classes storage.ClassStore, defaultClass string) *Resolver {
	if defaultClass == "" {
		defaultClass = DefaultClass
	}
	return &Resolver{classes: classes, defaultClass: defaultClass}
}

// Resolve returns the tenant's rate class.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (string, error) {
	class, ok, err := r.classes.GetClass(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("resolve rate class for %q: %w", tenantID, err)
	}
	if !ok {
		return r.defaultClass, nil
	}
	return class, nil
}
