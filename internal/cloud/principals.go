package cloud

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"qs-rls-manager/internal/domain"
)

const principalCacheSize = 64

type principalSet struct {
	users  []domain.Principal
	groups []domain.Principal
}

// PrincipalDirectory lists BI users and groups per region and namespace,
// caching each listing for a TTL.
type PrincipalDirectory struct {
	registry  domain.ClientRegistry
	namespace string
	cache     *expirable.LRU[string, principalSet]
}

// NewPrincipalDirectory creates a directory over namespace with the given TTL.
func NewPrincipalDirectory(registry domain.ClientRegistry, namespace string, ttl time.Duration) *PrincipalDirectory {
	return &PrincipalDirectory{
		registry:  registry,
		namespace: namespace,
		cache:     expirable.NewLRU[string, principalSet](principalCacheSize, nil, ttl),
	}
}

var _ domain.PrincipalDirectory = (*PrincipalDirectory)(nil)

// Principals returns the users and groups of the configured namespace in region.
func (d *PrincipalDirectory) Principals(ctx context.Context, region string) ([]domain.Principal, []domain.Principal, error) {
	key := region + "/" + d.namespace
	if set, ok := d.cache.Get(key); ok {
		return set.users, set.groups, nil
	}

	clients, err := d.registry.ForRegion(ctx, region)
	if err != nil {
		return nil, nil, err
	}
	users, err := clients.BI.ListUsers(ctx, d.namespace)
	if err != nil {
		return nil, nil, err
	}
	groups, err := clients.BI.ListGroups(ctx, d.namespace)
	if err != nil {
		return nil, nil, err
	}
	d.cache.Add(key, principalSet{users: users, groups: groups})
	return users, groups, nil
}

// Invalidate drops every cached listing.
func (d *PrincipalDirectory) Invalidate() {
	d.cache.Purge()
}
