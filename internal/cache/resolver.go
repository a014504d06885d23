package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/huddle-sync/internal/repository"
	"github.com/weiawesome/huddle-sync/pkg/log"
)

// RoleCache is the cache used by CachedRoleResolver.
type RoleCache interface {
	Get(ctx context.Context, userID string) ([]string, error)
	Set(ctx context.Context, userID string, roles []string, ttl time.Duration) error
}

// CachedRoleResolver reads through a RoleCache and collapses concurrent
// lookups of the same user into one store query.
type CachedRoleResolver struct {
	store repository.RoleStore
	cache RoleCache
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedRoleResolver(store repository.RoleStore, cache RoleCache, ttl time.Duration) *CachedRoleResolver {
	return &CachedRoleResolver{store: store, cache: cache, ttl: ttl}
}

// ResolveRoles returns cached roles, falling back to the store. Cache errors
// are logged and bypassed; store errors are returned.
func (r *CachedRoleResolver) ResolveRoles(ctx context.Context, userID string) ([]string, error) {
	l := log.Ctx(ctx)

	roles, err := r.cache.Get(ctx, userID)
	if err == nil {
		return roles, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("role cache read failed")
	}

	v, err, _ := r.group.Do(userID, func() (interface{}, error) {
		roles, err := r.store.ResolveRoles(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(ctx, userID, roles, r.ttl); err != nil {
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("role cache write failed")
		}
		return roles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
