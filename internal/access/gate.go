// Package access resolves the role an actor holds on a plan and gates
// service entry points on the owner > editor > viewer hierarchy.
package access

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
)

// roleNone is the cached marker for "actor has no role on this plan";
// empty strings cannot be told apart from cache misses.
const roleNone = "none"

const roleCacheTTL = 30 * time.Second

// PlanSource loads plan documents for role resolution.
type PlanSource interface {
	FindByID(ctx context.Context, id string) (*model.Plan, error)
}

// Gate answers role questions with a redis cache in front of the plan
// collection. The cached role is a snapshot taken once per request; it is
// not re-verified mid-operation. Cache failures degrade to direct lookup.
type Gate struct {
	plans  PlanSource
	cache  *redis.Client
	logger *zap.Logger
}

// NewGate builds the gate. cache may be nil to disable caching.
func NewGate(plans PlanSource, cache *redis.Client, logger *zap.Logger) *Gate {
	return &Gate{plans: plans, cache: cache, logger: logger}
}

// ResolveRole returns the actor's role on the plan, "" when the actor is
// neither owner nor member, or NotFoundError when the plan does not exist.
func (g *Gate) ResolveRole(ctx context.Context, actorID, planID string) (string, error) {
	key := "role:" + planID + ":" + actorID
	if g.cache != nil {
		if v, err := g.cache.Get(ctx, key).Result(); err == nil {
			if v == roleNone {
				return "", nil
			}
			return v, nil
		}
	}

	p, err := g.plans.FindByID(ctx, planID)
	if err != nil {
		return "", apperr.Storage("access.ResolveRole", err)
	}
	if p == nil {
		return "", apperr.NotFound("plan", planID)
	}

	role := p.RoleOf(actorID)
	if g.cache != nil {
		cached := role
		if cached == "" {
			cached = roleNone
		}
		if err := g.cache.Set(ctx, key, cached, roleCacheTTL).Err(); err != nil {
			g.logger.Warn("Failed to cache role snapshot",
				zap.Error(err),
				zap.String("plan_id", planID),
			)
		}
	}
	return role, nil
}

// Require fails with AccessError unless the actor's role meets min.
func (g *Gate) Require(ctx context.Context, actorID, planID, min string) error {
	role, err := g.ResolveRole(ctx, actorID, planID)
	if err != nil {
		return err
	}
	if role == "" || !model.RoleAtLeast(role, min) {
		return apperr.Access(min)
	}
	return nil
}

// Invalidate drops cached role snapshots for a plan after membership
// changes. Keys expire quickly anyway; this just shortens the stale window.
func (g *Gate) Invalidate(ctx context.Context, planID string, userIDs ...string) {
	if g.cache == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, uid := range userIDs {
		keys = append(keys, "role:"+planID+":"+uid)
	}
	if len(keys) == 0 {
		return
	}
	if err := g.cache.Del(ctx, keys...).Err(); err != nil {
		g.logger.Warn("Failed to invalidate role cache", zap.Error(err), zap.String("plan_id", planID))
	}
}
