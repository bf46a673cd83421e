package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pitabwire/flowdeck/model"
)

// Default redis keys of the license cache written by the license manager.
const (
	DefaultFeaturesKey = "license:features"
	DefaultMainPlanKey = "license:main_plan"
)

// RedisProvider reads the license from a redis cache shared with the
// license manager. Features live in a hash whose fields are feature keys and
// whose values are JSON-encoded; the main plan is a JSON document under its
// own key.
type RedisProvider struct {
	client      redis.UniversalClient
	featuresKey string
	mainPlanKey string
}

// NewRedisProvider creates a provider over client. Empty keys select the
// defaults.
func NewRedisProvider(client redis.UniversalClient, featuresKey, mainPlanKey string) *RedisProvider {
	if featuresKey == "" {
		featuresKey = DefaultFeaturesKey
	}
	if mainPlanKey == "" {
		mainPlanKey = DefaultMainPlanKey
	}
	return &RedisProvider{client: client, featuresKey: featuresKey, mainPlanKey: mainPlanKey}
}

// MainPlan implements Provider.
func (p *RedisProvider) MainPlan(ctx context.Context) (*model.Plan, error) {
	raw, err := p.client.Get(ctx, p.mainPlanKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", p.mainPlanKey, err)
	}

	var plan model.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal main plan: %w", err)
	}
	if plan.ProductID == "" {
		return nil, nil
	}
	return &plan, nil
}

// FeatureValue implements Provider. Values that are not valid JSON are
// returned as plain strings.
func (p *RedisProvider) FeatureValue(ctx context.Context, key string) (any, bool, error) {
	raw, err := p.client.HGet(ctx, p.featuresKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis hget %q %q: %w", p.featuresKey, key, err)
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw, true, nil
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

// SetFeature stores a feature value. Used by the CLI and tests to seed the
// cache.
func (p *RedisProvider) SetFeature(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal feature %q: %w", key, err)
	}
	if err := p.client.HSet(ctx, p.featuresKey, key, data).Err(); err != nil {
		return fmt.Errorf("redis hset %q %q: %w", p.featuresKey, key, err)
	}
	return nil
}

// SetMainPlan stores the main plan document.
func (p *RedisProvider) SetMainPlan(ctx context.Context, plan model.Plan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal main plan: %w", err)
	}
	if err := p.client.Set(ctx, p.mainPlanKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", p.mainPlanKey, err)
	}
	return nil
}

// HealthCheck pings redis.
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
