// Package license reports execution quota usage and license plan identity
// from a license provider and an active trigger counter.
package license

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pitabwire/flowdeck/model"
)

// Feature keys read from the license.
const (
	FeatureActiveWorkflowsQuota = "quota:activeWorkflows"
	FeaturePlanName             = "planName"
)

// Provider exposes the entitlements of the running instance's license.
type Provider interface {
	// MainPlan returns the license's main plan, or nil when none resolves.
	MainPlan(ctx context.Context) (*model.Plan, error)

	// FeatureValue returns the value of a license feature and whether the
	// license declares it.
	FeatureValue(ctx context.Context, key string) (any, bool, error)
}

// StaticProvider serves a fixed license, typically loaded from config.
type StaticProvider struct {
	mu       sync.RWMutex
	plan     *model.Plan
	features map[string]any
}

// NewStaticProvider creates a provider for the given plan and features. A
// nil plan means the license has no main plan.
func NewStaticProvider(plan *model.Plan, features map[string]any) *StaticProvider {
	fs := make(map[string]any, len(features))
	for k, v := range features {
		fs[k] = v
	}
	return &StaticProvider{plan: plan, features: fs}
}

// MainPlan implements Provider.
func (p *StaticProvider) MainPlan(_ context.Context) (*model.Plan, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.plan == nil {
		return nil, nil
	}
	plan := *p.plan
	return &plan, nil
}

// FeatureValue implements Provider.
func (p *StaticProvider) FeatureValue(_ context.Context, key string) (any, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.features[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

// Update replaces the license contents, e.g. after a renewal.
func (p *StaticProvider) Update(plan *model.Plan, features map[string]any) {
	fs := make(map[string]any, len(features))
	for k, v := range features {
		fs[k] = v
	}
	p.mu.Lock()
	p.plan = plan
	p.features = fs
	p.mu.Unlock()
}

// intValue converts a feature value to an int. Strings are accepted because
// some providers store every value as text.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// stringValue converts a feature value to a string.
func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
