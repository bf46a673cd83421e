package license

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/pitabwire/flowdeck/model"
)

const tracerName = "github.com/pitabwire/flowdeck/internal/license"

// Fixed reporting values.
const (
	// UnlimitedQuota is reported as the limit when the license sets no quota.
	UnlimitedQuota = -1

	// WarningThreshold is the usage ratio at which the UI starts warning.
	WarningThreshold = 0.8

	// CommunityPlanName is reported when the license names no plan.
	CommunityPlanName = "Community"
)

// UsageObserver receives every successfully built snapshot.
type UsageObserver interface {
	OnUsageReported(ctx context.Context, snapshot model.UsageSnapshot)
}

// Reporter builds usage snapshots.
type Reporter struct {
	counter   TriggerCounter
	provider  Provider
	observers []UsageObserver
}

// ReporterOption configures optional dependencies.
type ReporterOption func(*Reporter)

// WithObserver adds a usage observer.
func WithObserver(obs UsageObserver) ReporterOption {
	return func(r *Reporter) { r.observers = append(r.observers, obs) }
}

// NewReporter creates a Reporter over its two collaborators.
func NewReporter(counter TriggerCounter, provider Provider, opts ...ReporterOption) *Reporter {
	r := &Reporter{counter: counter, provider: provider}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// licenseData is what the reporter reads from the license provider.
type licenseData struct {
	limit    int
	planID   string
	planName string
}

// Usage returns the current usage snapshot. The trigger count and the
// license are read concurrently; if either read fails the error is returned
// and no snapshot is produced.
func (r *Reporter) Usage(ctx context.Context) (model.UsageSnapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "license.Usage")
	defer span.End()

	var (
		triggerCount int
		lic          licenseData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.counter.ActiveTriggerCount(gctx)
		if err != nil {
			return fmt.Errorf("active trigger count: %w", err)
		}
		triggerCount = n
		return nil
	})
	g.Go(func() error {
		d, err := r.readLicense(gctx)
		if err != nil {
			return err
		}
		lic = d
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.UsageSnapshot{}, err
	}

	snapshot := model.UsageSnapshot{
		Executions: model.ExecutionUsage{
			Value:            triggerCount,
			Limit:            lic.limit,
			WarningThreshold: WarningThreshold,
		},
		License: model.LicenseInfo{
			PlanID:   lic.planID,
			PlanName: lic.planName,
		},
	}

	span.SetAttributes(
		attribute.Int("license.active_triggers", snapshot.Executions.Value),
		attribute.Int("license.limit", snapshot.Executions.Limit),
		attribute.String("license.plan_id", snapshot.License.PlanID),
	)

	for _, obs := range r.observers {
		obs.OnUsageReported(ctx, snapshot)
	}
	return snapshot, nil
}

func (r *Reporter) readLicense(ctx context.Context) (licenseData, error) {
	d := licenseData{limit: UnlimitedQuota, planName: CommunityPlanName}

	plan, err := r.provider.MainPlan(ctx)
	if err != nil {
		return licenseData{}, fmt.Errorf("license main plan: %w", err)
	}
	if plan != nil {
		d.planID = plan.ProductID
	}

	v, ok, err := r.provider.FeatureValue(ctx, FeatureActiveWorkflowsQuota)
	if err != nil {
		return licenseData{}, fmt.Errorf("license feature %q: %w", FeatureActiveWorkflowsQuota, err)
	}
	if ok {
		if n, isInt := intValue(v); isInt {
			d.limit = n
		}
	}

	v, ok, err = r.provider.FeatureValue(ctx, FeaturePlanName)
	if err != nil {
		return licenseData{}, fmt.Errorf("license feature %q: %w", FeaturePlanName, err)
	}
	if ok {
		if s, isString := stringValue(v); isString {
			d.planName = s
		}
	}

	return d, nil
}
