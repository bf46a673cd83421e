package license

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5"
)

// TriggerCounter counts the trigger nodes of all active workflows.
type TriggerCounter interface {
	ActiveTriggerCount(ctx context.Context) (int, error)
}

// --- MemoryTriggerCounter ---

type workflowTriggers struct {
	active       bool
	triggerCount int
}

// MemoryTriggerCounter tracks workflow trigger counts in memory. Suitable
// for testing and single-instance deployments.
type MemoryTriggerCounter struct {
	mu        sync.RWMutex
	workflows map[string]workflowTriggers
}

// NewMemoryTriggerCounter creates an empty counter.
func NewMemoryTriggerCounter() *MemoryTriggerCounter {
	return &MemoryTriggerCounter{workflows: make(map[string]workflowTriggers)}
}

// Set records a workflow's activation state and trigger count.
func (c *MemoryTriggerCounter) Set(workflowID string, active bool, triggerCount int) {
	if triggerCount < 0 {
		triggerCount = 0
	}
	c.mu.Lock()
	c.workflows[workflowID] = workflowTriggers{active: active, triggerCount: triggerCount}
	c.mu.Unlock()
}

// Remove forgets a workflow.
func (c *MemoryTriggerCounter) Remove(workflowID string) {
	c.mu.Lock()
	delete(c.workflows, workflowID)
	c.mu.Unlock()
}

// ActiveTriggerCount implements TriggerCounter.
func (c *MemoryTriggerCounter) ActiveTriggerCount(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, w := range c.workflows {
		if w.active {
			total += w.triggerCount
		}
	}
	return total, nil
}

// --- PgTriggerCounter ---

// Querier is the subset of pgxpool.Pool the counter uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// PgTriggerCounter sums trigger counts over active rows of the workflow
// table in PostgreSQL.
type PgTriggerCounter struct {
	db    Querier
	query string
}

// NewPgTriggerCounter creates a counter over db. tablePrefix is prepended to
// the workflow_entity table name and may only hold letters, digits and
// underscores.
func NewPgTriggerCounter(db Querier, tablePrefix string) (*PgTriggerCounter, error) {
	if !tablePrefixPattern.MatchString(tablePrefix) {
		return nil, fmt.Errorf("invalid table prefix %q", tablePrefix)
	}
	query := fmt.Sprintf(
		`SELECT COALESCE(SUM("triggerCount"), 0)::bigint FROM %sworkflow_entity WHERE active = true`,
		tablePrefix,
	)
	return &PgTriggerCounter{db: db, query: query}, nil
}

// ActiveTriggerCount implements TriggerCounter.
func (c *PgTriggerCounter) ActiveTriggerCount(ctx context.Context) (int, error) {
	var total int64
	if err := c.db.QueryRow(ctx, c.query).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query active trigger count: %w", err)
	}
	return int(total), nil
}

// HealthCheck pings the database when the querier supports it.
func (c *PgTriggerCounter) HealthCheck(ctx context.Context) error {
	if p, ok := c.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
