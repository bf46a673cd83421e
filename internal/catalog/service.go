package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pitabwire/flowdeck/model"
)

const tracerName = "github.com/pitabwire/flowdeck/internal/catalog"

// NodeTypeSource supplies the node types the catalog is built from.
type NodeTypeSource interface {
	All() []model.NodeTypeDescription
	Checksum() string
}

// Observer receives catalog cache and build events.
type Observer interface {
	OnCatalogCache(hit bool)
	OnCatalogBuilt(duration time.Duration, nodeTypes int)
}

// ListRequest selects and filters the flattened catalog.
type ListRequest struct {
	// Personalized node type names placed under the personalized category.
	Personalized []string

	// Expanded marks category elements as expanded.
	Expanded bool

	// SelectType is one of RegularNodeFilter, TriggerNodeFilter or
	// AllNodeFilter. Empty means all.
	SelectType string

	// Filter is a search string matched against display names and aliases.
	// When set, only matching node elements are returned.
	Filter string
}

// Service builds catalog groupings from a node type source and caches them
// per source checksum and personalized set.
type Service struct {
	source     NodeTypeSource
	opts       Options
	defaultTTL time.Duration
	maxEntries int
	observer   Observer

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	groups    *CategoriesWithNodes
	expiresAt time.Time
}

// ServiceOption configures optional Service settings.
type ServiceOption func(*Service)

// WithCache sets the cache TTL and maximum entry count.
func WithCache(ttl time.Duration, maxEntries int) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
		if maxEntries > 0 {
			s.maxEntries = maxEntries
		}
	}
}

// WithObserver sets the cache and build observer.
func WithObserver(obs Observer) ServiceOption {
	return func(s *Service) { s.observer = obs }
}

// NewService creates a Service over source.
func NewService(source NodeTypeSource, opts Options, options ...ServiceOption) *Service {
	s := &Service{
		source:     source,
		opts:       opts,
		defaultTTL: 5 * time.Minute,
		maxEntries: 256,
		cache:      make(map[string]cacheEntry),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Options returns the organizer options the service was built with.
func (s *Service) Options() Options {
	return s.opts
}

// Categories returns the category/subcategory grouping of all node types.
// The result is shared with the cache and must not be modified.
func (s *Service) Categories(ctx context.Context, personalized []string) *CategoriesWithNodes {
	key := s.cacheKey(personalized)

	if groups, hit := s.getFromCache(key); hit {
		s.notifyCache(true)
		return groups
	}
	s.notifyCache(false)

	_, span := otel.Tracer(tracerName).Start(ctx, "catalog.Build")
	defer span.End()

	start := time.Now()
	nodeTypes := s.source.All()
	groups := GetCategoriesWithNodes(nodeTypes, personalized, s.opts)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int("catalog.node_types", len(nodeTypes)),
		attribute.Int("catalog.categories", groups.Len()),
	)
	if s.observer != nil {
		s.observer.OnCatalogBuilt(duration, len(nodeTypes))
	}

	s.putInCache(key, groups)
	return groups
}

// List returns the flattened catalog for req. Without a search filter the
// categorized list is returned with elements outside the selected type
// removed. With a filter only node elements matching both the type and the
// filter remain, one per node type.
func (s *Service) List(ctx context.Context, req ListRequest) []model.CreateElement {
	groups := s.Categories(ctx, req.Personalized)
	elements := GetCategorizedList(groups, req.Expanded || s.opts.CategoryExpanded, s.opts)

	selectType := req.SelectType
	if selectType == "" {
		selectType = AllNodeFilter
	}
	filter := strings.ToLower(strings.TrimSpace(req.Filter))

	result := make([]model.CreateElement, 0, len(elements))

	if filter == "" {
		for _, el := range elements {
			if MatchesSelectType(el, selectType) {
				result = append(result, el)
			}
		}
		return result
	}

	seen := make(map[string]bool)
	for _, el := range elements {
		item, ok := el.NodeItem()
		if !ok || seen[item.NodeType.Name] {
			continue
		}
		if MatchesSelectType(el, selectType) && MatchesNodeType(el, filter) {
			seen[item.NodeType.Name] = true
			result = append(result, el)
		}
	}
	return result
}

// cacheKey scopes the grouping to the source contents and personalized set.
func (s *Service) cacheKey(personalized []string) string {
	names := slices.Clone(personalized)
	slices.Sort(names)
	names = slices.Compact(names)
	return "catalog:" + s.source.Checksum() + ":" + strings.Join(names, ",")
}

// getFromCache returns a cached grouping if the entry exists and hasn't expired.
func (s *Service) getFromCache(key string) (*CategoriesWithNodes, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.groups, true
}

// putInCache stores a grouping with the default TTL.
func (s *Service) putInCache(key string, groups *CategoriesWithNodes) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cache) >= s.maxEntries {
		s.evictExpired()
	}
	// Nothing expired; start over.
	if len(s.cache) >= s.maxEntries {
		clear(s.cache)
	}

	s.cache[key] = cacheEntry{
		groups:    groups,
		expiresAt: time.Now().Add(s.defaultTTL),
	}
}

// evictExpired removes expired entries. Must be called with mu held.
func (s *Service) evictExpired() {
	now := time.Now()
	for k, v := range s.cache {
		if now.After(v.expiresAt) {
			delete(s.cache, k)
		}
	}
}

// Invalidate drops every cached grouping.
func (s *Service) Invalidate() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// CacheLen returns the number of entries in the cache. For testing.
func (s *Service) CacheLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Service) notifyCache(hit bool) {
	if s.observer != nil {
		s.observer.OnCatalogCache(hit)
	}
}
