package catalog

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/pitabwire/flowdeck/model"
)

// SubcategoryBucket holds the nodes placed under one category/subcategory
// pair. TriggerCount+RegularCount always equals len(Nodes).
type SubcategoryBucket struct {
	TriggerCount int                   `json:"triggerCount"`
	RegularCount int                   `json:"regularCount"`
	Nodes        []model.CreateElement `json:"nodes"`
}

// CategoryGroup maps subcategory names to buckets in insertion order.
type CategoryGroup struct {
	order   []string
	buckets map[string]*SubcategoryBucket
}

// Subcategories returns the subcategory names in insertion order.
func (g *CategoryGroup) Subcategories() []string {
	if g == nil {
		return nil
	}
	return slices.Clone(g.order)
}

// Subcategory returns the bucket for the named subcategory.
func (g *CategoryGroup) Subcategory(name string) (*SubcategoryBucket, bool) {
	if g == nil {
		return nil, false
	}
	b, ok := g.buckets[name]
	return b, ok
}

// Len returns the number of subcategories.
func (g *CategoryGroup) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// MarshalJSON encodes the group as an object keyed by subcategory name in
// insertion order.
func (g *CategoryGroup) MarshalJSON() ([]byte, error) {
	return marshalOrdered(g.order, func(name string) any { return g.buckets[name] })
}

// CategoriesWithNodes is a two-level insertion-ordered mapping from category
// to subcategory to bucket.
type CategoriesWithNodes struct {
	order  []string
	groups map[string]*CategoryGroup
}

// NewCategoriesWithNodes returns an empty mapping.
func NewCategoriesWithNodes() *CategoriesWithNodes {
	return &CategoriesWithNodes{groups: make(map[string]*CategoryGroup)}
}

// Categories returns the category names in insertion order.
func (c *CategoriesWithNodes) Categories() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.order)
}

// Category returns the group for the named category.
func (c *CategoriesWithNodes) Category(name string) (*CategoryGroup, bool) {
	if c == nil {
		return nil, false
	}
	g, ok := c.groups[name]
	return g, ok
}

// Bucket returns the bucket at category/subcategory.
func (c *CategoriesWithNodes) Bucket(category, subcategory string) (*SubcategoryBucket, bool) {
	g, ok := c.Category(category)
	if !ok {
		return nil, false
	}
	return g.Subcategory(subcategory)
}

// Len returns the number of categories.
func (c *CategoriesWithNodes) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Placements returns the total number of nodes across all buckets.
func (c *CategoriesWithNodes) Placements() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, g := range c.groups {
		for _, b := range g.buckets {
			n += len(b.Nodes)
		}
	}
	return n
}

// MarshalJSON encodes the mapping as nested objects in insertion order.
func (c *CategoriesWithNodes) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return marshalOrdered(c.order, func(name string) any { return c.groups[name] })
}

// bucket returns the bucket at category/subcategory, creating missing levels.
func (c *CategoriesWithNodes) bucket(category, subcategory string) *SubcategoryBucket {
	g, ok := c.groups[category]
	if !ok {
		g = &CategoryGroup{buckets: make(map[string]*SubcategoryBucket)}
		c.groups[category] = g
		c.order = append(c.order, category)
	}
	b, ok := g.buckets[subcategory]
	if !ok {
		b = &SubcategoryBucket{}
		g.buckets[subcategory] = b
		g.order = append(g.order, subcategory)
	}
	return b
}

func marshalOrdered(keys []string, value func(string) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(value(k))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
