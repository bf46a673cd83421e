package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pitabwire/flowdeck/model"
)

// leadingCategories are shown first, in this order, when present.
var leadingCategories = []string{
	RecommendedCategory,
	CoreNodesCategory,
	CustomNodesCategory,
	PersonalizedCategory,
}

// GetCategoriesWithNodes groups node types into category/subcategory
// buckets. Node types are visited in displayName order. A node type can be
// placed several times: once under the personalized category when its name
// is in personalized, and once per declared category/subcategory pair. Node
// types without codex categories go to the uncategorized category only.
func GetCategoriesWithNodes(nodeTypes []model.NodeTypeDescription, personalized []string, opts Options) *CategoriesWithNodes {
	sorted := slices.Clone(nodeTypes)
	slices.SortStableFunc(sorted, func(a, b model.NodeTypeDescription) int {
		return cmp.Compare(a.DisplayName, b.DisplayName)
	})

	defaultSub := opts.defaultSubcategory()
	result := NewCategoriesWithNodes()

	for i := range sorted {
		nodeType := &sorted[i]

		if slices.Contains(personalized, nodeType.Name) {
			addNodeToCategory(result, nodeType, PersonalizedCategory, defaultSub)
		}

		if nodeType.Codex == nil || nodeType.Codex.Categories == nil {
			addNodeToCategory(result, nodeType, UncategorizedCategory, defaultSub)
			continue
		}

		for _, raw := range nodeType.Codex.Categories {
			category := strings.TrimSpace(raw)
			subcategories := nodeType.Codex.Subcategories[category]

			if len(subcategories) == 0 {
				addNodeToCategory(result, nodeType, category, defaultSub)
				continue
			}
			for _, subcategory := range subcategories {
				addNodeToCategory(result, nodeType, category, subcategory)
			}
		}
	}

	return result
}

func addNodeToCategory(groups *CategoriesWithNodes, nodeType *model.NodeTypeDescription, category, subcategory string) {
	b := groups.bucket(category, subcategory)

	isTrigger := nodeType.IsTrigger()
	if isTrigger {
		b.TriggerCount++
	} else {
		b.RegularCount++
	}

	elementType := model.ElementNode
	if nodeType.ActionKey != "" {
		elementType = model.ElementAction
	}

	b.Nodes = append(b.Nodes, model.CreateElement{
		Type:     elementType,
		Key:      category + "_" + nodeType.Name,
		Category: category,
		Properties: model.NodeItemProperties{
			NodeType:    nodeType,
			Subcategory: subcategory,
		},
		IncludedByTrigger: isTrigger,
		IncludedByRegular: !isTrigger,
	})
}

// CategoryOrder returns the display order of the categories present in
// groups: the leading categories, the remaining ones ascending, then the
// uncategorized category.
func CategoryOrder(groups *CategoriesWithNodes) []string {
	var rest []string
	for _, category := range groups.Categories() {
		if slices.Contains(leadingCategories, category) || category == UncategorizedCategory {
			continue
		}
		rest = append(rest, category)
	}
	slices.Sort(rest)

	order := make([]string, 0, groups.Len())
	for _, category := range leadingCategories {
		if _, ok := groups.Category(category); ok {
			order = append(order, category)
		}
	}
	order = append(order, rest...)
	if _, ok := groups.Category(UncategorizedCategory); ok {
		order = append(order, UncategorizedCategory)
	}
	return order
}

// GetCategorizedList flattens grouped node types into the picker's element
// list. Each category element is followed by its subcategory elements, and
// each subcategory element by its nodes. A category with a single
// subcategory emits its nodes directly and takes over that subcategory's
// trigger/regular inclusion flags.
func GetCategorizedList(groups *CategoriesWithNodes, categoryExpanded bool, opts Options) []model.CreateElement {
	var result []model.CreateElement

	for _, category := range CategoryOrder(groups) {
		group, _ := groups.Category(category)

		categoryEl := model.CreateElement{
			Type:       model.ElementCategory,
			Key:        category,
			Category:   category,
			Properties: model.CategoryProperties{Expanded: categoryExpanded},
		}

		subcategories := group.Subcategories()
		if len(subcategories) == 1 {
			bucket, _ := group.Subcategory(subcategories[0])
			if bucket.TriggerCount > 0 {
				categoryEl.IncludedByTrigger = true
			}
			if bucket.RegularCount > 0 {
				categoryEl.IncludedByRegular = true
			}
			result = append(result, categoryEl)
			result = append(result, bucket.Nodes...)
			continue
		}

		slices.Sort(subcategories)

		var children []model.CreateElement
		for _, subcategory := range subcategories {
			bucket, _ := group.Subcategory(subcategory)
			subcategoryEl := model.CreateElement{
				Type:     model.ElementSubcategory,
				Key:      category + "_" + subcategory,
				Category: category,
				Properties: model.SubcategoryProperties{
					Subcategory: subcategory,
					Description: opts.SubcategoryDescription(category, subcategory),
				},
				IncludedByTrigger: bucket.TriggerCount > 0,
				IncludedByRegular: bucket.RegularCount > 0,
			}
			if subcategoryEl.IncludedByTrigger {
				categoryEl.IncludedByTrigger = true
			}
			if subcategoryEl.IncludedByRegular {
				categoryEl.IncludedByRegular = true
			}
			children = append(children, subcategoryEl)
			children = append(children, bucket.Nodes...)
		}

		result = append(result, categoryEl)
		result = append(result, children...)
	}

	return result
}
