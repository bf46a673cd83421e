package catalog

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/pitabwire/flowdeck/model"
)

var (
	// Community packages are named <@scope/>n8n-nodes-<word>, where the word
	// is anything but "base".
	communityPackageWord = regexp.MustCompile(`n8n-nodes-(\w+)`)
	triggerSuffix        = regexp.MustCompile(`(?i) trigger`)
)

// AppNameFromCredType strips credential keywords such as "API" or "OAuth2"
// from a credential display name.
func AppNameFromCredType(name string, keywords []string) string {
	return dropWords(name, keywords)
}

// AppNameFromNodeName strips node keywords such as "Trigger" from a node
// display name.
func AppNameFromNodeName(name string, keywords []string) string {
	return dropWords(name, keywords)
}

func dropWords(name string, keywords []string) string {
	words := strings.Split(name, " ")
	kept := words[:0]
	for _, w := range words {
		if !slices.Contains(keywords, w) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// TriggerNodeServiceName returns the display name without its first
// " trigger" suffix, matched case-insensitively.
func TriggerNodeServiceName(nodeType *model.NodeTypeDescription) string {
	if nodeType == nil {
		return ""
	}
	name := nodeType.DisplayName
	loc := triggerSuffix.FindStringIndex(name)
	if loc == nil {
		return name
	}
	return name[:loc[0]] + name[loc[1]:]
}

// ActivatableTriggerNodes returns the enabled nodes whose type can activate
// a workflow.
func ActivatableTriggerNodes(nodes []model.WorkflowNode, nonActivatable []string) []model.WorkflowNode {
	var result []model.WorkflowNode
	for _, n := range nodes {
		if n.Disabled || slices.Contains(nonActivatable, n.Type) {
			continue
		}
		result = append(result, n)
	}
	return result
}

// FilterTemplateNodes drops core nodes from a template's node list unless
// only core nodes remain, then drops the names listed in filter.
func FilterTemplateNodes(nodes []model.TemplateNode, filter []string) []model.TemplateNode {
	var notCore []model.TemplateNode
	for _, n := range nodes {
		isCore := slices.ContainsFunc(n.Categories, func(c model.TemplateCategory) bool {
			return c.Name == CoreNodesCategory
		})
		if !isCore {
			notCore = append(notCore, n)
		}
	}

	candidates := nodes
	if len(notCore) > 0 {
		candidates = notCore
	}

	var result []model.TemplateNode
	for _, n := range candidates {
		if !slices.Contains(filter, n.Name) {
			result = append(result, n)
		}
	}
	return result
}

// IsCommunityPackageName reports whether name refers to a community node
// package rather than the built-in base package.
func IsCommunityPackageName(name string) bool {
	for _, m := range communityPackageWord.FindAllStringSubmatch(name, -1) {
		if m[1] != "base" {
			return true
		}
	}
	return false
}

// HasExpressionMapping reports whether value is a string referencing one of
// the expression mapping params.
func HasExpressionMapping(value any, params []string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return slices.ContainsFunc(params, func(p string) bool {
		return strings.Contains(s, p)
	})
}

// IsValueExpression reports whether a parameter value is an expression: a
// string, or a resource-locator value, starting with "=".
func IsValueExpression(parameter model.NodeProperty, value any) bool {
	if parameter.NoDataExpression {
		return false
	}
	if s, ok := value.(string); ok {
		return strings.HasPrefix(s, "=")
	}
	if inner, ok := resourceLocatorInner(value); ok && truthy(inner) {
		return strings.HasPrefix(fmt.Sprint(inner), "=")
	}
	return false
}

func resourceLocatorInner(value any) (any, bool) {
	switch v := value.(type) {
	case model.ResourceLocatorValue:
		return v.Value, true
	case *model.ResourceLocatorValue:
		if v == nil {
			return nil, false
		}
		return v.Value, true
	case map[string]any:
		_, hasMode := v["mode"]
		inner, hasValue := v["value"]
		return inner, hasMode && hasValue
	default:
		return nil, false
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}

// ExecutionDataToJSON collects the JSON payloads of execution items,
// skipping items that carry none.
func ExecutionDataToJSON(items []model.ExecutionItem) []map[string]any {
	result := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if item.JSON != nil {
			result = append(result, item.JSON)
		}
	}
	return result
}

// MatchesSelectType reports whether an element passes the picker's type
// selector.
func MatchesSelectType(el model.CreateElement, selectedType string) bool {
	if selectedType == RegularNodeFilter && el.IncludedByRegular {
		return true
	}
	if selectedType == TriggerNodeFilter && el.IncludedByTrigger {
		return true
	}
	return selectedType == AllNodeFilter
}

// MatchesNodeType reports whether a node element's display name or one of
// its aliases contains filter. filter must already be lower case.
func MatchesNodeType(el model.CreateElement, filter string) bool {
	item, ok := el.NodeItem()
	if !ok {
		return false
	}
	if strings.Contains(strings.ToLower(item.NodeType.DisplayName), filter) {
		return true
	}
	return matchesAlias(item.NodeType, filter)
}

func matchesAlias(nodeType *model.NodeTypeDescription, filter string) bool {
	if nodeType.Codex == nil {
		return false
	}
	return slices.ContainsFunc(nodeType.Codex.Alias, func(alias string) bool {
		return strings.Contains(strings.ToLower(alias), filter)
	})
}

// HasOnlyListMode reports whether a resource-locator parameter offers the
// list mode and nothing else.
func HasOnlyListMode(parameter model.NodeProperty) bool {
	return len(parameter.Modes) == 1 && parameter.Modes[0].Name == "list"
}
