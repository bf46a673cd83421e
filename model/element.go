package model

// ElementType is the variant tag of a CreateElement.
type ElementType string

// Node creator element variants.
const (
	ElementCategory    ElementType = "category"
	ElementSubcategory ElementType = "subcategory"
	ElementNode        ElementType = "node"
	ElementAction      ElementType = "action"
)

// CreateElement is one row of the node picker. Properties holds one of
// CategoryProperties, SubcategoryProperties or NodeItemProperties depending
// on Type.
type CreateElement struct {
	Type              ElementType `json:"type"`
	Key               string      `json:"key"`
	Category          string      `json:"category"`
	Properties        any         `json:"properties"`
	IncludedByTrigger bool        `json:"includedByTrigger,omitempty"`
	IncludedByRegular bool        `json:"includedByRegular,omitempty"`
}

// CategoryProperties is the payload of a category element.
type CategoryProperties struct {
	Expanded bool `json:"expanded"`
}

// SubcategoryProperties is the payload of a subcategory element.
type SubcategoryProperties struct {
	Subcategory string `json:"subcategory"`
	Description string `json:"description"`
}

// NodeItemProperties is the payload of a node or action element.
type NodeItemProperties struct {
	NodeType    *NodeTypeDescription `json:"nodeType"`
	Subcategory string               `json:"subcategory"`
}

// NodeItem returns the node payload of a node or action element.
func (e CreateElement) NodeItem() (NodeItemProperties, bool) {
	switch p := e.Properties.(type) {
	case NodeItemProperties:
		return p, p.NodeType != nil
	case *NodeItemProperties:
		if p == nil || p.NodeType == nil {
			return NodeItemProperties{}, false
		}
		return *p, true
	default:
		return NodeItemProperties{}, false
	}
}

// Subcategory returns the payload of a subcategory element.
func (e CreateElement) Subcategory() (SubcategoryProperties, bool) {
	p, ok := e.Properties.(SubcategoryProperties)
	return p, ok
}

// CategoryExpanded returns the expansion flag of a category element.
func (e CreateElement) CategoryExpanded() (bool, bool) {
	p, ok := e.Properties.(CategoryProperties)
	return p.Expanded, ok
}

// WorkflowNode is a node placed on a workflow canvas.
type WorkflowNode struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Disabled bool   `json:"disabled,omitempty"`
}

// TemplateNode is a node type referenced by a workflow template.
type TemplateNode struct {
	Name       string             `json:"name"`
	Categories []TemplateCategory `json:"categories,omitempty"`
}

// TemplateCategory is a catalog category attached to a template node.
type TemplateCategory struct {
	Name string `json:"name"`
}

// ExecutionItem is one item of node execution data. JSON is nil when the
// item carries only binary data.
type ExecutionItem struct {
	JSON map[string]any `json:"json,omitempty"`
}

// ResourceLocatorValue is the value of a resource-locator parameter.
type ResourceLocatorValue struct {
	Mode  string `json:"mode"`
	Value any    `json:"value"`
}
