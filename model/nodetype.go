package model

import "slices"

// TriggerGroup is the group tag that marks a node type as a trigger.
const TriggerGroup = "trigger"

// NodeTypeDescription describes one kind of workflow step: its display
// metadata, catalog placement, credential requirements and parameters.
type NodeTypeDescription struct {
	Name        string                      `json:"name" yaml:"name" validate:"required"`
	DisplayName string                      `json:"displayName" yaml:"displayName" validate:"required"`
	Description string                      `json:"description,omitempty" yaml:"description"`
	Version     float64                     `json:"version,omitempty" yaml:"version"`
	Group       []string                    `json:"group" yaml:"group"`
	PackageName string                      `json:"packageName,omitempty" yaml:"packageName"`
	ActionKey   string                      `json:"actionKey,omitempty" yaml:"actionKey"`
	Codex       *Codex                      `json:"codex,omitempty" yaml:"codex"`
	Credentials []NodeCredentialDescription `json:"credentials,omitempty" yaml:"credentials" validate:"dive"`
	Properties  []NodeProperty              `json:"properties" yaml:"properties" validate:"dive"`
}

// IsTrigger reports whether the node type is tagged as a trigger.
func (n *NodeTypeDescription) IsTrigger() bool {
	return slices.Contains(n.Group, TriggerGroup)
}

// Property returns the first property with the given name.
func (n *NodeTypeDescription) Property(name string) (NodeProperty, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return NodeProperty{}, false
}

// Codex is the catalog metadata block of a node type.
type Codex struct {
	Categories    []string            `json:"categories,omitempty" yaml:"categories"`
	Subcategories map[string][]string `json:"subcategories,omitempty" yaml:"subcategories"`
	Alias         []string            `json:"alias,omitempty" yaml:"alias"`
}

// NodeCredentialDescription is a credential a node type can authenticate with.
type NodeCredentialDescription struct {
	Name           string          `json:"name" yaml:"name" validate:"required"`
	Required       bool            `json:"required,omitempty" yaml:"required"`
	DisplayOptions *DisplayOptions `json:"displayOptions,omitempty" yaml:"displayOptions"`
}

// ShowConditions returns the credential's show conditions, or nil.
func (c *NodeCredentialDescription) ShowConditions() Conditions {
	if c == nil || c.DisplayOptions == nil {
		return nil
	}
	return c.DisplayOptions.Show
}

// DisplayOptions controls when a parameter or credential is visible.
type DisplayOptions struct {
	Show Conditions `json:"show,omitempty" yaml:"show"`
	Hide Conditions `json:"hide,omitempty" yaml:"hide"`
}

// NodeProperty is one configurable parameter of a node type.
type NodeProperty struct {
	Name             string           `json:"name" yaml:"name" validate:"required"`
	DisplayName      string           `json:"displayName,omitempty" yaml:"displayName"`
	Type             string           `json:"type,omitempty" yaml:"type"`
	Default          any              `json:"default,omitempty" yaml:"default"`
	Description      string           `json:"description,omitempty" yaml:"description"`
	Options          []PropertyOption `json:"options,omitempty" yaml:"options"`
	DisplayOptions   *DisplayOptions  `json:"displayOptions,omitempty" yaml:"displayOptions"`
	NoDataExpression bool             `json:"noDataExpression,omitempty" yaml:"noDataExpression"`
	Modes            []PropertyMode   `json:"modes,omitempty" yaml:"modes"`
}

// ShowConditions returns the property's show conditions, or nil.
func (p *NodeProperty) ShowConditions() Conditions {
	if p == nil || p.DisplayOptions == nil {
		return nil
	}
	return p.DisplayOptions.Show
}

// PropertyOption is one selectable value of an options-type parameter.
type PropertyOption struct {
	Name        string `json:"name" yaml:"name"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// PropertyMode is one input mode of a resource-locator parameter.
type PropertyMode struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName"`
	Type        string `json:"type,omitempty" yaml:"type"`
}

// NodeAuthenticationOption is one authentication method a node type supports.
type NodeAuthenticationOption struct {
	Name           string          `json:"name"`
	Value          any             `json:"value"`
	DisplayOptions *DisplayOptions `json:"displayOptions,omitempty"`
}
