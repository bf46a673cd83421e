// Package catalog organizes node type descriptors for the editor's node
// picker: it groups them into category/subcategory buckets, flattens the
// buckets into an ordered element list, and provides the string and filter
// helpers the picker and template views use.
package catalog

// Category names with a fixed position in the picker.
const (
	RecommendedCategory   = "Recommended"
	CoreNodesCategory     = "Core Nodes"
	CustomNodesCategory   = "Custom Nodes"
	PersonalizedCategory  = "Suggested Nodes"
	UncategorizedCategory = "Miscellaneous"
)

// DefaultSubcategory is the subcategory used when a category declares none.
const DefaultSubcategory = "Helpers"

// Node type filters of the picker's type selector.
const (
	RegularNodeFilter = "Regular"
	TriggerNodeFilter = "Trigger"
	AllNodeFilter     = "All"
)

// Options carries the keyword lists and lookup tables the organizer and its
// helpers consult.
type Options struct {
	UncategorizedSubcategory   string
	CategoryExpanded           bool
	CredentialKeywords         []string
	NodeKeywords               []string
	NonActivatableTriggerTypes []string
	TemplateNodesFilter        []string
	MappingParams              []string
	SubcategoryDescriptions    map[string]map[string]string
}

// DefaultOptions returns the stock organizer options.
func DefaultOptions() Options {
	return Options{
		UncategorizedSubcategory: DefaultSubcategory,
		CredentialKeywords:       []string{"API", "OAuth1", "OAuth2"},
		NodeKeywords:             []string{"Trigger"},
		NonActivatableTriggerTypes: []string{
			"n8n-nodes-base.errorTrigger",
			"n8n-nodes-base.manualTrigger",
			"n8n-nodes-base.executeWorkflowTrigger",
		},
		TemplateNodesFilter: []string{
			"n8n-nodes-base.start",
			"n8n-nodes-base.respondToWebhook",
		},
		MappingParams: []string{
			"$evaluateExpression", "$item", "$jmespath", "$node", "$binary",
			"$data", "$env", "$json", "$now", "$parameters", "$parameter",
			"$position", "$resumeWebhookUrl", "$runIndex", "$today", "$workflow",
		},
		SubcategoryDescriptions: map[string]map[string]string{
			CoreNodesCategory: {
				"Flow":                "Branches, core triggers, merge data",
				"Files":               "Work with CSV, XML, text, images etc.",
				"Data Transformation": "Manipulate data fields, run code",
				"Helpers":             "HTTP Requests (API calls), date and time, scrape HTML",
			},
		},
	}
}

// defaultSubcategory returns the configured fallback subcategory label.
func (o Options) defaultSubcategory() string {
	if o.UncategorizedSubcategory == "" {
		return DefaultSubcategory
	}
	return o.UncategorizedSubcategory
}

// SubcategoryDescription returns the description of a subcategory, or "".
func (o Options) SubcategoryDescription(category, subcategory string) string {
	return o.SubcategoryDescriptions[category][subcategory]
}
