package model

// UsageSnapshot reports execution quota usage and the active license plan.
type UsageSnapshot struct {
	Executions ExecutionUsage `json:"executions"`
	License    LicenseInfo    `json:"license"`
}

// ExecutionUsage is the active-workflow quota usage. A Limit of -1 means
// unlimited.
type ExecutionUsage struct {
	Value            int     `json:"value"`
	Limit            int     `json:"limit"`
	WarningThreshold float64 `json:"warningThreshold"`
}

// LicenseInfo identifies the license plan.
type LicenseInfo struct {
	PlanID   string `json:"planId"`
	PlanName string `json:"planName"`
}

// Plan is a license plan entitlement.
type Plan struct {
	ProductID string `json:"productId" yaml:"product_id"`
}
