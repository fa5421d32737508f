package models

import "time"

// DailyKPI aggregates one plant/line/product's hourly results over a UTC day.
type DailyKPI struct {
	PlantName          string    `json:"plant_name"`
	PlantLine          string    `json:"plant_line"`
	ProductName        string    `json:"product_name"`
	Day                time.Time `json:"day"`
	TotalHours         int       `json:"total_hours"`
	CompliantHours     int       `json:"compliant_hours"`
	AlertHours         int       `json:"alert_hours"`
	ComplianceRatePct  float64   `json:"compliance_rate_pct"`
	SuggestionsIssued  int       `json:"suggestions_issued"`
	SuggestionsAdopted int       `json:"suggestions_adopted"`
	AdoptionRatePct    float64   `json:"adoption_rate_pct"`
	ObservedCost       float64   `json:"observed_cost_per_tonne"`
	ReferenceCost      float64   `json:"reference_cost_per_tonne"`
	CostDelta          float64   `json:"cost_delta_per_tonne"`
}

// WeeklyKPI is the same rollup bucketed by ISO week (Monday start).
type WeeklyKPI struct {
	PlantName          string  `json:"plant_name"`
	PlantLine          string  `json:"plant_line"`
	ProductName        string  `json:"product_name"`
	ISOYear            int     `json:"iso_year"`
	ISOWeek            int     `json:"iso_week"`
	TotalHours         int     `json:"total_hours"`
	CompliantHours     int     `json:"compliant_hours"`
	AlertHours         int     `json:"alert_hours"`
	ComplianceRatePct  float64 `json:"compliance_rate_pct"`
	SuggestionsIssued  int     `json:"suggestions_issued"`
	SuggestionsAdopted int     `json:"suggestions_adopted"`
	AdoptionRatePct    float64 `json:"adoption_rate_pct"`
	ObservedCost       float64 `json:"observed_cost_per_tonne"`
	ReferenceCost      float64 `json:"reference_cost_per_tonne"`
	CostDelta          float64 `json:"cost_delta_per_tonne"`
}
