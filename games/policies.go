/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"errors"
	"fmt"
)

// Policy is a named bill with signed effects on the gauges.
type Policy struct {
	ID          string             `json:"id" mapstructure:"id"`
	Name        string             `json:"name" mapstructure:"name"`
	Description string             `json:"description,omitempty" mapstructure:"description"`
	Effects     map[Metric]float64 `json:"effects" mapstructure:"effects"`
}

// Catalog is the ordered set of policies the teacher can propose.
type Catalog struct {
	policies []Policy
	byID     map[string]int
}

// NewCatalog validates a policy list and indexes it by id.
func NewCatalog(policies []Policy) (*Catalog, error) {
	if len(policies) == 0 {
		return nil, errors.New("policy catalog is empty")
	}

	c := &Catalog{
		policies: make([]Policy, 0, len(policies)),
		byID:     make(map[string]int, len(policies)),
	}

	for i, p := range policies {
		if p.ID == "" {
			return nil, fmt.Errorf("policy %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate policy id %q", p.ID)
		}
		effects := make(map[Metric]float64, len(p.Effects))
		for name, delta := range p.Effects {
			m, ok := ParseMetric(string(name))
			if !ok {
				return nil, fmt.Errorf("policy %q affects unknown metric %q", p.ID, name)
			}
			effects[m] = delta
		}
		p.Effects = effects
		if p.Name == "" {
			p.Name = p.ID
		}

		c.byID[p.ID] = len(c.policies)
		c.policies = append(c.policies, p)
	}

	return c, nil
}

// Lookup returns the policy with the given id.
func (c *Catalog) Lookup(id string) (Policy, bool) {
	if c == nil {
		return Policy{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Policy{}, false
	}
	return c.policies[i], true
}

// Policies returns a copy of the catalog in its configured order.
func (c *Catalog) Policies() []Policy {
	if c == nil {
		return nil
	}
	out := make([]Policy, len(c.policies))
	copy(out, c.policies)
	return out
}

// DefaultPolicies is the catalog compiled into the binary.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			ID:          "universal_healthcare",
			Name:        "Universal Healthcare",
			Description: "Publicly funded healthcare for every citizen.",
			Effects:     map[Metric]float64{MetricGDP: -5, MetricInequality: -10, MetricSocialCohesion: 10},
		},
		{
			ID:          "tax_cuts",
			Name:        "Corporate Tax Cuts",
			Description: "Lower the corporate tax rate to attract investment.",
			Effects:     map[Metric]float64{MetricGDP: 10, MetricInequality: 10, MetricSocialCohesion: -5},
		},
		{
			ID:          "carbon_tax",
			Name:        "Carbon Tax",
			Description: "Price emissions at the source.",
			Effects:     map[Metric]float64{MetricGDP: -5, MetricEnvironment: 15},
		},
		{
			ID:          "minimum_wage",
			Name:        "Minimum Wage Increase",
			Description: "Raise the statutory minimum wage.",
			Effects:     map[Metric]float64{MetricGDP: -3, MetricInequality: -8, MetricSocialCohesion: 5},
		},
		{
			ID:          "deregulation",
			Name:        "Business Deregulation",
			Description: "Remove licensing and reporting requirements for small firms.",
			Effects:     map[Metric]float64{MetricGDP: 8, MetricFreedom: 5, MetricEnvironment: -10},
		},
		{
			ID:          "surveillance_act",
			Name:        "National Surveillance Act",
			Description: "Expand state monitoring powers.",
			Effects:     map[Metric]float64{MetricFreedom: -15, MetricSocialCohesion: 5},
		},
		{
			ID:          "border_control",
			Name:        "Border Control Expansion",
			Description: "Tighten immigration and customs enforcement.",
			Effects:     map[Metric]float64{MetricGDP: -3, MetricFreedom: -5, MetricSocialCohesion: 5},
		},
		{
			ID:          "green_new_deal",
			Name:        "Green New Deal",
			Description: "Public investment in renewable infrastructure and jobs.",
			Effects:     map[Metric]float64{MetricGDP: 3, MetricInequality: -5, MetricEnvironment: 20},
		},
		{
			ID:          "free_speech",
			Name:        "Free Speech Protection",
			Description: "Constitutional limits on speech regulation.",
			Effects:     map[Metric]float64{MetricFreedom: 10, MetricSocialCohesion: -3},
		},
		{
			ID:          "oil_drilling",
			Name:        "Offshore Oil Drilling",
			Description: "Open protected waters to fossil fuel extraction.",
			Effects:     map[Metric]float64{MetricGDP: 12, MetricEnvironment: -20},
		},
		{
			ID:          "education_reform",
			Name:        "Education Reform",
			Description: "Fund schools by outcome metrics and expand vocational training.",
			Effects:     map[Metric]float64{MetricGDP: 5, MetricInequality: -3, MetricSocialCohesion: 3},
		},
		{
			ID:          "wealth_tax",
			Name:        "Wealth Tax",
			Description: "Annual levy on net worth above a high threshold.",
			Effects:     map[Metric]float64{MetricGDP: -5, MetricInequality: -15, MetricFreedom: -3},
		},
	}
}
