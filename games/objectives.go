/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"fmt"
	"slices"
)

// ObjectiveType selects the rule an objective is evaluated by.
type ObjectiveType string

const (
	PolicyCountVoted ObjectiveType = "policy_count_voted"
	BlockVoted       ObjectiveType = "block_voted"
	SpecificVoted    ObjectiveType = "specific_voted"
	ProposerSuccess  ObjectiveType = "proposer_success"
	MetricChange     ObjectiveType = "metric_change"
	FinalMetric      ObjectiveType = "final_metric"
	MaintainMetric   ObjectiveType = "maintain_metric"
)

// Direction is the sign a policy effect must have to count.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

const objectivesBonusApproval = 10

// Target carries the type-specific parameters of an objective. Only the
// fields relevant to the objective's type are set.
type Target struct {
	Metric    Metric    `json:"metric,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Count     int       `json:"count,omitempty"`
	Policy    string    `json:"policy,omitempty"`
	Policies  []string  `json:"policies,omitempty"`
	Change    float64   `json:"change,omitempty"`
	Operator  string    `json:"operator,omitempty"`
	Value     float64   `json:"value,omitempty"`
}

// Objective is a scripted faction goal. Completed never reverts.
type Objective struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Type      ObjectiveType `json:"type"`
	Target    Target        `json:"target"`
	Completed bool          `json:"completed"`
	Progress  float64       `json:"progress"`
	Failed    bool          `json:"failed,omitempty"`
}

// Outcome is the result of a tallied vote as seen by the objective engine.
type Outcome struct {
	PolicyID   string
	Effects    map[Metric]float64
	ProposerID string
	Passed     bool
}

type objectiveSpec struct {
	text   string
	kind   ObjectiveType
	target Target
}

var objectiveCatalog = map[string][]objectiveSpec{
	"socialist": {
		{"Vote YES on 2 passed policies that reduce inequality", PolicyCountVoted, Target{Metric: MetricInequality, Direction: Decrease, Count: 2}},
		{"Block a policy that increases inequality", BlockVoted, Target{Metric: MetricInequality, Direction: Increase, Count: 1, Policies: []string{"tax_cuts"}}},
		{"End the game with inequality below 40", FinalMetric, Target{Metric: MetricInequality, Operator: "<", Value: 40}},
	},
	"conservative": {
		{"Vote YES on 2 passed policies that grow GDP", PolicyCountVoted, Target{Metric: MetricGDP, Direction: Increase, Count: 2}},
		{"Block a wealth tax or universal healthcare", BlockVoted, Target{Count: 1, Policies: []string{"wealth_tax", "universal_healthcare"}}},
		{"Keep social cohesion above 50 until the end", MaintainMetric, Target{Metric: MetricSocialCohesion, Operator: ">", Value: 50}},
	},
	"liberal": {
		{"Pass Free Speech Protection with your YES vote", SpecificVoted, Target{Policy: "free_speech"}},
		{"Block a policy that reduces freedom", BlockVoted, Target{Metric: MetricFreedom, Direction: Decrease, Count: 1}},
		{"End the game with freedom above 75", FinalMetric, Target{Metric: MetricFreedom, Operator: ">", Value: 75}},
	},
	"green": {
		{"Raise the environment by 20 through passed policies", MetricChange, Target{Metric: MetricEnvironment, Change: 20}},
		{"Pass the Green New Deal with your YES vote", SpecificVoted, Target{Policy: "green_new_deal"}},
		{"Block a policy that harms the environment", BlockVoted, Target{Metric: MetricEnvironment, Direction: Decrease, Count: 1, Policies: []string{"oil_drilling"}}},
	},
	"libertarian": {
		{"Vote YES on 2 passed policies that expand freedom", PolicyCountVoted, Target{Metric: MetricFreedom, Direction: Increase, Count: 2}},
		{"Block surveillance or a wealth tax", BlockVoted, Target{Count: 1, Policies: []string{"surveillance_act", "wealth_tax"}}},
		{"End the game with more than 6 political capital", FinalMetric, Target{Metric: MetricCapital, Operator: ">", Value: 6}},
	},
	"nationalist": {
		{"Pass Border Control Expansion with your YES vote", SpecificVoted, Target{Policy: "border_control"}},
		{"Raise social cohesion by 10 through passed policies", MetricChange, Target{Metric: MetricSocialCohesion, Change: 10}},
		{"Keep GDP above 90 until the end", MaintainMetric, Target{Metric: MetricGDP, Operator: ">", Value: 90}},
	},
	"populist": {
		{"Get 2 of your own proposals passed", ProposerSuccess, Target{Count: 2}},
		{"Vote YES on a passed policy that raises social cohesion", PolicyCountVoted, Target{Metric: MetricSocialCohesion, Direction: Increase, Count: 1}},
		{"Cut inequality by 10 through passed policies", MetricChange, Target{Metric: MetricInequality, Change: -10}},
	},
	"technocrat": {
		{"Grow GDP by 15 through passed policies", MetricChange, Target{Metric: MetricGDP, Change: 15}},
		{"Pass Education Reform with your YES vote", SpecificVoted, Target{Policy: "education_reform"}},
		{"Get one of your own proposals passed", ProposerSuccess, Target{Count: 1}},
	},
}

// GenerateObjectives returns a fresh objective set for a faction id.
// Unknown ids get an empty set.
func GenerateObjectives(factionID string) []*Objective {
	specs := objectiveCatalog[factionID]
	out := make([]*Objective, 0, len(specs))
	for i, s := range specs {
		target := s.target
		target.Policies = slices.Clone(s.target.Policies)
		out = append(out, &Objective{
			ID:     fmt.Sprintf("%s_%d", factionID, i+1),
			Text:   s.text,
			Type:   s.kind,
			Target: target,
		})
	}
	return out
}

func movesIn(effects map[Metric]float64, m Metric, dir Direction) bool {
	if m == "" {
		return false
	}
	delta, ok := effects[m]
	if !ok {
		return false
	}
	switch dir {
	case Increase:
		return delta > 0
	case Decrease:
		return delta < 0
	}
	return false
}

func (o *Objective) countTowards() {
	o.Progress++
	if o.Progress >= float64(max(o.Target.Count, 1)) {
		o.Completed = true
	}
}

// evaluateVote applies the single rule matching o's type. Objectives only
// checked at game end are left untouched.
func (o *Objective) evaluateVote(f *Faction, out Outcome) {
	if o.Completed {
		return
	}

	switch o.Type {
	case PolicyCountVoted:
		if f.votedYes() && out.Passed && movesIn(out.Effects, o.Target.Metric, o.Target.Direction) {
			o.countTowards()
		}

	case BlockVoted:
		if !f.votedNo() || out.Passed {
			return
		}
		if slices.Contains(o.Target.Policies, out.PolicyID) || movesIn(out.Effects, o.Target.Metric, o.Target.Direction) {
			o.countTowards()
		}

	case SpecificVoted:
		if f.votedYes() && out.Passed && out.PolicyID != "" && out.PolicyID == o.Target.Policy {
			o.Progress = 1
			o.Completed = true
		}

	case ProposerSuccess:
		if out.Passed && out.ProposerID != "" && out.ProposerID == f.ID {
			o.countTowards()
		}

	case MetricChange:
		if !out.Passed {
			return
		}
		delta, ok := out.Effects[o.Target.Metric]
		if !ok {
			return
		}
		o.Progress += delta
		switch {
		case o.Target.Change > 0 && o.Progress >= o.Target.Change:
			o.Completed = true
		case o.Target.Change < 0 && o.Progress <= o.Target.Change:
			o.Completed = true
		}
	}
}

func compare(value float64, operator string, target float64) bool {
	switch operator {
	case ">":
		return value > target
	case "<":
		return value < target
	}
	return false
}

// evaluateFinal checks the objectives that are only decided at game end.
func (o *Objective) evaluateFinal(f *Faction, metrics Metrics) {
	if o.Completed {
		return
	}

	var value float64
	if o.Target.Metric == MetricCapital {
		value = float64(f.Tokens.Capital)
	} else {
		v, ok := metrics[o.Target.Metric]
		if !ok {
			return
		}
		value = v
	}

	switch o.Type {
	case FinalMetric:
		if compare(value, o.Target.Operator, o.Target.Value) {
			o.Completed = true
		}

	case MaintainMetric:
		if !o.Failed && compare(value, o.Target.Operator, o.Target.Value) {
			o.Completed = true
		} else {
			o.Failed = true
		}
	}
}

// allObjectivesComplete requires every objective's own completion.
func (f *Faction) allObjectivesComplete() bool {
	if len(f.Objectives) == 0 {
		return false
	}
	for _, o := range f.Objectives {
		if !o.Completed {
			return false
		}
	}
	return true
}

// grantObjectivesBonus awards the one-time approval bonus and reports
// whether it was granted by this call.
func (f *Faction) grantObjectivesBonus() bool {
	if f.ObjectivesBonus || !f.allObjectivesComplete() {
		return false
	}
	f.ObjectivesBonus = true
	f.adjustApproval(objectivesBonusApproval)
	return true
}

// EvaluateAfterVote advances every faction's objectives against a tallied
// vote and returns the ids of factions newly awarded the objectives bonus.
func EvaluateAfterVote(factions []*Faction, out Outcome) []string {
	var bonused []string
	for _, f := range factions {
		for _, o := range f.Objectives {
			o.evaluateVote(f, out)
		}
		if f.grantObjectivesBonus() {
			bonused = append(bonused, f.ID)
		}
	}
	return bonused
}

// EvaluateAtEnd decides final_metric and maintain_metric objectives and
// returns the ids of factions newly awarded the objectives bonus.
func EvaluateAtEnd(factions []*Faction, metrics Metrics) []string {
	var bonused []string
	for _, f := range factions {
		for _, o := range f.Objectives {
			if o.Type == FinalMetric || o.Type == MaintainMetric {
				o.evaluateFinal(f, metrics)
			}
		}
		if f.grantObjectivesBonus() {
			bonused = append(bonused, f.ID)
		}
	}
	return bonused
}
