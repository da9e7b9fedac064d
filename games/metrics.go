/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"maps"
	"strings"
)

// Metric names one of the global gauges moved by passed policies.
type Metric string

const (
	MetricGDP            Metric = "gdp"
	MetricInequality     Metric = "inequality"
	MetricFreedom        Metric = "freedom"
	MetricSocialCohesion Metric = "socialCohesion"
	MetricEnvironment    Metric = "environment"

	// MetricCapital is not a gauge; final objectives use it to compare
	// against a faction's political capital instead.
	MetricCapital Metric = "capital"
)

const (
	metricMin = 0
	metricMax = 200
)

// MetricNames lists the gauges in display order.
var MetricNames = []Metric{
	MetricGDP,
	MetricInequality,
	MetricFreedom,
	MetricSocialCohesion,
	MetricEnvironment,
}

// Metrics maps every gauge to its current value.
type Metrics map[Metric]float64

func initialMetrics() Metrics {
	return Metrics{
		MetricGDP:            100,
		MetricInequality:     50,
		MetricFreedom:        70,
		MetricSocialCohesion: 60,
		MetricEnvironment:    50,
	}
}

// Apply adds each effect to its gauge, clamping to [0,200]. Effects on
// names that are not gauges are ignored.
func (m Metrics) Apply(effects map[Metric]float64) {
	for name, delta := range effects {
		current, ok := m[name]
		if !ok {
			continue
		}
		m[name] = clampFloat(current+delta, metricMin, metricMax)
	}
}

func (m Metrics) clone() Metrics {
	return maps.Clone(m)
}

// ParseMetric resolves a gauge name case-insensitively, since config
// loaders fold keys to lower case.
func ParseMetric(name string) (Metric, bool) {
	for _, m := range MetricNames {
		if strings.EqualFold(string(m), name) {
			return m, true
		}
	}
	return "", false
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
