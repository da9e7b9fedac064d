/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"

	"github.com/Seednode/coalition/games"
	"github.com/spf13/viper"
)

// loadCatalog builds the policy catalog, reading cfg.policies when set.
// The file holds a top-level "policies" list in any format viper reads.
func loadCatalog(cfg *Config) (*games.Catalog, error) {
	if cfg.policies == "" {
		logf(cfg, "START: Using built-in policy catalog")
		return games.NewCatalog(games.DefaultPolicies())
	}

	v := viper.New()
	v.SetConfigFile(cfg.policies)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading policies from %s: %w", cfg.policies, err)
	}

	var policies []games.Policy
	if err := v.UnmarshalKey("policies", &policies); err != nil {
		return nil, fmt.Errorf("decoding policies from %s: %w", cfg.policies, err)
	}

	catalog, err := games.NewCatalog(policies)
	if err != nil {
		return nil, fmt.Errorf("loading policies from %s: %w", cfg.policies, err)
	}

	logf(cfg, "START: Loaded %d policies from %s", len(policies), cfg.policies)

	return catalog, nil
}
