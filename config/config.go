// Package config loads solver configuration from YAML, generalizing
// reinforcement.TrainingConfig/OuterConfig/FromYaml's pattern (viper for
// file discovery, gopkg.in/yaml.v3 for the actual decode) from a single
// hard-coded racetrack training run to any solver and domain in this
// repository.
package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outerConfig mirrors reinforcement.OuterConfig: viper decodes the file's
// top level, and "def" is re-marshaled/decoded a second time into the
// strongly-typed SolverConfig. This two-pass dance exists because viper's
// own Unmarshal is lossy for nested arbitrary YAML without a fully
// pre-declared schema; re-decoding through yaml.v3 sidesteps that.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// HyperParameter is a single named scalar solver parameter (epsilon,
// gamma, tau, exploration constant, ...), kept as a flat key/value list
// rather than a struct field per algorithm so one config file can drive
// whichever solver Kind names without this package needing to know every
// solver's config shape.
type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// SolverConfig is the generalized analogue of reinforcement's
// TrainingConfig: algorithm selection, hyperparameters, and a deadline,
// now also carrying which domain/instance to solve and where to run the
// telemetry server.
type SolverConfig struct {
	// HyperParams is a key-val list of solver parameters (epsilon, gamma,
	// tau, explorationConstant, numRollouts, horizon, ...).
	HyperParams []HyperParameter `yaml:"hyperParams"`
	// Algorithm selects which solver and domain to run, e.g.
	// {"solver": "lrtdp", "domain": "racetrack"}.
	Algorithm map[string]string `yaml:"algorithm"`
	// Deadline optionally bounds the run, e.g. {"duration": "30s"}.
	Deadline map[string]string `yaml:"deadline"`
	// Telemetry optionally starts a live progress server, e.g.
	// {"addr": ":8080"}. Omitted entirely disables telemetry.
	Telemetry map[string]string `yaml:"telemetry"`
}

// GetHyperParamOrDefault looks up a named hyperparameter, returning
// defaultVal if it isn't present.
func (cfg *SolverConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// WithDeadline returns a context bounded by cfg.Deadline's "duration"
// entry, if present, else a plain cancelable context.
func (cfg *SolverConfig) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.Deadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, err
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// TelemetryAddr returns the configured telemetry listen address and
// whether telemetry was requested at all.
func (cfg *SolverConfig) TelemetryAddr() (string, bool) {
	addr, ok := cfg.Telemetry["addr"]
	return addr, ok
}

// FromYaml reads and decodes a SolverConfig from path, using viper to
// discover the file and yaml.v3 to decode the payload itself.
func FromYaml(path string) (*SolverConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, err
	}

	inner := &SolverConfig{}
	if err := yaml.Unmarshal(raw, inner); err != nil {
		return nil, err
	}
	return inner, nil
}
