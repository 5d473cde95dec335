/*
Package factory provides YAML to Go reward-rule conversion.

PURPOSE:
  Converts YAML rule definitions into rewards.Rules. This enables reward
  configuration without code changes - operators define rules in YAML,
  and the factory creates the proper Go structs.

WHY YAML?
  - Non-developers can modify reward tables
  - Version control for rule definitions
  - Multi-line action scripts read naturally

YAML SCHEMA:
  timezone: Asia/Shanghai
  rewards:
    default:
      - "[MESSAGE] Welcome back, %member%!"
      - "[SLEEP] 20"
      - "[POINTS] 1..3 .1f"
    cumulative:
      - enable: true
        times: 7
        actions: ["[BROADCAST] %member% hit 7 total check-ins!"]
    streak:
      - enable: true
        times: 30
        actions: ["[TITLE] 30 days straight"]
    top:
      - enable: true
        rank: 1
        actions: ["[BROADCAST] %member% was first today!"]
    special_dates:
      - date: "*-01-01"
        repeat: true
        repeat_time: 2
        actions: ["[MESSAGE] Happy new year!"]

KEY FEATURES:
  - Validates each entry independently; a malformed entry is skipped
    with a warning, never failing the whole file
  - Thresholds and ranks must be positive
  - Date patterns are classified up front so bad patterns surface at
    load time, not at midnight

USAGE:
  rules, err := factory.LoadRules("rewards.yaml", logger)
  eval := rewards.NewEvaluator(rules, ledger, claims, interp, clock, logger)

SEE ALSO:
  - rewards/rules.go: Rules type definition and pattern matching
  - rewards/evaluator.go: rule evaluation order
*/
package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/warp/checkin-engine/rewards"
)

// DefaultTimezone applies when the config names none.
const DefaultTimezone = "Asia/Shanghai"

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// ConfigYAML is the YAML representation of a rule file.
type ConfigYAML struct {
	Timezone string      `yaml:"timezone,omitempty"`
	Rewards  RewardsYAML `yaml:"rewards"`
}

// RewardsYAML groups the rule categories.
type RewardsYAML struct {
	Default      []string          `yaml:"default,omitempty"`
	Cumulative   []ThresholdYAML   `yaml:"cumulative,omitempty"`
	Streak       []ThresholdYAML   `yaml:"streak,omitempty"`
	Top          []RankYAML        `yaml:"top,omitempty"`
	SpecialDates []SpecialDateYAML `yaml:"special_dates,omitempty"`
}

// ThresholdYAML represents one cumulative or streak entry.
type ThresholdYAML struct {
	Enable  *bool    `yaml:"enable,omitempty"`
	Times   int      `yaml:"times"`
	Actions []string `yaml:"actions"`
}

// RankYAML represents one daily-rank entry.
type RankYAML struct {
	Enable  *bool    `yaml:"enable,omitempty"`
	Rank    int      `yaml:"rank"`
	Actions []string `yaml:"actions"`
}

// SpecialDateYAML represents one date-pattern entry.
type SpecialDateYAML struct {
	Date       string   `yaml:"date"`
	Repeat     bool     `yaml:"repeat,omitempty"`
	RepeatTime int      `yaml:"repeat_time,omitempty"`
	Actions    []string `yaml:"actions"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// LoadRules reads and converts a YAML rule file.
func LoadRules(path string, log *zap.Logger) (*rewards.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return ParseRules(data, log)
}

// ParseRules converts YAML bytes to rewards.Rules. Entry-level problems
// are logged and skipped; only a structurally broken document fails.
func ParseRules(data []byte, log *zap.Logger) (*rewards.Rules, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var cfg ConfigYAML
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rule YAML: %w", err)
	}

	return FromYAML(cfg, log), nil
}

// FromYAML converts ConfigYAML to rewards.Rules.
func FromYAML(cfg ConfigYAML, log *zap.Logger) *rewards.Rules {
	rules := &rewards.Rules{
		Timezone: cfg.Timezone,
		Default:  cfg.Rewards.Default,
	}
	if rules.Timezone == "" {
		rules.Timezone = DefaultTimezone
	}

	rules.Cumulative = convertThresholds(cfg.Rewards.Cumulative, "cumulative", log)
	rules.Streak = convertThresholds(cfg.Rewards.Streak, "streak", log)

	for i, rj := range cfg.Rewards.Top {
		if rj.Rank < 1 {
			log.Warn("skipping rank entry with non-positive rank",
				zap.Int("entry", i), zap.Int("rank", rj.Rank))
			continue
		}
		rules.Top = append(rules.Top, rewards.RankRule{
			Enable:  rj.Enable,
			Rank:    rj.Rank,
			Actions: rj.Actions,
		})
	}

	for i, sj := range cfg.Rewards.SpecialDates {
		if rewards.ClassifyPattern(sj.Date) == rewards.PatternInvalid {
			log.Warn("skipping special-date entry with unrecognized pattern",
				zap.Int("entry", i), zap.String("date", sj.Date))
			continue
		}
		rules.SpecialDates = append(rules.SpecialDates, rewards.SpecialDateRule{
			Date:       sj.Date,
			Repeat:     sj.Repeat,
			RepeatTime: sj.RepeatTime,
			Actions:    sj.Actions,
		})
	}

	return rules
}

func convertThresholds(entries []ThresholdYAML, category string, log *zap.Logger) []rewards.ThresholdRule {
	var out []rewards.ThresholdRule
	for i, tj := range entries {
		if tj.Times < 1 {
			log.Warn("skipping threshold entry with non-positive times",
				zap.String("category", category), zap.Int("entry", i), zap.Int("times", tj.Times))
			continue
		}
		out = append(out, rewards.ThresholdRule{
			Enable:  tj.Enable,
			Times:   tj.Times,
			Actions: tj.Actions,
		})
	}
	return out
}
