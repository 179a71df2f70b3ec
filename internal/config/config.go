// Package config loads the engine's tuning table from YAML, mirroring the
// "read file, yaml.Unmarshal into a typed struct" shape used throughout the
// rest of this codebase for provider and cache config.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RiskConfig holds per-layer sizing floors and kill-switch thresholds.
type RiskConfig struct {
	CoreMaxRiskPerTradePct      float64 `yaml:"core_max_risk_per_trade_pct"`
	SatelliteMaxRiskPerTradePct float64 `yaml:"satellite_max_risk_per_trade_pct"`
	MaxDailyLossPct             float64 `yaml:"max_daily_loss_pct"`
	MaxWeeklyLossPct            float64 `yaml:"max_weekly_loss_pct"`
	CoreDailyTradeCap           int     `yaml:"core_daily_trade_cap"`
	SatelliteDailyTradeCap      int     `yaml:"satellite_daily_trade_cap"`
	SatelliteConsecLossLimit    int     `yaml:"satellite_consec_loss_limit"`
	SatelliteCooldownMs         int64   `yaml:"satellite_cooldown_ms"`
}

// ConfluenceConfig holds the layer-routing thresholds the Calibrator adjusts.
type ConfluenceConfig struct {
	CoreMinConfidence      float64 `yaml:"core_min_confidence"`
	SatelliteMinConfidence float64 `yaml:"satellite_min_confidence"`
}

// DetectorConfig holds the entry-score floors the Calibrator adjusts.
type DetectorConfig struct {
	MinMomentumScore float64 `yaml:"min_momentum_score"`
	MinEarlyScore    float64 `yaml:"min_early_score"`
}

// PositionConfig holds per-layer exit-rule parameters.
type PositionConfig struct {
	TrailingPctCore       float64 `yaml:"trailing_pct_core"`
	TrailingPctSatellite  float64 `yaml:"trailing_pct_satellite"`
	MaxHoldHoursCore      float64 `yaml:"max_hold_hours_core"`
	MaxHoldHoursSatellite float64 `yaml:"max_hold_hours_satellite"`
	TakeProfitPctCore     float64 `yaml:"take_profit_pct_core"`
	TakeProfitPctSatellite float64 `yaml:"take_profit_pct_satellite"`
	VolumeFadeRatio       float64 `yaml:"volume_fade_ratio"`
	LiquidityFloorUSD     float64 `yaml:"liquidity_floor_usd"`
}

// MonteCarloConfig holds the Forward Predictor's simulation inputs.
type MonteCarloConfig struct {
	Simulations  int `yaml:"simulations"`
	TradesPerDay int `yaml:"trades_per_day"`
}

// CronConfig authorises cycle triggers from the external scheduler.
type CronConfig struct {
	Secret string `yaml:"-"` // sourced from CRON_SECRET env, never written to YAML
}

// Config is the full engine configuration table from §6.
type Config struct {
	Networks    []string         `yaml:"networks"`
	Risk        RiskConfig       `yaml:"risk"`
	Confluence  ConfluenceConfig `yaml:"confluence"`
	Detector    DetectorConfig   `yaml:"detector"`
	Position    PositionConfig   `yaml:"position"`
	MonteCarlo  MonteCarloConfig `yaml:"monte_carlo"`
	Cron        CronConfig       `yaml:"-"`
	CycleMinutes int             `yaml:"cycle_minutes"`
	// Users is the static roster a cron-triggered cycle run covers. There is
	// no users table: a single-operator deployment just lists its user IDs.
	Users []string `yaml:"users"`
}

// Default returns the tuning defaults named throughout spec §4.
func Default() Config {
	return Config{
		Networks: []string{"ethereum", "base", "solana"},
		Risk: RiskConfig{
			CoreMaxRiskPerTradePct:      0.005,
			SatelliteMaxRiskPerTradePct: 0.0025,
			MaxDailyLossPct:             0.02,
			MaxWeeklyLossPct:            0.06,
			CoreDailyTradeCap:           5,
			SatelliteDailyTradeCap:      2,
			SatelliteConsecLossLimit:    3,
			SatelliteCooldownMs:         24 * 60 * 60 * 1000,
		},
		Confluence: ConfluenceConfig{
			CoreMinConfidence:      75,
			SatelliteMinConfidence: 50,
		},
		Detector: DetectorConfig{
			MinMomentumScore: 55,
			MinEarlyScore:    50,
		},
		Position: PositionConfig{
			TrailingPctCore:        0.05,
			TrailingPctSatellite:   0.10,
			MaxHoldHoursCore:       48,
			MaxHoldHoursSatellite:  168,
			TakeProfitPctCore:      0.15,
			TakeProfitPctSatellite: 0.80,
			VolumeFadeRatio:        0.3,
			LiquidityFloorUSD:      30_000,
		},
		MonteCarlo: MonteCarloConfig{
			Simulations:  5000,
			TradesPerDay: 3,
		},
		CycleMinutes: 15,
	}
}

// Load reads a YAML config file, falling back to Default() values for any
// zero fields the file omits, and layers in the secret from the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.Cron.Secret = os.Getenv("CRON_SECRET")
	if ids := os.Getenv("USER_IDS"); ids != "" {
		cfg.Users = strings.Split(ids, ",")
	}
	if len(cfg.Networks) == 0 {
		return cfg, fmt.Errorf("config: networks must not be empty")
	}
	return cfg, nil
}
