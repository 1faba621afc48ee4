// Package config loads the simulator configuration from YAML files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/talgya/macrosim/internal/economy"
	"github.com/talgya/macrosim/internal/engine"
)

// ErrInvalid is returned when a loaded configuration cannot build a simulation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete simulator configuration. It is read once, at construction.
type Config struct {
	Seed            int64         `mapstructure:"seed"              yaml:"seed"` // 0 draws a random seed
	Population      int           `mapstructure:"population"        yaml:"population"`
	Goods           int           `mapstructure:"goods"             yaml:"goods"`
	FirmsPerMarket  int           `mapstructure:"firms_per_market"  yaml:"firms_per_market"`
	MonthsPerPeriod float64       `mapstructure:"months_per_period" yaml:"months_per_period"`
	RetirementAge   float64       `mapstructure:"retirement_age"    yaml:"retirement_age"`
	DeathAge        float64       `mapstructure:"death_age"         yaml:"death_age"`
	Interval        time.Duration `mapstructure:"interval"          yaml:"interval"`
	ReportEvery     int           `mapstructure:"report_every"      yaml:"report_every"`

	Demographics DemographicsConfig `mapstructure:"demographics" yaml:"demographics"`
	Firm         FirmConfig         `mapstructure:"firm"         yaml:"firm"`
	Economies    []EconomyConfig    `mapstructure:"economies"    yaml:"economies"`
	API          APIConfig          `mapstructure:"api"          yaml:"api"`
	Storage      StorageConfig      `mapstructure:"storage"      yaml:"storage"`
	Logging      LoggingConfig      `mapstructure:"logging"      yaml:"logging"`
}

// DemographicsConfig controls worker draws.
type DemographicsConfig struct {
	WeightMin        float64 `mapstructure:"weight_min"        yaml:"weight_min"`
	WeightMax        float64 `mapstructure:"weight_max"        yaml:"weight_max"`
	ProductivityMean float64 `mapstructure:"productivity_mean" yaml:"productivity_mean"`
	ProductivitySD   float64 `mapstructure:"productivity_sd"   yaml:"productivity_sd"`
	AgeMin           float64 `mapstructure:"age_min"           yaml:"age_min"`
	AgeMax           float64 `mapstructure:"age_max"           yaml:"age_max"`
	SavingsRateMin   float64 `mapstructure:"savings_rate_min"  yaml:"savings_rate_min"`
	SavingsRateMax   float64 `mapstructure:"savings_rate_max"  yaml:"savings_rate_max"`
	HoursWorked      float64 `mapstructure:"hours_worked"      yaml:"hours_worked"`
}

// FirmConfig holds the technology shared by every firm.
type FirmConfig struct {
	TFP               float64 `mapstructure:"tfp"                yaml:"tfp"`
	LabourShare       float64 `mapstructure:"labour_share"       yaml:"labour_share"`
	CapitalShare      float64 `mapstructure:"capital_share"      yaml:"capital_share"`
	InitialCapital    float64 `mapstructure:"initial_capital"    yaml:"initial_capital"`
	SharesOutstanding float64 `mapstructure:"shares_outstanding" yaml:"shares_outstanding"`
	ReservationWage   float64 `mapstructure:"reservation_wage"   yaml:"reservation_wage"`
	VacancyDivisor    float64 `mapstructure:"vacancy_divisor"    yaml:"vacancy_divisor"`
	VacancyFloor      float64 `mapstructure:"vacancy_floor"      yaml:"vacancy_floor"`
}

// EconomyConfig describes one of the economies run side by side.
// Nil pointers take the simulator defaults.
type EconomyConfig struct {
	Name               string    `mapstructure:"name"                yaml:"name"`
	IncomeTax          float64   `mapstructure:"income_tax"          yaml:"income_tax"`
	ConsumptionTax     float64   `mapstructure:"consumption_tax"     yaml:"consumption_tax"`
	GoodsTax           []float64 `mapstructure:"goods_tax"           yaml:"goods_tax,omitempty"`
	MatchingEfficiency *float64  `mapstructure:"matching_efficiency" yaml:"matching_efficiency,omitempty"`
	InterestRate       *float64  `mapstructure:"interest_rate"       yaml:"interest_rate,omitempty"`
	InitialEmployment  *float64  `mapstructure:"initial_employment"  yaml:"initial_employment,omitempty"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port        int      `mapstructure:"port"         yaml:"port"`
	AdminKey    string   `mapstructure:"admin_key"    yaml:"admin_key"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// StorageConfig locates the history store and period logs. Empty disables each.
type StorageConfig struct {
	DBPath       string `mapstructure:"db_path"        yaml:"db_path"`
	PeriodLogDir string `mapstructure:"period_log_dir" yaml:"period_log_dir"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads configuration with the following priority:
//  1. ./config/macrosim.yaml
//  2. ~/.macrosim/macrosim.yaml
//
// Environment variables override file values.
// Format: MACROSIM_<SECTION>_<KEY>, e.g. MACROSIM_API_PORT.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("macrosim")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".macrosim"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MACROSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	base := economy.DefaultParams(5, 1)
	demo := economy.DefaultDemographics()

	v.SetDefault("seed", 0)
	v.SetDefault("population", 10000)
	v.SetDefault("goods", base.Goods)
	v.SetDefault("firms_per_market", base.FirmsPerMarket)
	v.SetDefault("months_per_period", 1.0)
	v.SetDefault("retirement_age", 65.0)
	v.SetDefault("death_age", 80.0)
	v.SetDefault("interval", "500ms")
	v.SetDefault("report_every", 12)

	v.SetDefault("demographics.weight_min", demo.WeightMin)
	v.SetDefault("demographics.weight_max", demo.WeightMax)
	v.SetDefault("demographics.productivity_mean", demo.ProductivityMean)
	v.SetDefault("demographics.productivity_sd", demo.ProductivitySD)
	v.SetDefault("demographics.age_min", demo.AgeMin)
	v.SetDefault("demographics.age_max", demo.AgeMax)
	v.SetDefault("demographics.savings_rate_min", 0.0)
	v.SetDefault("demographics.savings_rate_max", 0.0)
	v.SetDefault("demographics.hours_worked", base.HoursWorked)

	v.SetDefault("firm.tfp", base.TFP)
	v.SetDefault("firm.labour_share", base.LabourShare)
	v.SetDefault("firm.capital_share", base.CapitalShare)
	v.SetDefault("firm.initial_capital", base.InitialCapital)
	v.SetDefault("firm.shares_outstanding", base.SharesOutstanding)
	v.SetDefault("firm.reservation_wage", base.ReservationWage)
	v.SetDefault("firm.vacancy_divisor", base.VacancyDivisor)
	v.SetDefault("firm.vacancy_floor", base.VacancyFloor)

	v.SetDefault("economies", []map[string]any{
		{"name": "baseline"},
		{"name": "taxed", "income_tax": 0.2, "consumption_tax": 0.05},
	})

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.admin_key", "")
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.period_log_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate reports the first setting that cannot produce a simulation.
func (c *Config) Validate() error {
	switch {
	case c.Population < 1:
		return fmt.Errorf("%w: population must be positive, got %d", ErrInvalid, c.Population)
	case c.Goods < 1:
		return fmt.Errorf("%w: goods must be positive, got %d", ErrInvalid, c.Goods)
	case c.FirmsPerMarket < 1:
		return fmt.Errorf("%w: firms_per_market must be positive, got %d", ErrInvalid, c.FirmsPerMarket)
	case c.MonthsPerPeriod <= 0:
		return fmt.Errorf("%w: months_per_period must be positive", ErrInvalid)
	case c.DeathAge <= 0:
		return fmt.Errorf("%w: death_age must be positive", ErrInvalid)
	case c.Interval < 0:
		return fmt.Errorf("%w: interval must not be negative", ErrInvalid)
	case c.Demographics.WeightMin < 0 || c.Demographics.WeightMax < c.Demographics.WeightMin:
		return fmt.Errorf("%w: weight range [%g, %g] is empty or negative", ErrInvalid,
			c.Demographics.WeightMin, c.Demographics.WeightMax)
	case c.Demographics.AgeMax < c.Demographics.AgeMin:
		return fmt.Errorf("%w: age range [%g, %g] is empty", ErrInvalid, c.Demographics.AgeMin, c.Demographics.AgeMax)
	case len(c.Economies) == 0:
		return fmt.Errorf("%w: at least one economy is required", ErrInvalid)
	case c.Logging.Format != "text" && c.Logging.Format != "json":
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalid, c.Logging.Format)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	for i := range c.Economies {
		if err := c.EconomyParams(i).Validate(); err != nil {
			return fmt.Errorf("%w: economy %d: %w", ErrInvalid, i, err)
		}
	}
	return nil
}

// EconomyParams builds the construction parameters of economy i.
func (c *Config) EconomyParams(i int) economy.Params {
	p := economy.DefaultParams(c.Goods, c.FirmsPerMarket)
	ec := c.Economies[i]

	p.Name = ec.Name
	if p.Name == "" {
		p.Name = fmt.Sprintf("economy-%d", i+1)
	}
	p.TFP = c.Firm.TFP
	p.LabourShare = c.Firm.LabourShare
	p.CapitalShare = c.Firm.CapitalShare
	p.InitialCapital = c.Firm.InitialCapital
	p.SharesOutstanding = c.Firm.SharesOutstanding
	p.ReservationWage = c.Firm.ReservationWage
	p.VacancyDivisor = c.Firm.VacancyDivisor
	p.VacancyFloor = c.Firm.VacancyFloor

	p.HoursWorked = c.Demographics.HoursWorked
	p.ProductivityMean = c.Demographics.ProductivityMean
	p.ProductivitySD = c.Demographics.ProductivitySD
	p.SavingsRateMin = c.Demographics.SavingsRateMin
	p.SavingsRateMax = c.Demographics.SavingsRateMax

	p.IncomeTax = ec.IncomeTax
	p.ConsumptionTax = ec.ConsumptionTax
	if len(ec.GoodsTax) > 0 {
		p.GoodsTax = append([]float64(nil), ec.GoodsTax...)
	}
	if ec.MatchingEfficiency != nil {
		p.MatchingEfficiency = *ec.MatchingEfficiency
	}
	if ec.InterestRate != nil {
		p.InterestRate = *ec.InterestRate
	}
	if ec.InitialEmployment != nil {
		p.InitialEmployment = *ec.InitialEmployment
	}
	return p
}

// AllEconomyParams builds the parameters of every configured economy.
func (c *Config) AllEconomyParams() []economy.Params {
	out := make([]economy.Params, len(c.Economies))
	for i := range c.Economies {
		out[i] = c.EconomyParams(i)
	}
	return out
}

// DemographicDraws returns the population draw settings.
func (c *Config) DemographicDraws() economy.DemographicConfig {
	d := c.Demographics
	return economy.DemographicConfig{
		WeightMin:        d.WeightMin,
		WeightMax:        d.WeightMax,
		ProductivityMean: d.ProductivityMean,
		ProductivitySD:   d.ProductivitySD,
		AgeMin:           d.AgeMin,
		AgeMax:           d.AgeMax,
	}
}

// EngineOptions returns the period clock and demographic thresholds.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		MonthsPerPeriod: c.MonthsPerPeriod,
		RetirementAge:   c.RetirementAge,
		DeathAge:        c.DeathAge,
	}
}

// SlogLevel parses logging.level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	return l, nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
