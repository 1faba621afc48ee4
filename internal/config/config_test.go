package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/macrosim/internal/economy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "macrosim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadReturnsDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Population != 10000 || cfg.Goods != 5 || cfg.FirmsPerMarket != 1 {
		t.Errorf("population/goods/firms: got %d/%d/%d, want 10000/5/1", cfg.Population, cfg.Goods, cfg.FirmsPerMarket)
	}
	if cfg.MonthsPerPeriod != 1 || cfg.RetirementAge != 65 || cfg.DeathAge != 80 {
		t.Errorf("clock: got %v/%v/%v", cfg.MonthsPerPeriod, cfg.RetirementAge, cfg.DeathAge)
	}
	if cfg.Interval != 500*time.Millisecond {
		t.Errorf("Interval: got %v, want 500ms", cfg.Interval)
	}
	if len(cfg.Economies) != 2 {
		t.Fatalf("Economies: got %d, want 2", len(cfg.Economies))
	}
	if cfg.Economies[1].Name != "taxed" || cfg.Economies[1].IncomeTax != 0.2 {
		t.Errorf("second economy: got %+v", cfg.Economies[1])
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}

	p := cfg.EconomyParams(0)
	want := economy.DefaultParams(5, 1)
	if p.TFP != want.TFP || p.ReservationWage != want.ReservationWage || p.MatchingEfficiency != want.MatchingEfficiency ||
		p.InterestRate != want.InterestRate || p.VacancyFloor != want.VacancyFloor {
		t.Errorf("EconomyParams(0) = %+v, want defaults %+v", p, want)
	}
	if p.Name != "baseline" {
		t.Errorf("Name: got %q, want baseline", p.Name)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
seed: 7
population: 250
goods: 3
firms_per_market: 2
interval: 2s
demographics:
  savings_rate_min: 0.1
  savings_rate_max: 0.2
firm:
  tfp: 12
economies:
  - name: rigid
    matching_efficiency: 0
  - name: levied
    goods_tax: [0.1, 0.2, 0.3]
    interest_rate: 0.1
logging:
  level: debug
  format: json
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Seed != 7 || cfg.Population != 250 || cfg.Goods != 3 || cfg.FirmsPerMarket != 2 {
		t.Errorf("top level: got %+v", cfg)
	}
	if cfg.Interval != 2*time.Second {
		t.Errorf("Interval: got %v, want 2s", cfg.Interval)
	}
	if cfg.DeathAge != 80 {
		t.Errorf("DeathAge default lost: got %v", cfg.DeathAge)
	}

	rigid := cfg.EconomyParams(0)
	if rigid.MatchingEfficiency != 0 || rigid.TFP != 12 || rigid.SavingsRateMax != 0.2 {
		t.Errorf("rigid params: %+v", rigid)
	}
	levied := cfg.EconomyParams(1)
	if len(levied.GoodsTax) != 3 || levied.GoodsTax[2] != 0.3 || levied.InterestRate != 0.1 {
		t.Errorf("levied params: %+v", levied)
	}
	if levied.MatchingEfficiency != 0.05 {
		t.Errorf("levied matching efficiency: got %v, want default 0.05", levied.MatchingEfficiency)
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("SlogLevel: got %v, want DEBUG", lvl)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MACROSIM_API_PORT", "9091")
	t.Setenv("MACROSIM_POPULATION", "42")
	t.Setenv("MACROSIM_LOGGING_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9091 {
		t.Errorf("API.Port: got %d, want 9091", cfg.API.Port)
	}
	if cfg.Population != 42 {
		t.Errorf("Population: got %d, want 42", cfg.Population)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want json", cfg.Logging.Format)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero population", "population: 0\n"},
		{"no goods", "goods: 0\n"},
		{"zero months", "months_per_period: 0\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"inverted weights", "demographics:\n  weight_min: 0.9\n  weight_max: 0.1\n"},
		{"negative weights", "demographics:\n  weight_min: -0.1\n"},
		{"inverted ages", "demographics:\n  age_min: 50\n  age_max: 20\n"},
		{"goods tax size", "goods: 2\neconomies:\n  - name: a\n    goods_tax: [0.1]\n"},
		{"income tax", "economies:\n  - name: a\n    income_tax: 1.5\n"},
		{"no economies", "economies: []\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tc.body))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err=%v want ErrInvalid", err)
			}
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "population: 300\neconomies:\n  - name: solo\n    interest_rate: 0.07\n"))
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() error: %v", err)
	}

	again, err := LoadFromFile(writeConfig(t, string(out)))
	if err != nil {
		t.Fatalf("reload rendered YAML: %v\n%s", err, out)
	}
	if again.Population != 300 || again.Interval != cfg.Interval || len(again.Economies) != 1 {
		t.Errorf("round trip: got %+v", again)
	}
	if r := again.EconomyParams(0).InterestRate; r != 0.07 {
		t.Errorf("interest rate: got %v, want 0.07", r)
	}
}

func TestEngineOptionsAndDemographics(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	opts := cfg.EngineOptions()
	if opts.MonthsPerPeriod != 1 || opts.DeathAge != 80 || opts.RetirementAge != 65 {
		t.Errorf("EngineOptions: got %+v", opts)
	}
	if d := cfg.DemographicDraws(); d != economy.DefaultDemographics() {
		t.Errorf("DemographicDraws: got %+v, want %+v", d, economy.DefaultDemographics())
	}
	if got := len(cfg.AllEconomyParams()); got != 2 {
		t.Errorf("AllEconomyParams: got %d, want 2", got)
	}
}

func TestDemographicDrawsFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "demographics:\n  weight_min: 0.2\n  weight_max: 0.4\n  age_max: 60\n  productivity_sd: 0.1\n"))
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	d := cfg.DemographicDraws()
	if d.WeightMin != 0.2 || d.WeightMax != 0.4 || d.AgeMax != 60 || d.ProductivitySD != 0.1 {
		t.Errorf("DemographicDraws: got %+v", d)
	}
	if d.ProductivityMean != 1 || d.AgeMin != 0 {
		t.Errorf("defaults lost: got %+v", d)
	}
}
