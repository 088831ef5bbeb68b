package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models gigdesk.yml.
type Config struct {
	Currency string `yaml:"currency"`
	Agents   Agents `yaml:"agents"`
	LLM      LLM    `yaml:"llm"`
}

type Agents struct {
	// Concurrent fans the five domains out instead of running them one by one.
	Concurrent   bool         `yaml:"concurrent"`
	Hunter       Hunter       `yaml:"hunter"`
	Collections  Collections  `yaml:"collections"`
	CFO          CFO          `yaml:"cfo"`
	Productivity Productivity `yaml:"productivity"`
	Tax          Tax          `yaml:"tax"`
}

type Hunter struct {
	MinMatchScore int `yaml:"min_match_score"`
	MaxJobAgeDays int `yaml:"max_job_age_days"`
}

type Collections struct {
	MinDaysOverdue       int `yaml:"min_days_overdue"`
	ReminderCooldownDays int `yaml:"reminder_cooldown_days"`
	FirmAfterDays        int `yaml:"firm_after_days"`
	FinalAfterDays       int `yaml:"final_after_days"`
	// DefaultDaysOverdue applies when neither due date nor stored days are usable.
	DefaultDaysOverdue int `yaml:"default_days_overdue"`
}

type CFO struct {
	MinCreditAmount  float64 `yaml:"min_credit_amount"`
	TaxReservePct    float64 `yaml:"tax_reserve_pct"`
	SavingsPct       float64 `yaml:"savings_pct"`
	MinTransfer      float64 `yaml:"min_transfer"`
	SimulatedBalance float64 `yaml:"simulated_balance"`
}

type Productivity struct {
	BillableDaysPerYear int     `yaml:"billable_days_per_year"`
	BillableHoursPerDay float64 `yaml:"billable_hours_per_day"`
	LookaheadDays       int     `yaml:"lookahead_days"`
	DeepWorkHours       float64 `yaml:"deep_work_hours"`
	FarDueDays          int     `yaml:"far_due_days"`
	DefaultEstHours     float64 `yaml:"default_est_hours"`
}

type Tax struct {
	ExpensePattern string    `yaml:"expense_pattern"`
	Rules          []TaxRule `yaml:"rules"`
}

type TaxRule struct {
	Pattern    string `yaml:"pattern"`
	Category   string `yaml:"category"`
	Deductible bool   `yaml:"deductible"`
}

type LLM struct {
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	APIKeys   []string      `yaml:"api_keys"`
}

// Load reads and validates gigdesk.yml from the workspace.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to Default when the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := Load(workspace)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Validate ensures thresholds are usable and every pattern compiles.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("config.currency is required")
	}
	a := c.Agents
	if a.Hunter.MinMatchScore < 0 || a.Hunter.MinMatchScore > 100 {
		return fmt.Errorf("agents.hunter.min_match_score must be within 0..100")
	}
	if a.Collections.MinDaysOverdue < 0 {
		return fmt.Errorf("agents.collections.min_days_overdue must be >= 0")
	}
	if a.Collections.FirmAfterDays > a.Collections.FinalAfterDays {
		return fmt.Errorf("agents.collections.firm_after_days must not exceed final_after_days")
	}
	if a.CFO.TaxReservePct < 0 || a.CFO.SavingsPct < 0 || a.CFO.TaxReservePct+a.CFO.SavingsPct > 1 {
		return fmt.Errorf("agents.cfo.tax_reserve_pct + savings_pct must be within 0..1")
	}
	if a.Productivity.BillableDaysPerYear <= 0 || a.Productivity.BillableHoursPerDay <= 0 {
		return fmt.Errorf("agents.productivity capacity must be positive")
	}
	if a.Productivity.LookaheadDays <= 0 {
		return fmt.Errorf("agents.productivity.lookahead_days must be positive")
	}
	if _, err := regexp.Compile(a.Tax.ExpensePattern); err != nil {
		return fmt.Errorf("agents.tax.expense_pattern: %w", err)
	}
	for i, rule := range a.Tax.Rules {
		if rule.Category == "" {
			return fmt.Errorf("agents.tax.rules[%d] has empty category", i)
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("agents.tax.rules[%d].pattern: %w", i, err)
		}
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be >= 0")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "gigdesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return &cfg
}

// FromYAML overlays raw YAML on the defaults and validates the result.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `currency: INR

agents:
  concurrent: false

  hunter:
    min_match_score: 60
    max_job_age_days: 30

  collections:
    min_days_overdue: 7
    reminder_cooldown_days: 2
    firm_after_days: 30
    final_after_days: 60
    default_days_overdue: 30

  cfo:
    min_credit_amount: 5000
    tax_reserve_pct: 0.30
    savings_pct: 0.20
    min_transfer: 500
    simulated_balance: 150000

  productivity:
    billable_days_per_year: 240
    billable_hours_per_day: 6
    lookahead_days: 7
    deep_work_hours: 3
    far_due_days: 21
    default_est_hours: 2

  tax:
    expense_pattern: "(?i)(upi|pos|card|purchase|subscription|bill|aws|gcp|azure|digitalocean|uber|ola|irctc|flight|adobe|figma|github|notion|wework|cowork|swiggy|zomato)"
    rules:
      - pattern: "(?i)(aws|gcp|azure|digitalocean|heroku|vercel)"
        category: Cloud Infrastructure
        deductible: true
      - pattern: "(?i)(adobe|figma|github|notion|slack|jetbrains|subscription)"
        category: Software Subscriptions
        deductible: true
      - pattern: "(?i)(uber|ola|irctc|flight|airlines|hotel)"
        category: Travel
        deductible: true
      - pattern: "(?i)(wework|cowork)"
        category: Office Rent
        deductible: true
      - pattern: "(?i)(swiggy|zomato|restaurant|cafe)"
        category: Meals
        deductible: false

llm:
  endpoint: https://generativelanguage.googleapis.com/v1beta
  model: gemini-2.0-flash-lite
  max_tokens: 1200
  timeout: 30s
`
