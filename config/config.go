package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDailyAllowance is the allowance a user accrues per day, in
// nanodollars, when the config does not say otherwise.
const DefaultDailyAllowance = 2_500_000

// DefaultAccrualDays is the number of days' worth of allowance a user can
// bank before it stops accruing, when the config does not say otherwise.
const DefaultAccrualDays = 4.0

// Model is one selectable upstream model with its price table.
// Costs are nanodollars per token.
type Model struct {
	Name         string `yaml:"name"`
	FriendlyName string `yaml:"friendly_name"`
	InputCost    int64  `yaml:"input_cost"`
	OutputCost   int64  `yaml:"output_cost"`
}

// CostDescription describes the model's pricing in dollars per million tokens.
func (m *Model) CostDescription() string {
	return fmt.Sprintf(
		"%g$ per 1M input tokens, %g$ per 1M output tokens",
		float64(m.InputCost)/1000.0,
		float64(m.OutputCost)/1000.0,
	)
}

// Personality is a selectable system message preset. The first entry in the
// config list is the default.
type Personality struct {
	Name          string `yaml:"name"`
	Emoji         string `yaml:"emoji"`
	SystemMessage string `yaml:"system_message"`
}

// OneOffCommand is a configured single-shot command: one system message,
// one user input, no conversation stored.
type OneOffCommand struct {
	Name                string `yaml:"name"`
	Emoji               string `yaml:"emoji"`
	Description         string `yaml:"description"`
	Argument            string `yaml:"argument"`
	ArgumentDescription string `yaml:"argument_description"`
	SystemMessage       string `yaml:"system_message"`
}

// CustomAPIKey binds a user to their own upstream API key, used instead of
// the shared key for that user's requests.
type CustomAPIKey struct {
	User uint64 `yaml:"user"`
	Key  string `yaml:"key"`
}

// Config holds the application configuration.
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		Port     string `yaml:"port"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		Secret  string `yaml:"secret"`
		ExpHour int    `yaml:"exp_hour"`
	} `yaml:"auth"`
	Chat struct {
		APIKey          string `yaml:"api_key"`
		APIURL          string `yaml:"api_url"`
		MaxContextTurns int    `yaml:"max_context_turns"`
	} `yaml:"chat"`
	Allowance struct {
		// Nanodollars regenerated per day.
		Daily int64 `yaml:"daily"`
		// Days' worth of allowance a user can bank.
		AccrualDays float64 `yaml:"accrual_days"`
	} `yaml:"allowance"`
	Models           []Model         `yaml:"models"`
	Personalities    []Personality   `yaml:"personalities"`
	OneOffs          []OneOffCommand `yaml:"one_offs"`
	PrototypingRoles []uint64        `yaml:"prototyping_roles"`
	CustomAPIKeys    []CustomAPIKey  `yaml:"custom_api_keys"`
}

// CustomKeyMap returns the per-user API key overrides as a lookup map.
func (c *Config) CustomKeyMap() map[uint64]string {
	keys := make(map[uint64]string, len(c.CustomAPIKeys))
	for _, entry := range c.CustomAPIKeys {
		keys[entry.User] = entry.Key
	}
	return keys
}

// GlobalConfig is the global configuration instance.
var GlobalConfig Config

// DSN generates the PostgreSQL DSN from database config.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

// DefaultModel returns the first configured model. Validation guarantees
// there is at least one.
func (c *Config) DefaultModel() *Model {
	return &c.Models[0]
}

// ModelByName finds a configured model by its API name.
func (c *Config) ModelByName(name string) *Model {
	for i := range c.Models {
		if c.Models[i].Name == name {
			return &c.Models[i]
		}
	}
	return nil
}

// DefaultPersonality returns the first configured personality. Validation
// guarantees there is at least one.
func (c *Config) DefaultPersonality() *Personality {
	return &c.Personalities[0]
}

// PersonalityByName finds a configured personality by name.
func (c *Config) PersonalityByName(name string) *Personality {
	for i := range c.Personalities {
		if c.Personalities[i].Name == name {
			return &c.Personalities[i]
		}
	}
	return nil
}

// OneOffByName finds a configured one-off command by name.
func (c *Config) OneOffByName(name string) *OneOffCommand {
	for i := range c.OneOffs {
		if c.OneOffs[i].Name == name {
			return &c.OneOffs[i]
		}
	}
	return nil
}

// IsPrototypingRole reports whether the role id may set custom personalities.
func (c *Config) IsPrototypingRole(role uint64) bool {
	for _, id := range c.PrototypingRoles {
		if id == role {
			return true
		}
	}
	return false
}

// LoadConfig reads and parses the YAML configuration file into GlobalConfig.
// The document is parsed and validated in isolation, so a failed load never
// merges with or clobbers a previously loaded configuration.
func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database.dbname is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.SSLMode == "" {
		return fmt.Errorf("database.sslmode is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.Auth.ExpHour < 1 {
		c.Auth.ExpHour = 24
	}
	if c.Chat.APIKey == "" {
		return fmt.Errorf("chat.api_key is required")
	}
	if c.Chat.MaxContextTurns < 1 {
		c.Chat.MaxContextTurns = 20
	}
	if c.Allowance.Daily < 1 {
		c.Allowance.Daily = DefaultDailyAllowance
	}
	if c.Allowance.AccrualDays <= 0 {
		c.Allowance.AccrualDays = DefaultAccrualDays
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	for _, model := range c.Models {
		if model.Name == "" {
			return fmt.Errorf("every model needs a name")
		}
		if model.InputCost < 0 || model.OutputCost < 0 {
			return fmt.Errorf("model %s has a negative cost", model.Name)
		}
	}
	if len(c.Personalities) == 0 {
		return fmt.Errorf("at least one personality is required")
	}
	for _, personality := range c.Personalities {
		if personality.Name == "" {
			return fmt.Errorf("every personality needs a name")
		}
	}
	for _, oneOff := range c.OneOffs {
		if oneOff.Name == "" {
			return fmt.Errorf("every one-off command needs a name")
		}
	}
	return nil
}
