package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
database:
  host: localhost
  user: chatbot
  password: secret
  dbname: chatbot
  port: "5432"
  sslmode: disable
server:
  port: 8080
auth:
  secret: hush
chat:
  api_key: sk-test
models:
  - name: gpt-3.5-turbo
    friendly_name: GPT-3.5 Turbo
    input_cost: 500
    output_cost: 1500
  - name: gpt-4
    friendly_name: GPT-4
    input_cost: 30000
    output_cost: 60000
personalities:
  - name: robotic
    emoji: "🤖"
    system_message: You are a robot.
one_offs:
  - name: translate
    emoji: "🌐"
    system_message: Translate the input to English.
prototyping_roles: [1000]
custom_api_keys:
  - user: 7
    key: sk-own
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	require.NoError(t, LoadConfig(writeConfig(t, validYAML)))
	cfg := &GlobalConfig

	assert.Equal(t, 24, cfg.Auth.ExpHour)
	assert.Equal(t, 20, cfg.Chat.MaxContextTurns)
	assert.Equal(t, int64(DefaultDailyAllowance), cfg.Allowance.Daily)
	assert.Equal(t, DefaultAccrualDays, cfg.Allowance.AccrualDays)

	assert.Equal(t, "gpt-3.5-turbo", cfg.DefaultModel().Name)
	assert.Equal(t, "robotic", cfg.DefaultPersonality().Name)
	assert.NotNil(t, cfg.ModelByName("gpt-4"))
	assert.Nil(t, cfg.ModelByName("gpt-9"))
	assert.NotNil(t, cfg.OneOffByName("translate"))
	assert.True(t, cfg.IsPrototypingRole(1000))
	assert.False(t, cfg.IsPrototypingRole(5))
	assert.Equal(t, map[uint64]string{7: "sk-own"}, cfg.CustomKeyMap())

	assert.Equal(t,
		"host=localhost user=chatbot password=secret dbname=chatbot port=5432 sslmode=disable",
		cfg.DSN())
}

const missingModelsYAML = `
database:
  host: localhost
  user: chatbot
  password: secret
  dbname: chatbot
  port: "5432"
  sslmode: disable
server:
  port: 8080
auth:
  secret: hush
chat:
  api_key: sk-test
personalities:
  - name: robotic
    system_message: You are a robot.
`

func TestLoadConfigRejectsMissingModels(t *testing.T) {
	err := LoadConfig(writeConfig(t, missingModelsYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestLoadConfigDoesNotMergeAcrossLoads(t *testing.T) {
	require.NoError(t, LoadConfig(writeConfig(t, validYAML)))

	// A document missing its model list must fail validation even though
	// an earlier load populated GlobalConfig, and the failed load must
	// leave the active configuration untouched.
	err := LoadConfig(writeConfig(t, missingModelsYAML))
	require.Error(t, err)
	assert.NotNil(t, GlobalConfig.ModelByName("gpt-4"))
	assert.Equal(t, "sk-test", GlobalConfig.Chat.APIKey)
}

func TestCostDescription(t *testing.T) {
	model := Model{Name: "gpt-4", InputCost: 30000, OutputCost: 60000}
	assert.Equal(t, "30$ per 1M input tokens, 60$ per 1M output tokens", model.CostDescription())
}
