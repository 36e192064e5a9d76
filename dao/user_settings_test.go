package dao

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsAbsentUser(t *testing.T) {
	d := NewUserSettingsDAO(openTestDB(t))

	settings, err := d.Get(1)
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestSetModelUpserts(t *testing.T) {
	d := NewUserSettingsDAO(openTestDB(t))

	model := "gpt-4"
	require.NoError(t, d.SetModel(1, &model))

	settings, err := d.Get(1)
	require.NoError(t, err)
	require.NotNil(t, settings)
	require.NotNil(t, settings.Model)
	assert.Equal(t, "gpt-4", *settings.Model)

	other := "gpt-3.5-turbo"
	require.NoError(t, d.SetModel(1, &other))
	settings, err = d.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", *settings.Model)
}

func TestConsumeModelClearsOverride(t *testing.T) {
	d := NewUserSettingsDAO(openTestDB(t))

	model := "gpt-4"
	require.NoError(t, d.SetModel(1, &model))

	consumed, err := d.ConsumeModel(1)
	require.NoError(t, err)
	require.NotNil(t, consumed)
	assert.Equal(t, "gpt-4", *consumed)

	settings, err := d.Get(1)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Nil(t, settings.Model)

	consumed, err = d.ConsumeModel(1)
	require.NoError(t, err)
	assert.Nil(t, consumed)
}

func TestConsumeModelWithoutSettings(t *testing.T) {
	d := NewUserSettingsDAO(openTestDB(t))

	consumed, err := d.ConsumeModel(1)
	require.NoError(t, err)
	assert.Nil(t, consumed)
}

func TestSetSystemMessageDoesNotClobberModel(t *testing.T) {
	d := NewUserSettingsDAO(openTestDB(t))

	model := "gpt-4"
	require.NoError(t, d.SetModel(1, &model))
	personality := "poetic"
	require.NoError(t, d.SetSystemMessage(1, &personality))

	settings, err := d.Get(1)
	require.NoError(t, err)
	require.NotNil(t, settings.Model)
	assert.Equal(t, "gpt-4", *settings.Model)
	require.NotNil(t, settings.SystemMessage)
	assert.Equal(t, "poetic", *settings.SystemMessage)
}

func TestSetSamplingUpserts(t *testing.T) {
	d := NewUserSettingsDAO(openTestDB(t))

	temperature := float32(1.2)
	maxTokens := uint32(800)
	require.NoError(t, d.SetSampling(1, &temperature, &maxTokens))

	settings, err := d.Get(1)
	require.NoError(t, err)
	require.NotNil(t, settings.Temperature)
	assert.InDelta(t, 1.2, *settings.Temperature, 0.0001)
	require.NotNil(t, settings.MaxTokens)
	assert.Equal(t, uint32(800), *settings.MaxTokens)

	require.NoError(t, d.SetSampling(1, nil, nil))
	settings, err = d.Get(1)
	require.NoError(t, err)
	assert.Nil(t, settings.Temperature)
	assert.Nil(t, settings.MaxTokens)
}
