package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/honorscan/internal/model"
)

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.DefaultConfig().LLM)

	assert.Equal(t, "gemini-3-flash-preview", cfg.PrimaryModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.FallbackModel)
	assert.True(t, cfg.Grounding)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
}

func TestFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.BaseURL = "http://127.0.0.1:11434"
	cfg.LLM.PrimaryModel = "llama3"
	cfg.LLM.FallbackModel = "mistral"

	c, err := FromConfig(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "llama3", c.Config().PrimaryModel)
	assert.Equal(t, "ollama", c.provider.Name())
}

func TestFromConfig_UnknownProvider(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "carrier-pigeon"

	_, err := FromConfig(cfg, nil, nil)
	assert.Error(t, err)
}
