package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, 128, cfg.ImageWidth)
	assert.Equal(t, 128, cfg.ImageHeight)
	assert.Equal(t, "./models", cfg.ModelDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvReadsEnvironment(t *testing.T) {
	t.Setenv("IMAGE_WIDTH", "224")
	t.Setenv("IMAGE_HEIGHT", "160")
	t.Setenv("MODEL_DIR", "/opt/model")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()

	assert.Equal(t, 224, cfg.ImageWidth)
	assert.Equal(t, 160, cfg.ImageHeight)
	assert.Equal(t, "/opt/model", cfg.ModelDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnvMalformedDimensionsFallBack(t *testing.T) {
	t.Setenv("IMAGE_WIDTH", "not-a-number")
	t.Setenv("IMAGE_HEIGHT", "-5")

	cfg := FromEnv()

	assert.Equal(t, 128, cfg.ImageWidth)
	assert.Equal(t, 128, cfg.ImageHeight)
}

func TestLoadClassesMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.json")
	err := os.WriteFile(path, []byte(`{"mask": 0, "no_mask": 1}`), 0o600)
	assert.NoError(t, err)

	classes := LoadClassesMap(path)
	assert.Equal(t, map[string]int{"mask": 0, "no_mask": 1}, classes)
}

func TestLoadClassesMapMissingFileIsNil(t *testing.T) {
	classes := LoadClassesMap("/nonexistent/classes.json")
	assert.Nil(t, classes)
}

func TestLoadClassesMapInvalidJSONIsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.json")
	err := os.WriteFile(path, []byte("{broken"), 0o600)
	assert.NoError(t, err)

	assert.Nil(t, LoadClassesMap(path))
	assert.Nil(t, LoadClassesMap(""))
}
