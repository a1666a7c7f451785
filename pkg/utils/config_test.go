package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("with nil values", func(t *testing.T) {
		config := NewConfig(nil)
		require.NotNil(t, config)
		assert.Empty(t, config.Keys())
	})

	t.Run("copies values", func(t *testing.T) {
		values := map[string]string{"key1": "value1"}
		config := NewConfig(values)

		values["key1"] = "modified"
		assert.Equal(t, "value1", config.Get("key1"))
	})
}

func TestNewConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CREDLINK_TEST_FROM_FILE=file_value\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CREDLINK_TEST_FROM_FILE") })

	// Variables already in the environment win over the file
	t.Setenv("CREDLINK_TEST_PRESET", "env_value")

	config := NewConfigFromEnv(path, filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "file_value", config.Get("CREDLINK_TEST_FROM_FILE"))
	assert.Equal(t, "env_value", config.Get("CREDLINK_TEST_PRESET"))
}

func TestEnvFiles(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	assert.Equal(t, []string{".env"}, EnvFiles())

	t.Setenv("ENV_FILE", "a.env,b.env")
	assert.Equal(t, []string{"a.env", "b.env"}, EnvFiles())
}

func TestConfigGetWithDefault(t *testing.T) {
	config := NewConfig(map[string]string{
		"existing": "value",
		"empty":    "",
	})

	assert.Equal(t, "value", config.GetWithDefault("existing", "default"))
	assert.Equal(t, "default", config.GetWithDefault("empty", "default"))
	assert.Equal(t, "default", config.GetWithDefault("missing", "default"))
}

func TestConfigGetFirst(t *testing.T) {
	config := NewConfig(map[string]string{
		"API_PORT": "8080",
		"PORT":     "",
	})

	assert.Equal(t, "8080", config.GetFirst("PORT", "API_PORT"))
	assert.Empty(t, config.GetFirst("MISSING"))
}

func TestConfigGetBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
		fallback bool
	}{
		{"true", true, true},
		{"TRUE", true, true},
		{"1", true, true},
		{"yes", true, true},
		{"on", true, true},
		{"enabled", true, true},
		{"false", false, false},
		{"0", false, false},
		{"no", false, false},
		{"off", false, false},
		{"disabled", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("value %q", tt.value), func(t *testing.T) {
			config := NewConfig(map[string]string{"key": tt.value})

			assert.Equal(t, tt.expected, config.GetBool("key"))
			assert.Equal(t, tt.fallback, config.GetBoolWithDefault("key", true))
		})
	}
}

func TestConfigGetInt(t *testing.T) {
	config := NewConfig(map[string]string{
		"valid":   "42",
		"padded":  " 7 ",
		"invalid": "abc",
	})

	assert.Equal(t, 42, config.GetInt("valid"))
	assert.Equal(t, 7, config.GetInt("padded"))
	assert.Equal(t, 0, config.GetInt("invalid"))
	assert.Equal(t, 5, config.GetIntWithDefault("invalid", 5))
	assert.Equal(t, 5, config.GetIntWithDefault("missing", 5))
}

func TestConfigGetDuration(t *testing.T) {
	config := NewConfig(map[string]string{
		"go":      "1m30s",
		"seconds": "45",
		"invalid": "soon",
	})

	assert.Equal(t, 90*time.Second, config.GetDuration("go", time.Second))
	assert.Equal(t, 45*time.Second, config.GetDuration("seconds", time.Second))
	assert.Equal(t, time.Second, config.GetDuration("invalid", time.Second))
	assert.Equal(t, time.Second, config.GetDuration("missing", time.Second))
}

func TestConfigGetList(t *testing.T) {
	config := NewConfig(map[string]string{
		"origins": "http://localhost:3000, https://app.example.com,,",
	})

	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, config.GetList("origins"))
	assert.Nil(t, config.GetList("missing"))
}

func TestConfigMutation(t *testing.T) {
	config := NewConfig(nil)

	config.Set("b", "2")
	config.Set("a", "1")
	config.Set("empty", "")

	assert.True(t, config.Has("empty"))
	assert.Equal(t, []string{"a", "b", "empty"}, config.Keys())

	config.Delete("b")
	assert.False(t, config.Has("b"))

	clone := config.Clone()
	clone.Set("a", "changed")
	assert.Equal(t, "1", config.Get("a"))
}

func TestConfigThreadSafety(t *testing.T) {
	config := NewConfig(nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)

		go func() {
			defer wg.Done()
			config.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("%d", i))
		}()

		go func() {
			defer wg.Done()
			_ = config.GetInt(fmt.Sprintf("key%d", i))
			_ = config.Keys()
		}()
	}
	wg.Wait()

	assert.Len(t, config.Keys(), 50)
}
