package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// useConfigFile points the package at a config file under a temp dir.
func useConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}

	newRootCmd()
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	return path
}

func TestContextConfig(t *testing.T) {
	useConfigFile(t, "")

	t.Run("Load default config", func(t *testing.T) {
		cc, err := loadContextConfig()
		require.NoError(t, err)
		assert.Equal(t, "default", cc.CurrentContext)
		assert.Empty(t, cc.Contexts)
	})

	t.Run("Add context", func(t *testing.T) {
		cc, err := loadContextConfig()
		require.NoError(t, err)

		cc.Contexts["default"] = Context{Server: "http://localhost:3333"}
		require.NoError(t, saveContextConfig(cc))

		loaded, err := loadContextConfig()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3333", loaded.Contexts["default"].Server)
	})

	t.Run("Switch context", func(t *testing.T) {
		cc, err := loadContextConfig()
		require.NoError(t, err)

		cc.Contexts["production"] = Context{
			Server:           "https://swiftwave.example.com",
			GraphQLWSBaseURL: "wss://ws.example.com",
		}
		cc.CurrentContext = "production"
		require.NoError(t, saveContextConfig(cc))

		loaded, err := loadContextConfig()
		require.NoError(t, err)
		assert.Equal(t, "production", loaded.CurrentContext)
		assert.Equal(t, "wss://ws.example.com", loaded.Contexts["production"].GraphQLWSBaseURL)
		assert.Len(t, loaded.Contexts, 2)
	})

	t.Run("Delete context", func(t *testing.T) {
		cc, err := loadContextConfig()
		require.NoError(t, err)

		cc.CurrentContext = "default"
		delete(cc.Contexts, "production")
		require.NoError(t, saveContextConfig(cc))

		loaded, err := loadContextConfig()
		require.NoError(t, err)
		_, exists := loaded.Contexts["production"]
		assert.False(t, exists)
	})
}

func TestSaveContextConfigKeepsOtherSections(t *testing.T) {
	path := useConfigFile(t, `log:
  level: error
state_dir: /tmp/swctl-state
contexts:
  lab:
    server: http://lab:3333
current-context: lab
`)

	cc, err := loadContextConfig()
	require.NoError(t, err)
	assert.Equal(t, "lab", cc.CurrentContext)

	cc.Contexts["prod"] = Context{Server: "https://prod"}
	require.NoError(t, saveContextConfig(cc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "/tmp/swctl-state", raw["state_dir"])
	assert.Equal(t, map[string]interface{}{"level": "error"}, raw["log"])
	assert.Len(t, raw["contexts"], 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestMergeContext(t *testing.T) {
	base := Context{Server: "http://a", HTTPBaseURL: "http://rest"}
	merged := mergeContext(base, Context{Server: "http://b", GraphQLWSBaseURL: "ws://b"})

	assert.Equal(t, Context{
		Server:           "http://b",
		HTTPBaseURL:      "http://rest",
		GraphQLWSBaseURL: "ws://b",
	}, merged)
}

func TestSelectedContext(t *testing.T) {
	useConfigFile(t, "")
	cc := &ContextConfig{CurrentContext: "lab"}

	assert.Equal(t, "lab", selectedContext(cc))

	contextFlag = "prod"
	defer func() { contextFlag = "" }()
	assert.Equal(t, "prod", selectedContext(cc))
}

func TestMaskToken(t *testing.T) {
	token := "very-long-token-string-12345"
	masked := maskToken(token)
	assert.NotEqual(t, token, masked)
	assert.Contains(t, masked, "******")
	assert.True(t, strings.HasPrefix(masked, "ver"))

	assert.Equal(t, "******", maskToken("abc"))
}

func TestGetConfigPath(t *testing.T) {
	newRootCmd()
	originalCfgFile := cfgFile
	cfgFile = ""
	defer func() { cfgFile = originalCfgFile }()

	path := getConfigPath()
	assert.Contains(t, path, ".swctl")
	assert.Contains(t, path, "config.yaml")

	cfgFile = "/custom/path/config.yaml"
	assert.Equal(t, "/custom/path/config.yaml", getConfigPath())
}
