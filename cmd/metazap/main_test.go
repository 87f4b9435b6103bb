package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores the package-level flag variables after a test so
// tests do not leak state into each other.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		inputDir = ""
		outputDir = ""
		recursive = true
		dryRun = false
		optimize = false
		backup = false
		viper.Reset()
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadConfig_NilCommandKeepsConfigFileRecursive verifies that
// callers without a parsed flag set, like the scan subcommand used to
// be, do not clobber a config file's recursive setting with the flag
// default.
func TestLoadConfig_NilCommandKeepsConfigFileRecursive(t *testing.T) {
	resetFlags(t)
	cfgFile = writeConfigFile(t, "recursive: false\n")

	cfg, err := loadConfig(nil, []string{t.TempDir()})
	require.NoError(t, err)
	assert.False(t, cfg.Recursive)
}

// TestLoadConfig_RecursiveFlagOverridesConfigFile verifies an
// explicitly set --recursive flag still wins over the config file.
func TestLoadConfig_RecursiveFlagOverridesConfigFile(t *testing.T) {
	resetFlags(t)
	cfgFile = writeConfigFile(t, "recursive: false\n")

	cmd := &cobra.Command{}
	cmd.Flags().BoolVar(&recursive, "recursive", true, "")
	require.NoError(t, cmd.Flags().Set("recursive", "true"))

	cfg, err := loadConfig(cmd, []string{t.TempDir()})
	require.NoError(t, err)
	assert.True(t, cfg.Recursive)
}

// TestLoadConfig_UnchangedFlagKeepsConfigFileRecursive verifies a
// command whose --recursive flag was never set on the command line
// leaves the config file value alone.
func TestLoadConfig_UnchangedFlagKeepsConfigFileRecursive(t *testing.T) {
	resetFlags(t)
	cfgFile = writeConfigFile(t, "recursive: false\n")

	cmd := &cobra.Command{}
	cmd.Flags().BoolVar(&recursive, "recursive", true, "")

	cfg, err := loadConfig(cmd, []string{t.TempDir()})
	require.NoError(t, err)
	assert.False(t, cfg.Recursive)
}

// TestLoadConfig_PositionalDirOverridesInput verifies the positional
// argument takes precedence over the --input flag value.
func TestLoadConfig_PositionalDirOverridesInput(t *testing.T) {
	resetFlags(t)
	flagDir := t.TempDir()
	argDir := t.TempDir()
	inputDir = flagDir

	cfg, err := loadConfig(nil, []string{argDir})
	require.NoError(t, err)
	assert.Equal(t, argDir, cfg.InputDirectory)
}
