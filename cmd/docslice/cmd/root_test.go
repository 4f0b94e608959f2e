package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	// The shared rootCmd keeps flag values between Execute calls, so reset
	// the flags a previous test may have left set.
	for _, name := range []string{"help", "version"} {
		if f := rootCmd.Flags().Lookup(name); f != nil {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		}
	}

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "docslice", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "slices")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeCommand(t, "--version")
	require.NoError(t, err)

	assert.Contains(t, output, "docslice version")
	assert.Contains(t, output, "Commit:")
}

func TestRootCommandSubcommands(t *testing.T) {
	subcommands := rootCmd.Commands()
	commandNames := make([]string, len(subcommands))
	for i, subcmd := range subcommands {
		commandNames[i] = subcmd.Name()
	}

	expectedCommands := []string{"process", "serve", "config"}
	for _, expected := range expectedCommands {
		assert.Contains(t, commandNames, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	output, err := executeCommand(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, output, "unknown flag")
}

func TestGetConfigValidatesFlagBoundValues(t *testing.T) {
	cfg := GetConfig()
	require.NoError(t, cfg.Validate())

	viper.Set("log_level", "bogus")
	defer viper.Set("log_level", cfg.LogLevel)

	fallback := GetConfig()
	assert.Equal(t, cfg.LogLevel, fallback.LogLevel, "invalid flag value falls back to the last valid config")
}

func TestConfigCommandPrintsResolvedSettings(t *testing.T) {
	output, err := executeCommand(t, "config")
	require.NoError(t, err)

	assert.Contains(t, output, "process:")
	assert.Contains(t, output, "render:")
	assert.Contains(t, output, "server:")
	assert.Contains(t, output, "mode: hybrid")
}

func TestProcessCommandFlags(t *testing.T) {
	flags := processCmd.Flags()
	for _, name := range []string{
		"first-page", "last-page", "mode",
		"page-screenshots", "slice-screenshots",
		"image-format", "image-quality", "image-scale",
		"output", "pretty",
	} {
		assert.NotNil(t, flags.Lookup(name), "flag %s missing", name)
	}
}

func TestProcessCommandMissingFile(t *testing.T) {
	_, err := executeCommand(t, "process", "/nonexistent/input.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestServeCommandFlags(t *testing.T) {
	flags := serveCmd.Flags()
	for _, name := range []string{"host", "port", "cors-origin", "max-upload-size", "timeout", "shutdown-timeout"} {
		assert.NotNil(t, flags.Lookup(name), "flag %s missing", name)
	}
}
