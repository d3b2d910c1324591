package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "nbsync", cmd.Use)
	assert.Contains(t, cmd.Long, "notebook document notifications")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "run", "inspect", "replay", "test", "trace"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"compile", []string{"output"}},
		{"run", []string{"db", "out"}},
		{"replay", []string{"db", "document", "registration", "out", "include-failed"}},
		{"test", []string{"update", "filter"}},
		{"trace", []string{"db", "document", "method", "registration", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(NewRootCommand(), "--format", "invalid", "compile", ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigFileSetsFormatAndJournal(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")
	configPath := writeFile(t, dir, "nbsync.toml", `
[journal]
path = "`+dbPath+`"

[output]
format = "json"
`)
	regPath := writeFile(t, dir, "regs.yaml", pythonRegistrationYAML)

	stdout, _, err := execute(NewRootCommand(), "--config", configPath, "validate", regPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status":"ok"`)

	scenario := writeFile(t, dir, "open_close.yaml", openCloseScenario)
	_, _, err = execute(NewRootCommand(), "--config", configPath, "run", "--out", filepath.Join(dir, "frames.bin"), scenario)
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestFormatFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "nbsync.yaml", "output:\n  format: json\n")
	regPath := writeFile(t, dir, "regs.yaml", pythonRegistrationYAML)

	stdout, _, err := execute(NewRootCommand(), "--config", configPath, "--format", "text", "validate", regPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ 1 registration(s) valid")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "nbsync.toml", "[log]\nlevel = \"loud\"\n")

	_, _, err := execute(NewRootCommand(), "--config", configPath, "validate", ".")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestJournalPathFallback(t *testing.T) {
	opts := &RootOptions{}
	assert.Equal(t, "", opts.journalPath(""))
	assert.Equal(t, "flag.db", opts.journalPath("flag.db"))

	opts = &RootOptions{}
	require.NoError(t, opts.resolve(NewRootCommand()))
	opts.Config.Journal.Path = "config.db"
	assert.Equal(t, "config.db", opts.journalPath(""))
	assert.Equal(t, "flag.db", opts.journalPath("flag.db"))
	assert.NotNil(t, opts.logger())
}
