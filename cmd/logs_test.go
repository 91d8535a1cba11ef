package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Keep test output free of escape sequences.
	color.NoColor = true
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)
}

func TestLogsCat(t *testing.T) {
	fd, err := os.Open(filepath.Join("testdata", "sample.log"))
	require.NoError(t, err)
	defer fd.Close()

	var out bytes.Buffer
	require.NoError(t, renderLog(&out, fd))

	golden(t).Assert(t, "sample", out.Bytes())
}

func TestLogsReport(t *testing.T) {
	var out bytes.Buffer
	reportCommand.SetOut(&out)

	require.NoError(t, reportCommand.RunE(reportCommand, []string{filepath.Join("testdata", "sample.log")}))

	report := out.String()
	assert.Contains(t, report, "log_entries: 9")
	assert.Contains(t, report, "wc: 1")
	assert.Contains(t, report, "background_count: 1")
	assert.Contains(t, report, "redirection_count: 1")
	assert.Contains(t, report, "status: 1")
	assert.Contains(t, report, "operator: 1")
	assert.Contains(t, report, "mode_changes: 1")
	assert.Contains(t, report, "terminated by signal 15: 1")
}

func TestLogsCatMissingFile(t *testing.T) {
	var out bytes.Buffer
	catCommand.SetOut(&out)

	err := catCommand.RunE(catCommand, []string{filepath.Join("testdata", "no-such.log")})
	require.Error(t, err)
}
