package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bizanalyzer/internal/entity"
)

func TestCrawlCommand_EmptyStartURLsFailsBeforeSetup(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cmd := newCrawlCommand()
	cmd.SetArgs([]string{"--max-pages", "5"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrConfiguration)
	var cfgErr *entity.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "startUrls", cfgErr.Field)
}

func TestReadJobInput_FileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"startUrls": [{"url": "https://acme.example/"}, "https://acme.example/about"],
		"maxPagesToCrawl": 4,
		"includeScreenshots": true
	}`), 0o600))

	cmd := newCrawlCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--input", path, "--start-url", "https://acme.example/contact", "--max-pages", "9"}))

	in, err := readJobInput(cmd, crawlFlags{
		inputFile: path,
		startURLs: []string{"https://acme.example/contact"},
		maxPages:  9,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://acme.example/",
		"https://acme.example/about",
		"https://acme.example/contact",
	}, in.URLs())
	assert.Equal(t, 9, in.MaxPagesToCrawl)
	assert.True(t, in.IncludeScreenshots)
}

func TestReadJobInput_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"startUrls": 42}`), 0o600))

	cmd := newCrawlCommand()
	_, err := readJobInput(cmd, crawlFlags{inputFile: path})
	assert.ErrorIs(t, err, entity.ErrConfiguration)
}
