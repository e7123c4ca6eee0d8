package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShroXd/cascade"
	"github.com/ShroXd/cascade/internal/config"
	scenarios "github.com/ShroXd/cascade/internal/mock"
	"github.com/ShroXd/cascade/pkg/store"
)

const crawlTemplate = `
name: articles
seeds:
  - %s/articles?page=1
log:
  level: error
http:
  timeout: 5s
  max_attempts: 1
steps:
  - type: paginate
    selector: a.next
  - type: links
    selector: a.article-link
    unique: true
  - type: http
  - type: extract
    fields: {title: h1, author: .author}
    add_all: true
store:
  type: memory
`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(scenarios.NewMux())
	t.Cleanup(server.Close)
	return server
}

func writeCrawl(t *testing.T, serverURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(crawlTemplate, serverURL)), 0600))
	return path
}

func TestRunCrawl(t *testing.T) {
	server := newServer(t)
	f, err := config.LoadConfigFile(writeCrawl(t, server.URL))
	require.NoError(t, err)

	n, err := runCrawl(context.Background(), f, cascade.NewNopLogger())

	require.NoError(t, err)
	assert.Equal(t, scenarios.Pages*scenarios.ArticlesPerPage, n)
}

func TestRunCmdWritesJSONLines(t *testing.T) {
	server := newServer(t)
	output := filepath.Join(t.TempDir(), "out", "articles.jsonl")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", writeCrawl(t, server.URL), "--store", "jsonl", "--output", output})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "6 results stored\n", out.String())

	file, err := os.Open(output)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 6)
	assert.Equal(t, `{"author":"Author 2","title":"Article 1"}`, lines[0])
}

func TestRunCmdWritesSQLite(t *testing.T) {
	server := newServer(t)
	dir := t.TempDir()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", writeCrawl(t, server.URL), "-s", "sqlite", "-o", dir})
	require.NoError(t, cmd.Execute())

	s, err := store.Open(dir, store.Options{})
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.Results(context.Background(), "articles")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Article 6", rows[5].Data["title"])
}

func TestRunCmdErrors(t *testing.T) {
	t.Run("Missing crawl file", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{"run", filepath.Join(t.TempDir(), "nope.yaml")})

		assert.ErrorIs(t, cmd.Execute(), config.ErrConfigNotFound)
	})

	t.Run("Invalid override", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{"run", writeCrawl(t, "http://localhost"), "--store", "s3"})

		assert.ErrorIs(t, cmd.Execute(), config.ErrUnknownStoreType)
	})

	t.Run("Needs exactly one file", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{"run"})

		assert.Error(t, cmd.Execute())
	})
}

func TestBuildStep(t *testing.T) {
	t.Run("Groups", func(t *testing.T) {
		step, err := buildStep(config.StepConfig{
			Type: config.StepSequential,
			Name: "chain",
			Steps: []config.StepConfig{
				{Type: config.StepValues, Values: []any{"a"}},
				{Type: config.StepParallel, Steps: []config.StepConfig{{Type: config.StepHTTP}}},
			},
		})

		require.NoError(t, err)
		require.IsType(t, &cascade.SequentialGroup{}, step)
		assert.Equal(t, "chain", step.Name())
		assert.Len(t, step.(*cascade.SequentialGroup).Steps(), 2)
	})

	t.Run("Paginate keeps loop options on the loop", func(t *testing.T) {
		step, err := buildStep(config.StepConfig{
			Type:        config.StepPaginate,
			Name:        "pages",
			Selector:    "a.next",
			MaxPages:    4,
			DontCascade: true,
		})

		require.NoError(t, err)
		loop, ok := step.(*cascade.Loop)
		require.True(t, ok)
		assert.Equal(t, "pages", loop.Name())
		assert.Equal(t, 4, loop.MaxIterations())
		assert.False(t, loop.Cascades())
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, err := buildStep(config.StepConfig{Type: "teleport"})

		assert.ErrorIs(t, err, config.ErrUnknownStepType)
	})
}

func TestBuildStoreMemory(t *testing.T) {
	s, closer, err := buildStore(&config.File{Store: config.StoreConfig{Type: config.StoreMemory}})

	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)
	assert.NoError(t, closer.Close())
}
