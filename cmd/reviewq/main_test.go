package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/localstore"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-outC
}

func TestVersionCommand(t *testing.T) {
	out := captureStdout(t, func() { versionCmd.Run(nil, nil) })

	if !strings.Contains(out, "reviewq dev") {
		t.Errorf("Expected version output to contain 'reviewq dev', got: %s", out)
	}
	if !strings.Contains(out, "Moderation queue") {
		t.Errorf("Expected version output to contain 'Moderation queue', got: %s", out)
	}
	if !strings.Contains(out, "github.com/pders01/reviewq") {
		t.Errorf("Expected version output to contain 'github.com/pders01/reviewq', got: %s", out)
	}
}

func TestGenerateConfigCommand(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, ".config", "reviewq", "config.toml")
	t.Setenv("HOME", tmpDir)

	out := captureStdout(t, func() { configGenCmd.Run(nil, nil) })

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Errorf("Config file was not created at %s", configFile)
	}
	if !strings.Contains(out, "Generated default configuration at:") {
		t.Errorf("Expected output to contain 'Generated default configuration at:', got: %s", out)
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSeedCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "workspace.db")

	configPath = writeConfig(t, dir, `
[backend]
kind = "local"

[local]
path = "`+dbPath+`"
search_index = "`+filepath.Join(dir, "index.bleve")+`"
`)
	t.Cleanup(func() { configPath = "" })

	seedFile := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(`{
  "responseCode": "OK",
  "result": {
    "count": 2,
    "content": [{"identifier": "do_1", "name": "Algebra I", "status": "Review", "primaryCategory": "Course"}],
    "QuestionSet": [{"identifier": "do_q1", "name": "Algebra Quiz", "status": "Review"}]
  }
}`), 0o644))

	var out bytes.Buffer
	seedCmd.SetOut(&out)
	t.Cleanup(func() { seedCmd.SetOut(nil) })

	require.NoError(t, runSeed(seedCmd, []string{seedFile}))
	assert.Contains(t, out.String(), "Seeded 2 items")

	b, err := localstore.Open(config.LocalConfig{Path: dbPath, SearchIndex: filepath.Join(dir, "index.bleve")})
	require.NoError(t, err)
	defer b.Close()

	resp, err := b.Search(context.Background(), content.SearchRequest{
		Statuses: []string{"Review"},
		Query:    "algebra",
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
}

func TestSeedCommandRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	configPath = writeConfig(t, dir, "[local]\npath = \""+filepath.Join(dir, "w.db")+"\"\n")
	t.Cleanup(func() { configPath = "" })

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"responseCode":"SERVER_ERROR"}`), 0o644))

	assert.Error(t, runSeed(seedCmd, []string{bad}))
	assert.Error(t, runSeed(seedCmd, []string{filepath.Join(dir, "missing.json")}))
}

func TestOpenBackend(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			name: "http backend",
			mutate: func(c *config.Config) {
				c.Backend.Kind = config.BackendHTTP
				c.Backend.BaseURL = "localhost:3000/api/content"
			},
		},
		{
			name: "http backend with bad url",
			mutate: func(c *config.Config) {
				c.Backend.Kind = config.BackendHTTP
				c.Backend.BaseURL = "ftp://example.org"
			},
			wantErr: true,
		},
		{
			name: "local backend",
			mutate: func(c *config.Config) {
				c.Backend.Kind = config.BackendLocal
				c.Local.Path = localstore.MemoryPath
			},
		},
		{
			name: "strict endpoints accept public https",
			mutate: func(c *config.Config) {
				c.Backend.Kind = config.BackendHTTP
				c.Backend.BaseURL = "https://content.example.org/api/content"
				c.Backend.StrictEndpoints = true
			},
		},
		{
			name: "strict endpoints reject localhost",
			mutate: func(c *config.Config) {
				c.Backend.Kind = config.BackendHTTP
				c.Backend.BaseURL = "http://localhost:3000/api/content"
				c.Backend.StrictEndpoints = true
			},
			wantErr: true,
		},
		{
			name: "strict endpoints reject private addresses",
			mutate: func(c *config.Config) {
				c.Backend.Kind = config.BackendHTTP
				c.Backend.BaseURL = "https://10.0.0.5/api/content"
				c.Backend.StrictEndpoints = true
			},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *config.Config) { c.Backend.Kind = "grpc" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.TestConfig()
			tt.mutate(cfg)

			b, err := openBackend(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, b.Close())
		})
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	backendKind, logLevel = "local", "debug"
	t.Cleanup(func() { backendKind, logLevel = "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.BackendLocal, cfg.Backend.Kind)
	assert.Equal(t, "debug", cfg.Log.Level)
}
