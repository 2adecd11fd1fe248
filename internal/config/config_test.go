package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(32), cfg.Server.MaxUploadMB)
	assert.Equal(t, "canvas", cfg.Render.Strategy)
	assert.Equal(t, "lexical", cfg.QA.Model)
	assert.Equal(t, "error", cfg.QA.Overflow)
	assert.Equal(t, 100000, cfg.QA.MaxContextChars)
	assert.Equal(t, "none", cfg.Jobs.Backend)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "pdftool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: "127.0.0.1:9000"
render:
  strategy: office
  office_binary: /opt/libreoffice/program/soffice
qa:
  overflow: truncate
  max_context_chars: 500
jobs:
  backend: sqlite
  sqlite_path: /tmp/jobs.db
`), 0o644))
	t.Setenv("PDFTOOL_QA_MAX_CONTEXT_CHARS", "750")
	t.Setenv("PDFTOOL_LOG_LEVEL", "debug")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, "office", cfg.Render.Strategy)
	assert.Equal(t, "/opt/libreoffice/program/soffice", cfg.Render.OfficeBinary)
	assert.Equal(t, "truncate", cfg.QA.Overflow)
	assert.Equal(t, 750, cfg.QA.MaxContextChars, "env wins over file")
	assert.Equal(t, "sqlite", cfg.Jobs.Backend)
	assert.Equal(t, "/tmp/jobs.db", cfg.Jobs.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_SQLiteDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PDFTOOL_JOBS_BACKEND", "sqlite")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "pdftool", "jobs.db"), cfg.Jobs.SQLitePath)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolateHome(t)
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"strategy", map[string]string{"PDFTOOL_RENDER_STRATEGY": "typewriter"}, "render.strategy"},
		{"overflow", map[string]string{"PDFTOOL_QA_OVERFLOW": "chunk"}, "qa.overflow"},
		{"model", map[string]string{"PDFTOOL_QA_MODEL": "gpt"}, "qa.model"},
		{"vertex project", map[string]string{"PDFTOOL_QA_MODEL": "vertex"}, "qa.vertex_project"},
		{"backend", map[string]string{"PDFTOOL_JOBS_BACKEND": "redis"}, "jobs.backend"},
		{"firestore project", map[string]string{"PDFTOOL_JOBS_BACKEND": "firestore"}, "jobs.project_id"},
		{"upload limit", map[string]string{"PDFTOOL_SERVER_MAX_UPLOAD_MB": "0"}, "server.max_upload_mb"},
		{"log level", map[string]string{"PDFTOOL_LOG_LEVEL": "loud"}, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(NewViper(), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "requestId", "r1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"requestId":"r1"`)

	buf.Reset()
	logger, err = NewLogger(LogConfig{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")

	_, err = NewLogger(LogConfig{Level: "verbose"}, &buf)
	assert.Error(t, err)
}
