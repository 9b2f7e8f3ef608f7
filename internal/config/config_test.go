package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordex.yaml")
	content := `log:
  level: debug
  format: json
router:
  executor: serial
index:
  unique: true
  key_field: surname
  identity_field: id
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Log.Format)
	assert.Equal(t, ExecutorSerial, cfg.Router.Executor)
	assert.True(t, cfg.Index.Unique)
	assert.Equal(t, "surname", cfg.Index.KeyField)
	assert.Equal(t, "id", cfg.Index.IdentityField)
	assert.Equal(t, Default().Bucket, cfg.Bucket, "absent sections keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParse_EmptyDocumentIsDefault(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("bucket:\n  pagesize: 8\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "pagesize")
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"bad executor", "router:\n  executor: threadpool\n", "router.executor"},
		{"zero page size", "bucket:\n  page_size: 0\n", "bucket.page_size"},
		{"negative ratio", "bucket:\n  compact_ratio: -1\n", "bucket.compact_ratio"},
		{"empty key field", "index:\n  key_field: \"\"\n", "index.key_field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_LevelIsCaseInsensitive(t *testing.T) {
	cfg, err := Parse(strings.NewReader("log:\n  level: WARN\n"))
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Log.Level)
}
