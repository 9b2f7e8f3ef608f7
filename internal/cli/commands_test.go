package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ordex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGolden(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"index_people", []string{"index", "--key", "surname", "--identity", "id", "--unique", "testdata/people.yaml"}},
		{"consolidate_events", []string{"consolidate", "testdata/events.yaml"}},
		{"sort_words_collated", []string{"sort", "--collate", "de", "testdata/words.yaml"}},
		{"sort_words_desc", []string{"sort", "--desc", "testdata/words.yaml"}},
		{"sort_words_json", []string{"--format", "json", "sort", "--collate", "de", "testdata/words.yaml"}},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(out))
		})
	}
}

func TestIndex_JSON(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "index", "-k", "surname", "--identity", "id", "-u", "testdata/people.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   IndexResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 5, resp.Data.Entities)
	require.Len(t, resp.Data.Ops, 5)
	assert.Equal(t, ErrCodeUniqueness, resp.Data.Ops[1].Code)
	assert.False(t, resp.Data.Ops[1].OK)
}

func TestIndex_NonUniqueKeepsDuplicates(t *testing.T) {
	out, err := runCLI(t, "index", "--key", "surname", "testdata/people.yaml")
	require.NoError(t, err)

	// Without an identity field, records compare by all fields, so the
	// second Ann is a new entity and the upserted Cyd does not replace Cid.
	assert.Contains(t, out, "index key=surname unique=false entities=7 buckets=4")
	assert.Contains(t, out, "Green (1)")
	assert.Contains(t, out, "events: Add=4 Remove=1")
}

func TestIndex_ConfigSuppliesDefaults(t *testing.T) {
	cfg := writeConfig(t, `index:
  key_field: surname
  identity_field: id
  unique: true
router:
  executor: serial
bucket:
  page_size: 1
`)

	out, err := runCLI(t, "--config", cfg, "index", "testdata/people.yaml")
	require.NoError(t, err)

	want, err := os.ReadFile("testdata/golden/index_people.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestIndex_FlagsOverrideConfig(t *testing.T) {
	cfg := writeConfig(t, "index:\n  key_field: first\n  unique: true\n")

	out, err := runCLI(t, "--config", cfg, "index", "--unique=false", "--key", "id", "testdata/people.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "index key=id unique=false")
}

func TestConsolidate_ExecutorsDeliverSameCounts(t *testing.T) {
	for _, exec := range []string{"inline", "goroutine", "serial"} {
		t.Run(exec, func(t *testing.T) {
			cfg := writeConfig(t, "router:\n  executor: "+exec+"\n")

			out, err := runCLI(t, "--config", cfg, "consolidate", "testdata/events.yaml")
			require.NoError(t, err)
			assert.Contains(t, out, "deliveries: Add=2 Remove=1 Replace=1")
		})
	}
}

func TestSort_HeldRouterConsolidatesAdds(t *testing.T) {
	cfg := writeConfig(t, "router:\n  held: true\n")

	out, err := runCLI(t, "--config", cfg, "sort", "testdata/words.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "events: Add=1 Move=1")
}

func TestSort_NonStringKeyIsInvalidArgument(t *testing.T) {
	out, err := runCLI(t, "sort", "testdata/bad_keys.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E103]")
	assert.Contains(t, out, "entries[1]: INVALID_ARGUMENT: key: expected string, got int")
}

func TestSort_InvalidCollation(t *testing.T) {
	out, err := runCLI(t, "sort", "--collate", "not a tag", "testdata/words.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid collation")
}

func TestCommandErrors(t *testing.T) {
	badFixture := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badFixture, []byte("entries:\n  - {key: a, valu: 1}\n"), 0o644))

	badOp := filepath.Join(t.TempDir(), "op.yaml")
	require.NoError(t, os.WriteFile(badOp, []byte("entities: []\nops:\n  - {add: {id: 1}, remove: {id: 1}}\n"), 0o644))

	badAction := filepath.Join(t.TempDir(), "action.yaml")
	require.NoError(t, os.WriteFile(badAction, []byte("events:\n  - action: shuffle\n"), 0o644))

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing fixture", []string{"sort", "testdata/nope.yaml"}, ErrCodeNotFound},
		{"unknown fixture field", []string{"sort", badFixture}, ErrCodeParse},
		{"ambiguous op", []string{"index", badOp}, ErrCodeParse},
		{"unknown action", []string{"consolidate", badAction}, ErrCodeParse},
		{"missing config", []string{"--config", "testdata/nope.yaml", "sort", "testdata/words.yaml"}, ErrCodeConfig},
		{"invalid config", []string{"--config", writeConfig(t, "router:\n  executor: pool\n"), "consolidate", "testdata/events.yaml"}, ErrCodeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
