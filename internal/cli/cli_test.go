package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/export"
	"github.com/Conceptual-Machines/bachgen/internal/middleware"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd("test")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestToccataWritesMIDIFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.mid")
	_, err := run(t, "toccata", "--seed", "9", "--bars", "8", "--archetype", "perpetuus", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	song, err := export.Decode(data)
	require.NoError(t, err)
	assert.Len(t, song.Tracks, 3)
	assert.InDelta(t, 80.0, song.Tempo[0].BPM, 0.01)
	assert.Positive(t, song.NoteCount())
}

func TestGoldbergJSONToStdout(t *testing.T) {
	out, err := run(t, "goldberg", "--seed", "3", "--format", "json", "--key", "E minor")
	require.NoError(t, err)

	var res struct {
		Form    string `json:"form"`
		Seed    uint32 `json:"seed"`
		Success bool   `json:"success"`
		Key     struct {
			Tonic int  `json:"tonic"`
			Minor bool `json:"minor"`
		} `json:"key"`
		Variations []json.RawMessage `json:"variations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "goldberg", res.Form)
	assert.Equal(t, uint32(3), res.Seed)
	assert.Equal(t, 4, res.Key.Tonic)
	assert.True(t, res.Key.Minor)
	assert.NotEmpty(t, res.Variations)
	assert.LessOrEqual(t, len(res.Variations), 12)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("BACHGEN_SEED", "21")
	t.Setenv("BACHGEN_BARS", "6")
	out, err := run(t, "toccata", "--format", "json", "--archetype", "concertato")
	require.NoError(t, err)

	var res struct {
		Seed uint32 `json:"seed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint32(21), res.Seed)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("BACHGEN_SEED", "21")
	out, err := run(t, "toccata", "--format", "json", "--bars", "6", "--seed", "4")
	require.NoError(t, err)

	var res struct {
		Seed uint32 `json:"seed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint32(4), res.Seed)
}

func TestConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bachgen.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("archetype: sectionalis\nbars: 12\n"), 0o600))

	out, err := run(t, "plan", "toccata", "--config", cfg, "--format", "json")
	require.NoError(t, err)

	var sections []struct {
		Name string `json:"name"`
		Bars int    `json:"bars"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sections))
	require.Len(t, sections, 5)
	assert.Equal(t, "Prelude", sections[0].Name)
	total := 0
	for _, s := range sections {
		total += s.Bars
	}
	assert.Equal(t, 12, total)

	_, err = run(t, "plan", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPlanTable(t *testing.T) {
	out, err := run(t, "plan", "goldberg", "--scale", "short")
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	assert.Len(t, lines, 13)
	assert.Contains(t, string(lines[0]), "NAME")
}

func TestInvalidSettings(t *testing.T) {
	_, err := run(t, "toccata", "--bars", "-2", "--format", "json")
	assert.Error(t, err)

	_, err = run(t, "goldberg", "--scale", "epic", "--format", "json")
	assert.Error(t, err)

	_, err = run(t, "goldberg", "--seed", "1", "--format", "wav")
	assert.Error(t, err)

	_, err = run(t, "plan", "passacaglia")
	assert.Error(t, err)
}

func TestTokenIsAcceptedByServer(t *testing.T) {
	out, err := run(t, "token", "alice", "--jwt-secret", "s3cret", "--role", "admin")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	claims := &middleware.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	_, err = run(t, "token", "alice")
	assert.Error(t, err)
	_, err = run(t, "token", "alice", "--jwt-secret", "x", "--role", "root")
	assert.Error(t, err)
}
