package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "ocptv.yaml", "output: out.ndjson\ndb: ./ocptv.db\nlog_level: debug\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{Output: "out.ndjson", DB: "./ocptv.db", LogLevel: "debug"}, cfg)
}

func TestLoadConfig_Empty(t *testing.T) {
	path := writeFile(t, "ocptv.yaml", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	path := writeFile(t, "ocptv.yaml", "databse: ./ocptv.db\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestRootOptions_Database(t *testing.T) {
	opts := &RootOptions{Settings: Config{DB: "from-config.db"}}

	assert.Equal(t, "flag.db", opts.database("flag.db"))
	assert.Equal(t, "from-config.db", opts.database(""))
	assert.Equal(t, "", (&RootOptions{}).database(""))
}
