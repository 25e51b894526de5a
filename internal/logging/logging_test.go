package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerbosityMapsToLevel(t *testing.T) {
	cases := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{9, zerolog.TraceLevel},
	}
	for _, tc := range cases {
		require.NoError(t, Setup(tc.verbosity, ""))
		assert.Equal(t, tc.want, zerolog.GlobalLevel(), "verbosity %d", tc.verbosity)
	}
}

func TestSetupCreatesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cubby.log")
	require.NoError(t, Setup(1, path))

	log.Info().Str("key", "value").Msg("file sink test")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink test")
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestGetTagsComponent(t *testing.T) {
	require.NoError(t, Setup(1, ""))

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	lg := Get("scanner")
	lg.Info().Msg("tagged")
	assert.Contains(t, buf.String(), `"component":"scanner"`)
}
