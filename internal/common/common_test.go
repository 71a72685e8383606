package common

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "info", want: slog.LevelInfo},
		{name: "warn", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "verbose", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerRejectsUnknownFormat(t *testing.T) {
	err := SetupLogger(slog.LevelInfo, "xml")
	require.Error(t, err)

	require.NoError(t, SetupLogger(slog.LevelInfo, "console"))
	require.NoError(t, SetupLogger(slog.LevelInfo, "json"))
}

func TestExpandPath(t *testing.T) {
	home, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	t.Setenv("HOME", home)
	t.Setenv("MARGINALIA_TEST_DIR", "/srv/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain", in: "/var/db/notes.db", want: "/var/db/notes.db"},
		{name: "tilde", in: "~/notes.db", want: filepath.Join(home, "notes.db")},
		{name: "bare tilde", in: "~", want: home},
		{name: "env var", in: "$MARGINALIA_TEST_DIR/notes.db", want: "/srv/data/notes.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
