package env

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{name: "lower case", input: "prod", want: Prod},
		{name: "upper case with spaces", input: "  DEV ", want: Dev},
		{name: "local", input: "local", want: Local},
		{name: "unknown", input: "staging", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Prod.SlogLevel())
	assert.Equal(t, slog.LevelDebug, Dev.SlogLevel())
	assert.Equal(t, slog.LevelDebug, Test.SlogLevel())
}

func TestSetMode_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { SetMode(Mode("nope")) })
}
