package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/GoogleCloudPlatform/db-schema-sync/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		enabled zapcore.Level
		muted   zapcore.Level
		wantErr bool
	}{
		{name: "console info", cfg: config.LogConfig{Level: "info", Format: "console"}, enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{name: "json warn", cfg: config.LogConfig{Level: "WARN", Format: "json"}, enabled: zapcore.ErrorLevel, muted: zapcore.InfoLevel},
		{name: "default format", cfg: config.LogConfig{Level: "debug"}, enabled: zapcore.DebugLevel, muted: zapcore.DebugLevel - 1},
		{name: "bad level", cfg: config.LogConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: config.LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.muted))
		})
	}
}
