package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/chatrec/config"
)

func TestNewDispatch(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"demo", &config.Config{Platform: config.PlatformDemo, Count: 5}},
		{"discord", &config.Config{Platform: config.PlatformDiscord, Token: "t", Channel: "123", Limit: 10}},
		{"slack", &config.Config{Platform: config.PlatformSlack, Token: "t", Channel: "C1", Limit: 10}},
		{"irc", &config.Config{Platform: config.PlatformIRC, Server: "irc.example.com", Port: 6667, Nick: "rec_bot", Channel: "general", Duration: time.Minute}},
		{"twitch", &config.Config{Platform: config.PlatformTwitch, Channel: "general", Duration: time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.name, src.Platform())
		})
	}
}

func TestNewUnknownPlatform(t *testing.T) {
	_, err := New(&config.Config{Platform: "matrix"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source")
}
