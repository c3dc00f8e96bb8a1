package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveManagerURL_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		ctx        URLResolutionContext
		wantURL    string
		wantSource string
	}{
		{
			name:       "nothing set uses default",
			ctx:        URLResolutionContext{},
			wantURL:    "http://localhost:9681",
			wantSource: "default",
		},
		{
			name:       "config file only",
			ctx:        URLResolutionContext{ConfigURL: "http://file:1", ConfigPath: "/etc/batchd/client.yaml"},
			wantURL:    "http://file:1",
			wantSource: "config:/etc/batchd/client.yaml",
		},
		{
			name:       "env only",
			ctx:        URLResolutionContext{EnvURL: "http://env:2"},
			wantURL:    "http://env:2",
			wantSource: "env:BATCH_MANAGER_URL",
		},
		{
			name:       "env beats config file",
			ctx:        URLResolutionContext{EnvURL: "http://env:2", ConfigURL: "http://file:1"},
			wantURL:    "http://env:2",
			wantSource: "env:BATCH_MANAGER_URL",
		},
		{
			name:       "flag beats env and file",
			ctx:        URLResolutionContext{FlagURL: "http://flag:3", EnvURL: "http://env:2", ConfigURL: "http://file:1"},
			wantURL:    "http://flag:3",
			wantSource: "cli:--url",
		},
		{
			name:       "config present without manager_url uses default",
			ctx:        URLResolutionContext{ConfigPath: "/home/u/.config/batchd/client.yaml"},
			wantURL:    DefaultManagerURL,
			wantSource: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveManagerURL(tt.ctx)
			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestConfig_ResolveManagerURL_ReadsEnv(t *testing.T) {
	cfg := &Config{ManagerURL: "http://file:1", Path: "client.yaml"}

	t.Setenv(EnvManagerURL, "")
	assert.Equal(t, "http://file:1", cfg.ResolveManagerURL("").URL)

	t.Setenv(EnvManagerURL, "http://env:2")
	assert.Equal(t, "http://env:2", cfg.ResolveManagerURL("").URL)
	assert.Equal(t, "http://flag:3", cfg.ResolveManagerURL("http://flag:3").URL)
}

func TestValidateManagerURL(t *testing.T) {
	assert.NoError(t, ValidateManagerURL("http://localhost:9681"))
	assert.NoError(t, ValidateManagerURL("https://batch.example.com/api"))
	assert.Error(t, ValidateManagerURL("localhost:9681"))
	assert.Error(t, ValidateManagerURL("http://"))
	assert.Error(t, ValidateManagerURL("::bad"))
}
