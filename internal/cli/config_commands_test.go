package cli

import (
	"bufio"
	"strings"
	"testing"

	"github.com/agrc/agol-shelf/internal/config"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", "(not set)"},
		{"short", "abc123", "********"},
		{"long", "0123456789abcdef", "0123...cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskToken(tt.token); got != tt.want {
				t.Errorf("maskToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{"string key", "username", "UtahAGRC", false},
		{"numeric key", "proxy_port", "8080", false},
		{"bad number", "proxy_port", "eight", true},
		{"token rejected", "token", "abc", true},
		{"password rejected", "proxy_password", "hunter2", true},
		{"unknown key", "favorite_color", "blue", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			err := setConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("setConfigValue(%s) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}

	cfg := &config.Config{}
	if err := setConfigValue(cfg, "proxy_port", "8080"); err != nil {
		t.Fatal(err)
	}
	if cfg.ProxyPort != 8080 {
		t.Errorf("proxy_port = %d, want 8080", cfg.ProxyPort)
	}
}

func TestPromptDefault(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     string
	}{
		{"uses input", "custom value\n", "default", "custom value"},
		{"falls back on empty", "\n", "default", "default"},
		{"trims whitespace", "  spaced  \n", "default", "spaced"},
		{"empty fallback stays empty", "\n", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bufio.NewReader(strings.NewReader(tt.input))
			if got := promptDefault(reader, "Value", tt.fallback); got != tt.want {
				t.Errorf("promptDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}
