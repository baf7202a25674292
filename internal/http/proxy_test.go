package http

import (
	nethttp "net/http"
	"net/url"
	"testing"

	"github.com/agrc/agol-shelf/internal/config"
)

func TestBuildProxyURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{
			name: "host and port",
			cfg:  &config.Config{ProxyHost: "proxy.utah.gov", ProxyPort: 3128},
			want: "http://proxy.utah.gov:3128",
		},
		{
			name: "default port",
			cfg:  &config.Config{ProxyHost: "proxy.utah.gov"},
			want: "http://proxy.utah.gov:8080",
		},
		{
			name: "credentials embedded",
			cfg:  &config.Config{ProxyHost: "p", ProxyPort: 80, ProxyUser: "u", ProxyPassword: "pw"},
			want: "http://u:pw@p:80",
		},
		{
			name: "user without password omitted",
			cfg:  &config.Config{ProxyHost: "p", ProxyPort: 80, ProxyUser: "u"},
			want: "http://p:80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildProxyURL(tt.cfg).String(); got != tt.want {
				t.Errorf("buildProxyURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.utah.gov:3128")

	fn := proxyFuncWithBypass(proxyURL, "arcgis.com")

	bypassed, _ := nethttp.NewRequest("GET", "https://www.arcgis.com/sharing/rest/info", nil)
	if result, err := fn(bypassed); err != nil || result != nil {
		t.Errorf("expected bypass for arcgis.com, got %v, %v", result, err)
	}

	proxied, _ := nethttp.NewRequest("GET", "https://example.com/", nil)
	result, err := fn(proxied)
	if err != nil || result == nil || result.Host != "proxy.utah.gov:3128" {
		t.Errorf("expected proxy for example.com, got %v, %v", result, err)
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want bool
	}{
		{"no proxy", &config.Config{ProxyMode: "no-proxy"}, false},
		{"system", &config.Config{ProxyMode: "system", ProxyUser: "u"}, false},
		{"basic missing password", &config.Config{ProxyMode: "basic", ProxyUser: "u"}, true},
		{"ntlm missing password", &config.Config{ProxyMode: "ntlm", ProxyUser: "u"}, true},
		{"basic complete", &config.Config{ProxyMode: "basic", ProxyUser: "u", ProxyPassword: "p"}, false},
		{"basic anonymous", &config.Config{ProxyMode: "basic"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsProxyPassword(tt.cfg); got != tt.want {
				t.Errorf("NeedsProxyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
