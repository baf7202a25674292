// Package cli provides API client helper functions.
package cli

import (
	"fmt"

	"github.com/agrc/agol-shelf/internal/api"
	"github.com/agrc/agol-shelf/internal/config"
	nethttp "github.com/agrc/agol-shelf/internal/http"
)

// loadConfig loads the config file and applies flag and environment
// overrides. This is the one place config resolution happens for commands.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfigCSV(path)
	if err != nil {
		return nil, err
	}

	cfg.MergeWithFlags(token, tokenFile, portalURL, username)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getAPIClient loads configuration and creates a signed-in API client.
// When no token is available from flags, environment, or the token file,
// the user is prompted for their portal password and the fresh token is
// saved for subsequent runs.
func getAPIClient() (*api.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if nethttp.NeedsProxyPassword(cfg) {
		password, err := promptPassword(fmt.Sprintf("Proxy password for %s: ", cfg.ProxyUser))
		if err != nil {
			return nil, nil, err
		}
		cfg.ProxyPassword = password
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}

	ctx := GetContext()
	if cfg.Token == "" {
		password, err := promptPassword(fmt.Sprintf("%s's password: ", cfg.Username))
		if err != nil {
			return nil, nil, err
		}
		if err := client.SignIn(ctx, password); err != nil {
			return nil, nil, err
		}
		if err := config.WriteTokenFile(config.GetDefaultTokenPath(), client.Token()); err != nil {
			GetLogger().Warn().Err(err).Msg("Could not save token file")
		}
	} else {
		// verify a stale token before the first real request
		if _, err := client.Self(ctx); err != nil {
			return nil, nil, fmt.Errorf("token check failed: %w", err)
		}
	}

	return client, cfg, nil
}
