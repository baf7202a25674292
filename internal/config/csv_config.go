// Package config provides configuration management for agol-shelf.
package config

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the publish and audit pipelines need. The
// original deployments supplied these through a hand-edited settings module;
// here they live in a key,value CSV plus environment overrides.
type Config struct {
	// Portal settings
	PortalURL string // sharing API host
	Username  string // AGOL org account that owns the published layers
	Token     string // runtime token; never persisted to the config file

	// Publish pipeline paths
	SDEPath        string // source .sde connection file
	ProjectPath    string // ArcGIS Pro project used for staging
	MapName        string // map within the project
	StagingCommand string // desktop-GIS worker executable (describe/stage verbs)
	MetadataFile   string // JSON lookup of per-dataset metadata
	TermsFile      string // generic terms-of-use text
	PublishLogFile string // append-only CSV publish log

	// Audit settings
	TagLogFile string // plain-text record of tag fixer activity

	// Spreadsheet sinks
	SheetsCredentialsFile string // Google service-account JSON
	StewardshipSheetID    string
	NewItemsSheetID       string

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool
}

// LoadConfigCSV loads configuration from a CSV file.
// CSV format: key,value pairs. A .env file next to the working directory is
// loaded first so the config file can stay free of credentials.
func LoadConfigCSV(path string) (*Config, error) {
	// Best-effort: .env holds machine-local values like the sheets
	// credential path on scheduled-task boxes
	_ = godotenv.Load()

	cfg := &Config{
		PortalURL: "https://www.arcgis.com",
		MapName:   "AGOLUpload",
		ProxyMode: "no-proxy",
	}

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 {
			// Skip header row if it looks like a header
			if len(record) >= 2 && strings.ToLower(record[0]) == "key" {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}

		key := strings.TrimSpace(strings.ToLower(record[0]))
		value := strings.TrimSpace(record[1])

		switch key {
		case "portal_url":
			cfg.PortalURL = value
		case "username":
			cfg.Username = value
		case "token":
			// Tokens expire within hours and should never be written to
			// the config file; generate one at runtime instead
			if value != "" {
				log.Printf("[WARN] token in config file is ignored - sign in at runtime or use a token file")
			}
		case "sde_path":
			cfg.SDEPath = value
		case "project_path":
			cfg.ProjectPath = value
		case "map_name":
			cfg.MapName = value
		case "staging_command":
			cfg.StagingCommand = value
		case "metadata_file":
			cfg.MetadataFile = value
		case "terms_file":
			cfg.TermsFile = value
		case "publish_log":
			cfg.PublishLogFile = value
		case "tag_log":
			cfg.TagLogFile = value
		case "sheets_credentials":
			cfg.SheetsCredentialsFile = value
		case "stewardship_sheet":
			cfg.StewardshipSheetID = value
		case "new_items_sheet":
			cfg.NewItemsSheetID = value
		case "proxy_mode":
			cfg.ProxyMode = value
		case "proxy_host":
			cfg.ProxyHost = value
		case "proxy_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProxyPort = v
			}
		case "proxy_user":
			cfg.ProxyUser = value
		case "proxy_password":
			// Proxy passwords are entered at runtime via secure prompt
			if value != "" {
				log.Printf("[WARN] proxy_password in config file is ignored for security - use secure prompt at runtime")
			}
		case "no_proxy":
			cfg.NoProxy = value
		case "proxy_warmup":
			cfg.ProxyWarmup = strings.ToLower(value) == "true" || value == "1"
		}
	}

	return cfg, nil
}

// SaveConfigCSV saves configuration to a CSV file.
// CSV format: key,value pairs. Token and proxy password are intentionally
// never written.
func SaveConfigCSV(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	records := [][]string{
		{"portal_url", cfg.PortalURL},
		{"username", cfg.Username},
		{"sde_path", cfg.SDEPath},
		{"project_path", cfg.ProjectPath},
		{"map_name", cfg.MapName},
		{"staging_command", cfg.StagingCommand},
		{"metadata_file", cfg.MetadataFile},
		{"terms_file", cfg.TermsFile},
		{"publish_log", cfg.PublishLogFile},
		{"tag_log", cfg.TagLogFile},
		{"sheets_credentials", cfg.SheetsCredentialsFile},
		{"stewardship_sheet", cfg.StewardshipSheetID},
		{"new_items_sheet", cfg.NewItemsSheetID},
		{"proxy_mode", cfg.ProxyMode},
		{"proxy_host", cfg.ProxyHost},
		{"proxy_port", strconv.Itoa(cfg.ProxyPort)},
		{"proxy_user", cfg.ProxyUser},
		{"no_proxy", cfg.NoProxy},
		{"proxy_warmup", strconv.FormatBool(cfg.ProxyWarmup)},
	}

	for _, record := range records {
		// Only write non-empty values to keep file clean
		if record[1] != "" && record[1] != "0" && record[1] != "false" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	return nil
}

// MergeWithFlags merges config with command-line flags and environment
// variables.
//
// Token priority (highest to lowest):
//  1. --token flag
//  2. AGOL_TOKEN environment variable
//  3. --token-file flag (explicit token file path)
//  4. Default token file (~/.config/agol-shelf/token)
//
// A missing token is not an error here; commands that need one prompt for a
// portal sign-in instead.
func (c *Config) MergeWithFlags(token, tokenFilePath, portalURL, username string) {
	var tokenSources []string

	// 0. Default token file (lowest priority - created by 'config init')
	var defaultTokenKey string
	if defaultTokenPath := GetDefaultTokenPath(); defaultTokenPath != "" {
		if t, err := ReadTokenFile(defaultTokenPath); err == nil && t != "" {
			defaultTokenKey = t
			tokenSources = append(tokenSources, fmt.Sprintf("default token file (%s)", defaultTokenPath))
		}
	}

	// 1. Explicit token file (--token-file flag)
	var explicitTokenKey string
	if tokenFilePath != "" {
		if t, err := ReadTokenFile(tokenFilePath); err == nil && t != "" {
			explicitTokenKey = t
			tokenSources = append(tokenSources, "--token-file flag")
		}
	}

	// 2. Environment variable
	envToken := os.Getenv("AGOL_TOKEN")
	if envToken != "" {
		tokenSources = append(tokenSources, "AGOL_TOKEN environment variable")
	}

	// 3. Command-line flag (highest priority)
	if token != "" {
		tokenSources = append(tokenSources, "--token flag")
	}

	if len(tokenSources) > 1 {
		log.Printf("[WARN] Multiple token sources detected: %v", tokenSources)
		log.Printf("[WARN] Token precedence (highest to lowest): --token > AGOL_TOKEN env > --token-file > default token file")
		log.Printf("[WARN] Using: %s", tokenSources[len(tokenSources)-1])
	}

	// Apply token in order of priority (lowest to highest, each overwriting
	// the previous)
	if defaultTokenKey != "" {
		c.Token = defaultTokenKey
	}
	if explicitTokenKey != "" {
		c.Token = explicitTokenKey
	}
	if envToken != "" {
		c.Token = envToken
	}
	if token != "" {
		c.Token = token
	}

	// Environment overrides
	if envURL := os.Getenv("AGOL_PORTAL_URL"); envURL != "" {
		c.PortalURL = envURL
	}
	if envUser := os.Getenv("AGOL_USERNAME"); envUser != "" {
		c.Username = envUser
	}
	if envCreds := os.Getenv("SHEETS_CREDENTIALS"); envCreds != "" && c.SheetsCredentialsFile == "" {
		c.SheetsCredentialsFile = envCreds
	}

	// Command-line flags (highest priority)
	if portalURL != "" {
		c.PortalURL = portalURL
	}
	if username != "" {
		c.Username = username
	}

	// Ensure HTTPS scheme
	if c.PortalURL != "" && !strings.HasPrefix(c.PortalURL, "http") {
		c.PortalURL = "https://" + c.PortalURL
	}
}

// Validate checks if the configuration is valid for portal work.
func (c *Config) Validate() error {
	if c.PortalURL == "" {
		return fmt.Errorf("portal URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required (set via config file, AGOL_USERNAME env var, or --username flag)")
	}
	return nil
}

// ValidatePublish checks the additional settings the publish pipeline needs.
func (c *Config) ValidatePublish() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SDEPath == "" {
		return fmt.Errorf("sde_path is required for publishing")
	}
	if c.StagingCommand == "" {
		return fmt.Errorf("staging_command is required for publishing")
	}
	if c.MetadataFile == "" {
		return fmt.Errorf("metadata_file is required for publishing")
	}
	return nil
}
