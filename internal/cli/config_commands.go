// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agrc/agol-shelf/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage agol-shelf configuration",
		Long: `Configuration management commands for agol-shelf.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  set   - Set a single configuration value
  test  - Test portal connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for agol-shelf.

The configuration will be saved to the per-user config directory. Tokens
and passwords are never written to the config file.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := config.GetDefaultConfigPath()

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Println("agol-shelf Configuration Setup")
			fmt.Println("==============================")
			fmt.Println()

			reader := bufio.NewReader(os.Stdin)
			cfg := &config.Config{}

			cfg.Username = promptRequired(reader, "Portal user name (required): ")
			cfg.PortalURL = promptDefault(reader, "Portal URL", "https://www.arcgis.com")

			fmt.Println()
			fmt.Println("Publish Settings (press Enter to skip)")
			fmt.Println("--------------------------------------")
			cfg.SDEPath = promptDefault(reader, "SDE connection file", "")
			cfg.ProjectPath = promptDefault(reader, "ArcGIS Pro project", "")
			cfg.MapName = promptDefault(reader, "Map name", "AGOLUpload")
			cfg.StagingCommand = promptDefault(reader, "Staging worker command", "")
			cfg.MetadataFile = promptDefault(reader, "Metadata JSON file", "")
			cfg.TermsFile = promptDefault(reader, "Terms-of-use text file", "")
			cfg.PublishLogFile = promptDefault(reader, "Publish log CSV", "")

			fmt.Println()
			fmt.Println("Audit Settings")
			fmt.Println("--------------")
			cfg.TagLogFile = promptDefault(reader, "Tag log file", "")

			fmt.Println()
			fmt.Println("Spreadsheet Settings (press Enter to skip)")
			fmt.Println("------------------------------------------")
			cfg.SheetsCredentialsFile = promptDefault(reader, "Google service account JSON", "")
			cfg.StewardshipSheetID = promptDefault(reader, "Stewardship sheet id", "")
			cfg.NewItemsSheetID = promptDefault(reader, "New items sheet id", "")

			fmt.Println()
			fmt.Print("Configure proxy? [y/N]: ")
			proxyInput, _ := reader.ReadString('\n')
			if answer := strings.TrimSpace(strings.ToLower(proxyInput)); answer == "y" || answer == "yes" {
				fmt.Println()
				fmt.Println("Proxy modes: no-proxy, system, basic, ntlm")
				cfg.ProxyMode = promptDefault(reader, "Proxy mode", "system")
				if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
					cfg.ProxyHost = promptDefault(reader, "Proxy host", "")
					cfg.ProxyUser = promptDefault(reader, "Proxy user", "")
					fmt.Println("The proxy password is prompted at runtime, never stored.")
				}
			} else {
				cfg.ProxyMode = "no-proxy"
			}

			if err := config.SaveConfigCSV(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Println()
			fmt.Printf("Configuration saved to: %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Current Configuration")
			fmt.Println("=====================")
			fmt.Printf("Portal URL:          %s\n", cfg.PortalURL)
			fmt.Printf("User name:           %s\n", cfg.Username)
			fmt.Printf("Token:               %s\n", maskToken(cfg.Token))
			fmt.Printf("SDE path:            %s\n", cfg.SDEPath)
			fmt.Printf("Project path:        %s\n", cfg.ProjectPath)
			fmt.Printf("Map name:            %s\n", cfg.MapName)
			fmt.Printf("Staging command:     %s\n", cfg.StagingCommand)
			fmt.Printf("Metadata file:       %s\n", cfg.MetadataFile)
			fmt.Printf("Terms file:          %s\n", cfg.TermsFile)
			fmt.Printf("Publish log:         %s\n", cfg.PublishLogFile)
			fmt.Printf("Tag log:             %s\n", cfg.TagLogFile)
			fmt.Printf("Sheets credentials:  %s\n", cfg.SheetsCredentialsFile)
			fmt.Printf("Stewardship sheet:   %s\n", cfg.StewardshipSheetID)
			fmt.Printf("New items sheet:     %s\n", cfg.NewItemsSheetID)
			fmt.Printf("Proxy mode:          %s\n", cfg.ProxyMode)
			if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
				fmt.Printf("Proxy host:          %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
				fmt.Printf("Proxy user:          %s\n", cfg.ProxyUser)
			}
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a single configuration value",
		Long: `Set one configuration key and save the file.

Keys match the config file: portal_url, username, sde_path, project_path,
map_name, staging_command, metadata_file, terms_file, publish_log, tag_log,
sheets_credentials, stewardship_sheet, new_items_sheet, proxy_mode,
proxy_host, proxy_port, proxy_user, no_proxy, proxy_warmup.

Tokens and passwords are never stored; 'token' and 'proxy_password' are
rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := strings.ToLower(args[0]), args[1]

			configPath := cfgFile
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}

			cfg, err := config.LoadConfigCSV(configPath)
			if err != nil {
				return err
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}

			if err := config.SaveConfigCSV(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("Set %s in %s\n", key, configPath)
			return nil
		},
	}
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "portal_url":
		cfg.PortalURL = value
	case "username":
		cfg.Username = value
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
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("proxy_port must be a number: %w", err)
		}
		cfg.ProxyPort = port
	case "proxy_user":
		cfg.ProxyUser = value
	case "no_proxy":
		cfg.NoProxy = value
	case "proxy_warmup":
		cfg.ProxyWarmup = strings.EqualFold(value, "true") || value == "1"
	case "token", "proxy_password":
		return fmt.Errorf("%s is never stored in the config file", key)
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test portal connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := getAPIClient()
			if err != nil {
				return err
			}

			user, err := client.Self(GetContext())
			if err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			fmt.Printf("Connected to the portal as %s\n", user)
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(config.GetDefaultConfigPath())
			return nil
		},
	}
}

func promptRequired(reader *bufio.Reader, prompt string) string {
	for {
		fmt.Print(prompt)
		input, _ := reader.ReadString('\n')
		if value := strings.TrimSpace(input); value != "" {
			return value
		}
		fmt.Println("  Error: a value is required")
	}
}

func promptDefault(reader *bufio.Reader, prompt, fallback string) string {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", prompt, fallback)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	input, _ := reader.ReadString('\n')
	if value := strings.TrimSpace(input); value != "" {
		return value
	}
	return fallback
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
