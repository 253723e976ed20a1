package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the bot configuration
type Config struct {
	BotToken     string
	AdminUsers   []string
	DBPath       string
	Location     *time.Location
	LogLevel     string
	LogFormat    string
	SettingsFile string
	Debug        bool
}

// LoadConfig loads configuration from the .env file, environment variables
// and command-line flags, in increasing order of precedence
func LoadConfig(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("ticketbot", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "file with KEY=VALUE lines loaded into the environment")
	dbPath := flags.String("db", "", "SQLite database path (env DB_PATH)")
	settingsFile := flags.String("settings", "", "YAML file seeding the event settings on first start (env SETTINGS_FILE)")
	timezone := flags.String("timezone", "", "IANA time zone of the schedule (env TIMEZONE)")
	logLevel := flags.String("log-level", "", "trace, debug, info, warn or error (env LOG_LEVEL)")
	logFormat := flags.String("log-format", "", "json or console (env LOG_FORMAT)")
	debug := flags.Bool("debug", false, "log Telegram API traffic")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Try to load from .env file
	if err := loadEnvFile(*envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", *envFile, err)
	}

	config := &Config{
		BotToken:     os.Getenv("BOT_TOKEN"),
		AdminUsers:   parseCommaSeparated(os.Getenv("ADMIN_USERS")),
		DBPath:       firstNonEmpty(*dbPath, os.Getenv("DB_PATH"), "./tickets.db"),
		LogLevel:     firstNonEmpty(*logLevel, os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:    firstNonEmpty(*logFormat, os.Getenv("LOG_FORMAT"), "json"),
		SettingsFile: firstNonEmpty(*settingsFile, os.Getenv("SETTINGS_FILE")),
		Debug:        *debug,
	}

	loc, err := time.LoadLocation(firstNonEmpty(*timezone, os.Getenv("TIMEZONE"), "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	config.Location = loc

	// Validate configuration
	if config.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	return config, nil
}

// LoadSettingsSeed reads initial event settings from a YAML file. Keys
// missing from the file keep their defaults.
func LoadSettingsSeed(path string, today time.Time) (Settings, error) {
	s := DefaultSettings(today)
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings seed: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse settings seed %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("settings seed %s: %w", path, err)
	}
	return s, nil
}

// loadEnvFile loads environment variables from a .env file. Variables
// already present in the environment win.
func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
			if _, set := os.LookupEnv(key); !set {
				os.Setenv(key, value)
			}
		}
	}

	return scanner.Err()
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimPrefix(strings.TrimSpace(part), "@")
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsAdmin checks if a username is in the list of admin users
func (c *Config) IsAdmin(username string) bool {
	for _, admin := range c.AdminUsers {
		if strings.EqualFold(admin, username) {
			return true
		}
	}
	return false
}
