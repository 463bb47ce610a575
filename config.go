package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"postfeed/auth"
	"postfeed/domain"
)

// Config holds everything the app needs to start. It is read from a
// .config.json file, values set in the environment (or a .env file) win.
type Config struct {
	Port      int                         `json:"port"`
	Env       string                      `json:"env"`
	Pepper    string                      `json:"pepper"`
	HMACKey   string                      `json:"hmac_key"`
	CSRFKey   string                      `json:"csrf_key"`
	ClientURL string                      `json:"client_url"`
	SiteURL   string                      `json:"site_url"`
	ImagesDir string                      `json:"images_dir"`
	Database  PostgresConfig              `json:"database"`
	OAuth     map[string]auth.Credentials `json:"oauth"`
}

// PostgresConfig describes the database connection. URL, when set, is used
// as is and the other fields are ignored.
type PostgresConfig struct {
	URL      string `json:"url"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ConnectionInfo returns the connection string for the postgres driver.
func (pc PostgresConfig) ConnectionInfo() string {
	if pc.URL != "" {
		return pc.URL
	}
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// DefaultConfig returns the config of a local development setup.
func DefaultConfig() Config {
	return Config{
		Port:      1111,
		Env:       "dev",
		Pepper:    "secret-random-string",
		HMACKey:   "secret-hmac-key",
		ClientURL: "http://localhost:3000",
		SiteURL:   "http://localhost:1111",
		ImagesDir: "images",
		Database:  DefaultPostgresConfig(),
	}
}

// DefaultPostgresConfig returns the connection of a local development database.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "",
		Name:     "postfeed",
	}
}

// LoadConfig loads the config. If required is true a .config.json file must
// exist, otherwise the development defaults are used when there is none.
func LoadConfig(required bool) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("err loading .env: %w", err)
	}
	return loadConfig(".config.json", required, os.LookupEnv)
}

func loadConfig(path string, required bool, lookup func(string) (string, bool)) (Config, error) {
	c := DefaultConfig()
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&c); err != nil {
			return Config{}, fmt.Errorf("err decoding %s: %w", path, err)
		}
		log.Printf("Successfully loaded %s", path)
	case required:
		return Config{}, fmt.Errorf("%s is required in production: %w", path, err)
	}

	if err := applyEnv(&c, lookup); err != nil {
		return Config{}, err
	}
	if c.IsProd() && (c.Pepper == DefaultConfig().Pepper || c.HMACKey == DefaultConfig().HMACKey) {
		return Config{}, errors.New("pepper and hmac_key must be set in production")
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return Config{}, errors.New("csrf_key must be 32 bytes long")
	}
	return c, nil
}

// oauthEnv maps the oauth providers to the prefix of their credential variables.
var oauthEnv = map[string]string{
	domain.ProviderGithub:  "GITHUB",
	domain.ProviderGoogle:  "GOOGLE",
	domain.ProviderDiscord: "DISCORD",
}

// applyEnv overrides config values with the ones set in the environment.
func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ENV":          &c.Env,
		"DATABASE_URL": &c.Database.URL,
		"PEPPER":       &c.Pepper,
		"HMAC_KEY":     &c.HMACKey,
		"CSRF_KEY":     &c.CSRFKey,
		"CLIENT_URL":   &c.ClientURL,
		"SITE_URL":     &c.SiteURL,
		"IMAGES_DIR":   &c.ImagesDir,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid PORT %q", v)
		}
		c.Port = port
	}

	for provider, prefix := range oauthEnv {
		creds := c.OAuth[provider]
		if v, ok := lookup(prefix + "_CLIENT_ID"); ok && v != "" {
			creds.ClientID = v
		}
		if v, ok := lookup(prefix + "_CLIENT_SECRET"); ok && v != "" {
			creds.ClientSecret = v
		}
		if creds.ClientID == "" && creds.ClientSecret == "" {
			continue
		}
		if c.OAuth == nil {
			c.OAuth = make(map[string]auth.Credentials)
		}
		c.OAuth[provider] = creds
	}
	return nil
}
