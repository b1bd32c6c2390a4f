package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"family-lists-go/pkg/logger"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML file named by CONFIG_FILE. Its values sit
// below both the process environment and .env.
type fileConfig struct {
	Env  string `yaml:"env"`
	HTTP struct {
		Port        string   `yaml:"port"`
		PublicURL   string   `yaml:"public_url"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"http"`
	Storage string `yaml:"storage"`
	Uploads struct {
		Dir      string `yaml:"dir"`
		MaxBytes int64  `yaml:"max_bytes"`
	} `yaml:"uploads"`
	Cache struct {
		PublicListsTTL string `yaml:"public_lists_ttl"`
	} `yaml:"cache"`
	DB struct {
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"db"`
	Auth struct {
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTL     string `yaml:"token_ttl"`
		Skip         *bool  `yaml:"skip"`
		MockUserID   string `yaml:"mock_user_id"`
		MockUserName string `yaml:"mock_user_name"`
	} `yaml:"auth"`
}

func loadConfigFile(path string, log logger.Logger) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	loaded, skipped, err := setUnset(file.env())
	if err != nil {
		return err
	}
	log.Info("config: loaded file", "path", path, "count", loaded, "overridden", skipped)
	return nil
}

// env flattens the file into the variable names Load reads.
func (f fileConfig) env() map[string]string {
	values := map[string]string{
		"ENV":                    f.Env,
		"HTTP_PORT":              f.HTTP.Port,
		"PUBLIC_URL":             f.HTTP.PublicURL,
		"CORS_ORIGINS":           strings.Join(f.HTTP.CORSOrigins, ","),
		"STORAGE":                f.Storage,
		"UPLOADS_DIR":            f.Uploads.Dir,
		"PUBLIC_LISTS_CACHE_TTL": f.Cache.PublicListsTTL,
		"DB_DSN":                 f.DB.DSN,
		"DB_HOST":                f.DB.Host,
		"DB_PORT":                f.DB.Port,
		"DB_USER":                f.DB.User,
		"DB_PASSWORD":            f.DB.Password,
		"DB_NAME":                f.DB.Name,
		"DB_SSLMODE":             f.DB.SSLMode,
		"AUTH_JWT_SECRET":        f.Auth.JWTSecret,
		"AUTH_TOKEN_TTL":         f.Auth.TokenTTL,
		"AUTH_MOCK_USER_ID":      f.Auth.MockUserID,
		"AUTH_MOCK_USER_NAME":    f.Auth.MockUserName,
	}
	if f.Uploads.MaxBytes > 0 {
		values["UPLOADS_MAX_BYTES"] = strconv.FormatInt(f.Uploads.MaxBytes, 10)
	}
	if f.Auth.Skip != nil {
		values["AUTH_SKIP"] = strconv.FormatBool(*f.Auth.Skip)
	}

	for key, value := range values {
		if value == "" {
			delete(values, key)
		}
	}
	return values
}
