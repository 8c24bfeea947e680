package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Treasury  TreasuryConfig  `json:"treasury"`
	Registry  RegistryConfig  `json:"registry"`
	Financing FinancingConfig `json:"financing"`
	Security  SecurityConfig  `json:"security"`
	Logging   LoggingConfig   `json:"logging"`
	Workers   WorkersConfig   `json:"workers"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MaxConnections int    `json:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

// TreasuryConfig points at the value-transfer service and the clock oracle
type TreasuryConfig struct {
	BaseURL        string        `json:"base_url"`
	APIKey         string        `json:"api_key"`
	Timeout        time.Duration `json:"timeout"`
	ClockURL       string        `json:"clock_url"`
	UseSystemClock bool          `json:"use_system_clock"`
}

// RegistryConfig points at the digital-asset registry
type RegistryConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// FinancingConfig holds the financing-core constants
type FinancingConfig struct {
	StablecoinMint       string `json:"stablecoin_mint"`
	StablecoinDecimals   int    `json:"stablecoin_decimals"`
	CreditPointScale     uint64 `json:"credit_point_scale"`
	CompletionScoreDelta int8   `json:"completion_score_delta"`
	OverdueGraceSeconds  int64  `json:"overdue_grace_seconds"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// WorkersConfig schedules the background jobs
type WorkersConfig struct {
	OverdueScanSchedule string `json:"overdue_scan_schedule"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "partpay_portal",
			SSLMode: "disable",
		},
		Treasury: TreasuryConfig{
			Timeout: 10 * time.Second,
		},
		Registry: RegistryConfig{
			Timeout: 10 * time.Second,
		},
		Financing: FinancingConfig{
			StablecoinDecimals:   6,
			CreditPointScale:     100,
			CompletionScoreDelta: 10,
			OverdueGraceSeconds:  3 * 86_400,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Workers: WorkersConfig{
			OverdueScanSchedule: "0 * * * *",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if url := os.Getenv("TREASURY_BASE_URL"); url != "" {
		config.Treasury.BaseURL = url
	}
	if key := os.Getenv("TREASURY_API_KEY"); key != "" {
		config.Treasury.APIKey = key
	}
	if url := os.Getenv("REGISTRY_BASE_URL"); url != "" {
		config.Registry.BaseURL = url
	}
	if key := os.Getenv("REGISTRY_API_KEY"); key != "" {
		config.Registry.APIKey = key
	}
	if mint := os.Getenv("STABLECOIN_MINT"); mint != "" {
		config.Financing.StablecoinMint = mint
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StablecoinMintID parses the configured mint identifier, falling back to the
// nil UUID when unset so development setups can run without a treasury.
func (c *FinancingConfig) StablecoinMintID() uuid.UUID {
	id, err := uuid.Parse(c.StablecoinMint)
	if err != nil {
		return uuid.Nil
	}
	return id
}
