package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Ledger   LedgerConfig
	Solana   SolanaConfig
	Redis    RedisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// LedgerConfig holds the genesis identities for the program config. When
// OracleAuthority is set and no config row exists yet, main bootstraps the
// singleton from these values.
type LedgerConfig struct {
	ProgramID       string
	Authority       string
	OracleAuthority string
	VRFAuthority    string
	Treasury        string
	CurrencyMint    string
}

// SolanaConfig holds RPC settings for deposit verification
type SolanaConfig struct {
	Network string
}

// RedisConfig holds the optional distributed-lock backend
type RedisConfig struct {
	Addr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "opinion_market"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ledger: LedgerConfig{
			ProgramID:       getEnv("PROGRAM_ID", "2NaUpg4jEZVGDBmmuKYLdsAfSGKwHxjghhfgVpQvZJYu"),
			Authority:       getEnv("LEDGER_AUTHORITY", ""),
			OracleAuthority: getEnv("ORACLE_AUTHORITY", ""),
			VRFAuthority:    getEnv("VRF_AUTHORITY", ""),
			Treasury:        getEnv("TREASURY_ADDRESS", ""),
			CurrencyMint:    getEnv("CURRENCY_MINT", ""),
		},
		Solana: SolanaConfig{
			Network: getEnv("SOLANA_NETWORK", "devnet"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Ledger.ProgramID == "" {
		return nil, fmt.Errorf("PROGRAM_ID is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
