package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. These are populated at startup by the LoadConfig function.
var (
	// OwnerAddress is the administrator account allowed to call privileged
	// vault operations.
	OwnerAddress string

	// VaultAddress is the vault's own account on the asset book.
	VaultAddress string

	// AssetID is the single underlying asset this vault manages.
	AssetID string

	// Mode selects the strategy backend: "sim" wires simulated strategies.
	Mode string

	// SimStrategyCount is how many simulated strategies to create in sim
	// mode.
	SimStrategyCount int

	// WebPort is the HTTP API port.
	WebPort string

	// LogFile is an optional path; when set, logs are written there in
	// addition to the console.
	LogFile string

	// Database connection settings.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. Variables without a documented default are required.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	OwnerAddress, err = getEnv("SVM_OWNER_ADDRESS")
	if err != nil {
		return err
	}

	VaultAddress, err = getEnv("SVM_VAULT_ADDRESS")
	if err != nil {
		return err
	}

	AssetID, err = getEnv("SVM_ASSET_ID")
	if err != nil {
		return err
	}

	Mode = os.Getenv("SVM_MODE")

	SimStrategyCount = getEnvAsIntDefault("SVM_SIM_STRATEGIES", 2)

	WebPort = os.Getenv("SVM_WEB_PORT")
	if WebPort == "" {
		WebPort = "8080"
	}

	LogFile = os.Getenv("SVM_LOG_FILE")

	DBHost = getEnvDefault("SVM_DB_HOST", "localhost")
	DBPort = getEnvAsIntDefault("SVM_DB_PORT", 5432)
	DBUser = getEnvDefault("SVM_DB_USER", "postgres")
	DBPassword, err = getEnv("SVM_DB_PASSWORD")
	if err != nil {
		return err
	}
	DBName = getEnvDefault("SVM_DB_NAME", "svm")
	DBSSLMode = getEnvDefault("SVM_DB_SSLMODE", "disable")

	log.Debug().
		Str("Owner", OwnerAddress).
		Str("Vault", VaultAddress).
		Str("Asset", AssetID).
		Str("Mode", Mode).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvDefault retrieves a string environment variable with a fallback.
func getEnvDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsIntDefault retrieves an environment variable as an int, falling
// back to the default when unset or invalid.
func getEnvAsIntDefault(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid integer environment variable, using default")
		return defaultValue
	}
	return value
}
