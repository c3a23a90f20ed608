package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the facilitator service.
type Config struct {
	// Server
	Host        string
	Port        int
	Environment string

	// Signer
	SignerType string
	PrivateKey string

	// EVM RPC endpoints, one per supported network.
	RPCURLBase          string
	RPCURLBaseSepolia   string
	RPCURLAvalanche     string
	RPCURLAvalancheFuji string
	RPCURLXDC           string

	// EVM vault addresses, one per supported network. Empty means
	// settlement goes straight through the asset's
	// transferWithAuthorization rather than a vault depositWithAuthorization.
	VaultAddressBase          string
	VaultAddressBaseSepolia   string
	VaultAddressAvalanche     string
	VaultAddressAvalancheFuji string
	VaultAddressXDC           string

	// Sui full node endpoints and on-chain package IDs, one set per network.
	SuiMainnetRPCURL         string
	SuiMainnetUSDCPackageID  string
	SuiMainnetVaultPackageID string
	SuiTestnetRPCURL         string
	SuiTestnetUSDCPackageID  string
	SuiTestnetVaultPackageID string
	SuiDevnetRPCURL          string
	SuiDevnetUSDCPackageID   string
	SuiDevnetVaultPackageID  string

	// EVM indexer start blocks, one per supported network. Only consulted
	// the first time an indexer runs for that (chain, contract) pair;
	// afterwards the persisted cursor takes over.
	StartBlockBase          int64
	StartBlockBaseSepolia   int64
	StartBlockAvalanche     int64
	StartBlockAvalancheFuji int64
	StartBlockXDC           int64

	// Storage
	DatabaseURL string
	RedisURL    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Ledger behavior
	MaxPendingOrders int

	// Background workers
	BalancerInterval time.Duration
}

// Load loads configuration from environment variables, falling back to a
// .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		SignerType: getEnv("SIGNER_TYPE", "private-key"),
		PrivateKey: getEnv("PRIVATE_KEY", ""),

		RPCURLBase:          getEnv("RPC_URL_BASE", "https://mainnet.base.org"),
		RPCURLBaseSepolia:   getEnv("RPC_URL_BASE_SEPOLIA", "https://sepolia.base.org"),
		RPCURLAvalanche:     getEnv("RPC_URL_AVALANCHE", "https://api.avax.network/ext/bc/C/rpc"),
		RPCURLAvalancheFuji: getEnv("RPC_URL_AVALANCHE_FUJI", "https://api.avax-test.network/ext/bc/C/rpc"),
		RPCURLXDC:           getEnv("RPC_URL_XDC", "https://rpc.xinfin.network"),

		VaultAddressBase:          getEnv("VAULT_ADDRESS_BASE", ""),
		VaultAddressBaseSepolia:   getEnv("VAULT_ADDRESS_BASE_SEPOLIA", ""),
		VaultAddressAvalanche:     getEnv("VAULT_ADDRESS_AVALANCHE", ""),
		VaultAddressAvalancheFuji: getEnv("VAULT_ADDRESS_AVALANCHE_FUJI", ""),
		VaultAddressXDC:           getEnv("VAULT_ADDRESS_XDC", ""),

		StartBlockBase:          getEnvInt64("START_BLOCK_BASE", 0),
		StartBlockBaseSepolia:   getEnvInt64("START_BLOCK_BASE_SEPOLIA", 0),
		StartBlockAvalanche:     getEnvInt64("START_BLOCK_AVALANCHE", 0),
		StartBlockAvalancheFuji: getEnvInt64("START_BLOCK_AVALANCHE_FUJI", 0),
		StartBlockXDC:           getEnvInt64("START_BLOCK_XDC", 0),

		SuiMainnetRPCURL:         getEnv("SUI_MAINNET_GRPC_URL", "https://fullnode.mainnet.sui.io:443"),
		SuiMainnetUSDCPackageID:  getEnv("SUI_MAINNET_USDC_PACKAGE_ID", ""),
		SuiMainnetVaultPackageID: getEnv("SUI_MAINNET_VAULT_PACKAGE_ID", ""),
		SuiTestnetRPCURL:         getEnv("SUI_TESTNET_GRPC_URL", "https://fullnode.testnet.sui.io:443"),
		SuiTestnetUSDCPackageID:  getEnv("SUI_TESTNET_USDC_PACKAGE_ID", ""),
		SuiTestnetVaultPackageID: getEnv("SUI_TESTNET_VAULT_PACKAGE_ID", ""),
		SuiDevnetRPCURL:          getEnv("SUI_DEVNET_GRPC_URL", "https://fullnode.devnet.sui.io:443"),
		SuiDevnetUSDCPackageID:   getEnv("SUI_DEVNET_USDC_PACKAGE_ID", ""),
		SuiDevnetVaultPackageID:  getEnv("SUI_DEVNET_VAULT_PACKAGE_ID", ""),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/ledgerflow"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 1000),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		MaxPendingOrders: getEnvInt("MAX_PENDING_ORDERS", 10),

		BalancerInterval: time.Duration(getEnvInt("BALANCER_INTERVAL_SECONDS", 5)) * time.Second,
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks that the settings required to sign and submit
// transactions are present. Called by the binaries at startup, not by
// Load, so test code can build partial configs.
func (c *Config) Validate() error {
	if c.SignerType != "private-key" {
		return fmt.Errorf("config: unsupported SIGNER_TYPE %q", c.SignerType)
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("config: PRIVATE_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
