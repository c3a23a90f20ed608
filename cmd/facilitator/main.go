package main

import (
	"context"
	"log"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/longcipher/ledgerflow/internal/cache"
	"github.com/longcipher/ledgerflow/internal/config"
	"github.com/longcipher/ledgerflow/internal/ledger"
	"github.com/longcipher/ledgerflow/internal/server"
	"github.com/longcipher/ledgerflow/x402"
	"github.com/longcipher/ledgerflow/x402/mechanisms/evm"
	"github.com/longcipher/ledgerflow/x402/mechanisms/sui"
)

// usdcDomain is the EIP-712 domain name/version USDC was deployed under on
// every EVM network this facilitator serves. It is the same across chains
// because Circle redeploys the same contract version everywhere.
const (
	usdcDomainName    = "USD Coin"
	usdcDomainVersion = "2"
)

// evmChainIDs maps each supported EVM network to its chain ID; these do
// not change, so they are not worth exposing as environment variables.
var evmChainIDs = map[x402.Network]int64{
	x402.NetworkBase:          8453,
	x402.NetworkBaseSepolia:   84532,
	x402.NetworkAvalanche:     43114,
	x402.NetworkAvalancheFuji: 43113,
	x402.NetworkXDCMainnet:    50,
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}

	log.Printf("Starting LedgerFlow facilitator")
	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Port: %d", cfg.Port)

	ctx := context.Background()

	db, err := ledger.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("fatal: connect database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Printf("fatal: run migrations: %v", err)
		os.Exit(1)
	}

	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Printf("fatal: connect redis: %v", err)
		os.Exit(1)
	}

	nonces := ledger.NewNonceStore(ctx, db)

	facilitator := x402.NewFacilitator()

	evmAdapter, err := buildEvmAdapter(ctx, cfg, nonces)
	if err != nil {
		log.Printf("fatal: build evm adapter: %v", err)
		os.Exit(1)
	}
	facilitator.Register(evmAdapter)

	suiAdapter, err := buildSuiAdapter(cfg, nonces)
	if err != nil {
		log.Printf("fatal: build sui adapter: %v", err)
		os.Exit(1)
	}
	facilitator.Register(suiAdapter)

	srv := server.New(facilitator, redisClient, db, cfg)
	srv.Start()
}

// buildEvmAdapter wires one evm.Entry per configured EVM network. A
// network whose RPC URL is empty is skipped rather than failing startup;
// config.Load fills every EVM RPC URL with a public default, so with the
// configuration it loads every EVM network is wired.
func buildEvmAdapter(ctx context.Context, cfg *config.Config, nonces x402.NonceStore) (*evm.Adapter, error) {
	type networkSpec struct {
		network      x402.Network
		rpcURL       string
		vaultAddress string
	}
	specs := []networkSpec{
		{x402.NetworkBase, cfg.RPCURLBase, cfg.VaultAddressBase},
		{x402.NetworkBaseSepolia, cfg.RPCURLBaseSepolia, cfg.VaultAddressBaseSepolia},
		{x402.NetworkAvalanche, cfg.RPCURLAvalanche, cfg.VaultAddressAvalanche},
		{x402.NetworkAvalancheFuji, cfg.RPCURLAvalancheFuji, cfg.VaultAddressAvalancheFuji},
		{x402.NetworkXDCMainnet, cfg.RPCURLXDC, cfg.VaultAddressXDC},
	}

	var entries []evm.Entry
	for _, spec := range specs {
		if spec.rpcURL == "" {
			continue
		}

		signer, err := evm.NewSigner(ctx, cfg.PrivateKey, spec.rpcURL)
		if err != nil {
			return nil, err
		}

		networkConfig := evm.NetworkConfig{
			Network:      spec.network,
			ChainID:      big.NewInt(evmChainIDs[spec.network]),
			RPCURL:       spec.rpcURL,
			AssetName:    usdcDomainName,
			AssetVersion: usdcDomainVersion,
		}
		if spec.vaultAddress != "" {
			addr := common.HexToAddress(spec.vaultAddress)
			networkConfig.VaultAddress = &addr
		}

		entries = append(entries, evm.Entry{Config: networkConfig, Signer: signer})
		log.Printf("evm: serving %s via %s", spec.network, spec.rpcURL)
	}

	return evm.NewAdapter(nonces, entries...)
}

// buildSuiAdapter wires one sui.Entry per configured Sui network.
func buildSuiAdapter(cfg *config.Config, nonces x402.NonceStore) (*sui.Adapter, error) {
	type networkSpec struct {
		network        x402.Network
		rpcURL         string
		vaultPackageID string
	}
	specs := []networkSpec{
		{x402.NetworkSuiMainnet, cfg.SuiMainnetRPCURL, cfg.SuiMainnetVaultPackageID},
		{x402.NetworkSuiTestnet, cfg.SuiTestnetRPCURL, cfg.SuiTestnetVaultPackageID},
		{x402.NetworkSuiDevnet, cfg.SuiDevnetRPCURL, cfg.SuiDevnetVaultPackageID},
	}

	var entries []sui.Entry
	for _, spec := range specs {
		if spec.rpcURL == "" {
			continue
		}

		client := sui.NewHTTPClient(spec.rpcURL)
		networkConfig := sui.NetworkConfig{
			Network:        spec.network,
			RPCURL:         spec.rpcURL,
			VaultPackageID: spec.vaultPackageID,
			GasBudget:      50_000_000,
		}

		entries = append(entries, sui.Entry{Config: networkConfig, Client: client})
		log.Printf("sui: serving %s via %s", spec.network, spec.rpcURL)
	}

	return sui.NewAdapter(nonces, entries...)
}
