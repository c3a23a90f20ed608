package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TransactionReceipt is the subset of an on-chain receipt the adapter
// cares about.
type TransactionReceipt struct {
	Status      uint64
	BlockNumber uint64
	TxHash      string
}

// Signer is everything an EVM adapter needs to read and write chain state
// on behalf of the facilitator's own key. One Signer is bound to one RPC
// endpoint/chain.
type Signer interface {
	Address() common.Address
	ChainID() *big.Int
	ReadContract(ctx context.Context, contractAddress common.Address, abiJSON string, method string, args ...interface{}) (interface{}, error)
	WriteContract(ctx context.Context, contractAddress common.Address, abiJSON string, method string, args ...interface{}) (string, error)
	WaitForTransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error)
	GetBalance(ctx context.Context, address common.Address, tokenAddress common.Address) (*big.Int, error)
}

// clientSigner is the ethclient-backed Signer implementation: it dials one
// RPC endpoint, holds the facilitator's private key, and exposes plain
// read/write contract calls.
type clientSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	client     *ethclient.Client
	chainID    *big.Int
}

// NewSigner connects to rpcURL and derives the facilitator's address from
// privateKeyHex ("0x"-prefix optional).
func NewSigner(ctx context.Context, privateKeyHex, rpcURL string) (Signer, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("evm: parse private key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm: fetch chain id: %w", err)
	}

	return &clientSigner{
		privateKey: privateKey,
		address:    address,
		client:     client,
		chainID:    chainID,
	}, nil
}

func (s *clientSigner) Address() common.Address { return s.address }
func (s *clientSigner) ChainID() *big.Int       { return s.chainID }

func (s *clientSigner) ReadContract(ctx context.Context, contractAddress common.Address, abiJSON string, method string, args ...interface{}) (interface{}, error) {
	contractABI, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("evm: parse abi: %w", err)
	}

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("evm: pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &contractAddress, Data: data}
	result, err := s.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("evm: call %s: %w", method, err)
	}

	if len(result) == 0 {
		switch method {
		case "authorizationState":
			return false, nil
		case "balanceOf", "allowance":
			return big.NewInt(0), nil
		default:
			return nil, fmt.Errorf("evm: empty result from %s", method)
		}
	}

	methodObj, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("evm: method %s not in abi", method)
	}
	output, err := methodObj.Outputs.Unpack(result)
	if err != nil {
		return nil, fmt.Errorf("evm: unpack %s: %w", method, err)
	}
	if len(output) == 0 {
		return nil, nil
	}
	return output[0], nil
}

func (s *clientSigner) WriteContract(ctx context.Context, contractAddress common.Address, abiJSON string, method string, args ...interface{}) (string, error) {
	contractABI, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return "", fmt.Errorf("evm: parse abi: %w", err)
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("evm: pack %s: %w", method, err)
	}
	return s.sendRaw(ctx, contractAddress, data)
}

func (s *clientSigner) sendRaw(ctx context.Context, to common.Address, data []byte) (string, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", fmt.Errorf("evm: fetch nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("evm: fetch gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), 300000, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("evm: sign tx: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		if strings.Contains(err.Error(), "already known") {
			return signedTx.Hash().Hex(), nil
		}
		return "", fmt.Errorf("evm: send tx: %w", err)
	}
	return signedTx.Hash().Hex(), nil
}

func (s *clientSigner) WaitForTransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error) {
	hash := common.HexToHash(txHash)
	for i := 0; i < 30; i++ {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return &TransactionReceipt{
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber.Uint64(),
				TxHash:      receipt.TxHash.Hex(),
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("evm: receipt for %s not found after 30s", txHash)
}

func (s *clientSigner) GetBalance(ctx context.Context, address common.Address, tokenAddress common.Address) (*big.Int, error) {
	if tokenAddress == (common.Address{}) {
		balance, err := s.client.BalanceAt(ctx, address, nil)
		if err != nil {
			return nil, fmt.Errorf("evm: native balance: %w", err)
		}
		return balance, nil
	}
	result, err := s.ReadContract(ctx, tokenAddress, BalanceOfABI, "balanceOf", address)
	if err != nil {
		return nil, err
	}
	balance, ok := result.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("evm: unexpected balanceOf return type %T", result)
	}
	return balance, nil
}
