package evm

// ABI JSON fragments for the contract calls the adapter makes. Kept as
// single-method JSON blobs, matching how the teacher's facilitator signer
// packs calldata one method at a time rather than loading a full contract
// ABI.

// TransferWithAuthorizationABI is the ERC-3009 token-contract call used
// when settlement goes directly to the token (non-vault path).
const TransferWithAuthorizationABI = `[{
	"name": "transferWithAuthorization",
	"type": "function",
	"inputs": [
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "value", "type": "uint256"},
		{"name": "validAfter", "type": "uint256"},
		{"name": "validBefore", "type": "uint256"},
		{"name": "nonce", "type": "bytes32"},
		{"name": "v", "type": "uint8"},
		{"name": "r", "type": "bytes32"},
		{"name": "s", "type": "bytes32"}
	],
	"outputs": []
}]`

// DepositWithAuthorizationABI is the vault call used when a network is
// configured with a vault address; orderId is always set to the
// authorization's nonce.
const DepositWithAuthorizationABI = `[{
	"name": "depositWithAuthorization",
	"type": "function",
	"inputs": [
		{"name": "orderId", "type": "bytes32"},
		{"name": "from", "type": "address"},
		{"name": "value", "type": "uint256"},
		{"name": "validAfter", "type": "uint256"},
		{"name": "validBefore", "type": "uint256"},
		{"name": "nonce", "type": "bytes32"},
		{"name": "v", "type": "uint8"},
		{"name": "r", "type": "bytes32"},
		{"name": "s", "type": "bytes32"}
	],
	"outputs": []
}]`

// AuthorizationStateABI reads whether a nonce has already been consumed
// on-chain for a given authorizer.
const AuthorizationStateABI = `[{
	"name": "authorizationState",
	"type": "function",
	"stateMutability": "view",
	"inputs": [
		{"name": "authorizer", "type": "address"},
		{"name": "nonce", "type": "bytes32"}
	],
	"outputs": [{"name": "", "type": "bool"}]
}]`

// BalanceOfABI reads an ERC-20 balance.
const BalanceOfABI = `[{
	"name": "balanceOf",
	"type": "function",
	"stateMutability": "view",
	"inputs": [{"name": "account", "type": "address"}],
	"outputs": [{"name": "", "type": "uint256"}]
}]`
