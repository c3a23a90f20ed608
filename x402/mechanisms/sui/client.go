package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CheckpointClient is the thin JSON-RPC transport the Sui adapter needs:
// enough to look up a payer's coin objects, build an unsigned transfer, and
// submit a signed one. No Sui SDK exists anywhere in the retrieved pack, so
// this speaks the Sui full node JSON-RPC API directly over net/http rather
// than pulling in an unvetted client library.
type CheckpointClient interface {
	// Coins returns the object IDs and balances of coinType objects owned
	// by owner, in the order the node returns them.
	Coins(ctx context.Context, owner, coinType string) ([]CoinObject, error)

	// BuildPayTransaction asks the node to build (but not sign or submit)
	// a transaction moving amount of coinType from the given input coin
	// objects to recipient, with sender paying gas unless gasPayer is set.
	BuildPayTransaction(ctx context.Context, req PayTransactionRequest) (txBytesBase64 string, err error)

	// Execute submits a signed transaction (txBytesBase64 plus one
	// base64 signature per required signer) and returns its digest once
	// the node accepts it.
	Execute(ctx context.Context, txBytesBase64 string, signaturesBase64 []string) (digest string, err error)

	// LatestCheckpoint returns the highest checkpoint sequence number the
	// node has processed, used by the indexer to track how far behind it
	// is.
	LatestCheckpoint(ctx context.Context) (uint64, error)

	// QueryDepositEvents returns DepositReceived-equivalent Move events of
	// the given fully-qualified event type emitted after cursor (nil for
	// "from the start"), along with the cursor to resume from next time.
	QueryDepositEvents(ctx context.Context, eventType string, cursor *EventID) ([]MoveDepositEvent, *EventID, error)
}

// EventID identifies a Sui event's position for pagination, mirroring the
// node API's {txDigest, eventSeq} cursor shape.
type EventID struct {
	TxDigest string
	EventSeq string
}

// MoveDepositEvent is one parsed DepositReceived-equivalent Move event.
type MoveDepositEvent struct {
	TxDigest    string
	EventSeq    string
	Checkpoint  uint64
	OrderID     string
	Payer       string
	Amount      string
}

// CoinObject is one Sui coin object reference and its balance.
type CoinObject struct {
	ObjectID string
	Version  uint64
	Digest   string
	Balance  string
}

// PayTransactionRequest describes an unsigned coin transfer to build.
type PayTransactionRequest struct {
	Sender      string
	InputCoins  []string
	Recipients  []string
	Amounts     []string
	GasPayer    string
	GasBudget   uint64
}

// httpClient is the stdlib-net/http-backed CheckpointClient.
type httpClient struct {
	endpoint string
	hc       *http.Client
}

// NewHTTPClient builds a CheckpointClient against a Sui JSON-RPC endpoint.
func NewHTTPClient(endpoint string) CheckpointClient {
	return &httpClient{endpoint: endpoint, hc: &http.Client{Timeout: 30 * time.Second}}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *httpClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("sui: rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("sui: rpc %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("sui: rpc %s: %s", method, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}

func (c *httpClient) Coins(ctx context.Context, owner, coinType string) ([]CoinObject, error) {
	var result struct {
		Data []struct {
			CoinObjectID string `json:"coinObjectId"`
			Version      string `json:"version"`
			Digest       string `json:"digest"`
			Balance      string `json:"balance"`
		} `json:"data"`
	}
	if err := c.call(ctx, "suix_getCoins", []interface{}{owner, coinType}, &result); err != nil {
		return nil, err
	}
	out := make([]CoinObject, 0, len(result.Data))
	for _, d := range result.Data {
		out = append(out, CoinObject{ObjectID: d.CoinObjectID, Digest: d.Digest, Balance: d.Balance})
	}
	return out, nil
}

func (c *httpClient) BuildPayTransaction(ctx context.Context, req PayTransactionRequest) (string, error) {
	var result struct {
		TxBytes string `json:"txBytes"`
	}
	gasPayer := req.GasPayer
	if gasPayer == "" {
		gasPayer = req.Sender
	}
	params := []interface{}{req.Sender, req.InputCoins, req.Recipients, req.Amounts, gasPayer, fmt.Sprintf("%d", req.GasBudget)}
	if err := c.call(ctx, "unsafe_pay", params, &result); err != nil {
		return "", err
	}
	return result.TxBytes, nil
}

func (c *httpClient) Execute(ctx context.Context, txBytesBase64 string, signaturesBase64 []string) (string, error) {
	var result struct {
		Digest string `json:"digest"`
		Effects struct {
			Status struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"status"`
		} `json:"effects"`
	}
	options := map[string]bool{"showEffects": true}
	params := []interface{}{txBytesBase64, signaturesBase64, options, "WaitForEffectsCert"}
	if err := c.call(ctx, "sui_executeTransactionBlock", params, &result); err != nil {
		return "", err
	}
	if result.Effects.Status.Status != "" && result.Effects.Status.Status != "success" {
		return "", fmt.Errorf("sui: transaction failed: %s", result.Effects.Status.Error)
	}
	return result.Digest, nil
}

func (c *httpClient) QueryDepositEvents(ctx context.Context, eventType string, cursor *EventID) ([]MoveDepositEvent, *EventID, error) {
	var result struct {
		Data []struct {
			ID struct {
				TxDigest string `json:"txDigest"`
				EventSeq string `json:"eventSeq"`
			} `json:"id"`
			Checkpoint      string `json:"checkpoint"`
			ParsedJSON      map[string]interface{} `json:"parsedJson"`
		} `json:"data"`
		NextCursor *struct {
			TxDigest string `json:"txDigest"`
			EventSeq string `json:"eventSeq"`
		} `json:"nextCursor"`
		HasNextPage bool `json:"hasNextPage"`
	}

	query := map[string]interface{}{"MoveEventType": eventType}
	var cursorParam interface{}
	if cursor != nil {
		cursorParam = map[string]string{"txDigest": cursor.TxDigest, "eventSeq": cursor.EventSeq}
	}
	params := []interface{}{query, cursorParam, 50, false}
	if err := c.call(ctx, "suix_queryEvents", params, &result); err != nil {
		return nil, nil, err
	}

	events := make([]MoveDepositEvent, 0, len(result.Data))
	for _, d := range result.Data {
		var checkpoint uint64
		fmt.Sscanf(d.Checkpoint, "%d", &checkpoint)
		orderID, _ := d.ParsedJSON["order_id"].(string)
		payer, _ := d.ParsedJSON["payer"].(string)
		amount, _ := d.ParsedJSON["amount"].(string)
		events = append(events, MoveDepositEvent{
			TxDigest:   d.ID.TxDigest,
			EventSeq:   d.ID.EventSeq,
			Checkpoint: checkpoint,
			OrderID:    orderID,
			Payer:      payer,
			Amount:     amount,
		})
	}

	var next *EventID
	if result.NextCursor != nil {
		next = &EventID{TxDigest: result.NextCursor.TxDigest, EventSeq: result.NextCursor.EventSeq}
	}
	return events, next, nil
}

func (c *httpClient) LatestCheckpoint(ctx context.Context) (uint64, error) {
	var result string
	if err := c.call(ctx, "sui_getLatestCheckpointSequenceNumber", nil, &result); err != nil {
		return 0, err
	}
	var n uint64
	if _, err := fmt.Sscanf(result, "%d", &n); err != nil {
		return 0, fmt.Errorf("sui: invalid checkpoint sequence %q", result)
	}
	return n, nil
}
