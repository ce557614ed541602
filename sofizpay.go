// Package sofizpay provides a Go SDK for sending and monitoring DZT payments
// on the Stellar network via Horizon. It handles payment submission with
// normalized results, live transaction streaming with automatic reconnection,
// historical transaction listing, and payment-notification signature
// verification, while delegating transaction construction and signing to the
// Stellar SDK.
package sofizpay

import (
	"context"
	"time"
)

// Network and asset defaults. The asset filter is fixed at construction time;
// use sdk.WithAsset to track a different (code, issuer) pair.
const (
	DefaultHorizonURL = "https://horizon.stellar.org"

	DefaultAssetCode   = "DZT"
	DefaultAssetIssuer = "GCAZI7YBLIDJWIVEL7ETNAZGPP3LC24NO6KAOBWZHUERXQ7M5BC52DLV"
)

// MaxMemoBytes is the Stellar text-memo limit. Longer memos are truncated,
// not rejected.
const MaxMemoBytes = 28

// Stream check-interval bounds, validated by the facade before a stream is
// opened.
const (
	MinCheckInterval = 5 * time.Second
	MaxCheckInterval = 300 * time.Second
)

// DefaultVerificationKey is the SofizPay notification-signing public key.
// VerifySignature checks payment-callback signatures against it unless the
// facade is configured with a different key.
const DefaultVerificationKey = `-----BEGIN PUBLIC KEY-----
MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA1N+bDPxpqeB9QB0affr/
02aeRXAAnqHuLrgiUlVNdXtF7t+2w8pnEg+m9RRlc+4YEY6UyKTUjVe6k7v2p8Jj
UItk/fMNOEg/zY222EbqsKZ2mF4hzqgyJ3QHPXjZEEqABkbcYVv4ZyV2Wq0x0ykI
+Hy/5YWKeah4RP2uEML1FlXGpuacnMXpW6n36dne3fUN+OzILGefeRpmpnSGO5+i
JmpF2mRdKL3hs9WgaLSg6uQyrQuJA9xqcCpUmpNbIGYXN9QZxjdyRGnxivTE8awx
THV3WRcKrP2krz3ruRGF6yP6PVHEuPc0YDLsYjV5uhfs7JtIksNKhRRAQ16bAsj/
9wIDAQAB
-----END PUBLIC KEY-----`

// Asset identifies the issued asset all transaction and operation filtering
// is scoped to.
type Asset struct {
	Code   string
	Issuer string
}

// Matches reports whether an operation's asset fields identify this asset.
func (a Asset) Matches(code, issuer string) bool {
	return code == a.Code && issuer == a.Issuer
}

// Direction distinguishes payments sent by the queried account from payments
// it received. It is always derived by comparing the payment source to the
// queried account, never stored independently.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Transaction is one matching payment operation joined with its enclosing
// transaction. A single on-chain transaction with several matching operations
// produces several Transaction records.
type Transaction struct {
	ID          string    `json:"id"`
	Hash        string    `json:"hash"`
	Memo        string    `json:"memo"`
	Amount      string    `json:"amount"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	AssetCode   string    `json:"asset_code"`
	AssetIssuer string    `json:"asset_issuer"`
	Direction   Direction `json:"type"`
	Status      string    `json:"status"`
	PagingToken string    `json:"paging_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ProcessedAt time.Time `json:"processed_at"`

	// Historical marks records replayed during stream backfill, as opposed
	// to live deliveries.
	Historical bool `json:"historical,omitempty"`

	// HistoryComplete marks the sentinel record delivered once after the
	// last backfill record, before any live record.
	HistoryComplete bool `json:"history_complete,omitempty"`
	HistoricalCount int  `json:"historical_count,omitempty"`
}

// SubmissionResult is the normalized outcome of a payment submission.
// Submit never raises; every failure mode lands here.
type SubmissionResult struct {
	Success  bool    `json:"success"`
	Hash     string  `json:"hash,omitempty"`
	Duration float64 `json:"duration"` // seconds, wall clock

	// MemoTruncated records that the supplied memo exceeded MaxMemoBytes
	// and was cut to fit. Non-fatal.
	MemoTruncated bool `json:"memo_truncated,omitempty"`

	Error string `json:"error,omitempty"`

	// Decoded Horizon rejection detail, when the service supplied it.
	TransactionCode string   `json:"transaction_code,omitempty"`
	OperationCodes  []string `json:"operation_codes,omitempty"`

	// Raw XDR blobs preserved for diagnostics.
	ResultXDR   string `json:"result_xdr,omitempty"`
	EnvelopeXDR string `json:"envelope_xdr,omitempty"`
}

// PaymentOperation is a payment-typed operation as returned by a
// transaction lookup.
type PaymentOperation struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	TypeI           int32     `json:"type_i"`
	CreatedAt       time.Time `json:"created_at"`
	TransactionHash string    `json:"transaction_hash"`
	SourceAccount   string    `json:"source_account"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Amount          string    `json:"amount"`
	AssetType       string    `json:"asset_type"`
	AssetCode       string    `json:"asset_code"`
	AssetIssuer     string    `json:"asset_issuer"`
}

// TransactionDetail is the full record returned by a by-hash lookup.
type TransactionDetail struct {
	ID             string             `json:"id"`
	Hash           string             `json:"hash"`
	Ledger         int32              `json:"ledger"`
	CreatedAt      time.Time          `json:"created_at"`
	SourceAccount  string             `json:"source_account"`
	FeeCharged     int64              `json:"fee_charged"`
	OperationCount int32              `json:"operation_count"`
	MemoType       string             `json:"memo_type"`
	Memo           string             `json:"memo"`
	Successful     bool               `json:"successful"`
	PagingToken    string             `json:"paging_token"`
	EnvelopeXDR    string             `json:"envelope_xdr,omitempty"`
	ResultXDR      string             `json:"result_xdr,omitempty"`
	Operations     []PaymentOperation `json:"operations"`
}

// LookupResult is the outcome of a by-hash lookup. A missing transaction is
// Found=false, not an error; unexpected service faults are captured in Err.
type LookupResult struct {
	Found       bool
	Transaction *TransactionDetail

	// PaymentOperations holds every payment-typed operation in the
	// transaction; MatchingOperations the subset carrying the configured
	// asset.
	PaymentOperations  []PaymentOperation
	MatchingOperations []PaymentOperation

	Message string
	Err     error
}

// TransactionHandler is the callback a stream session delivers records to.
// Handlers run sequentially in delivery order within a session.
type TransactionHandler func(Transaction)

// StreamOptions configure a stream session.
type StreamOptions struct {
	// Cursor positions the live subscription. Empty means "now" (live
	// events only).
	Cursor string

	// WithHistory replays up to HistoryLimit past matching records
	// oldest-first before going live.
	WithHistory  bool
	HistoryLimit int           // default 200
	HistoryPause time.Duration // delay between backfill deliveries, default 50ms

	// CheckInterval is the sleep before each reconnect attempt.
	CheckInterval time.Duration
}

// StreamHandle cancels a stream session. Close is idempotent: the first call
// tears down the subscription and stops deliveries, later calls are no-ops.
// Close does not interrupt an event fetch already in flight.
type StreamHandle interface {
	Close()

	// Done is closed when the session loop has fully exited.
	Done() <-chan struct{}
}

// PaymentSubmitter builds, signs, and submits a single payment, normalizing
// every outcome into a SubmissionResult.
type PaymentSubmitter interface {
	Submit(ctx context.Context, secret, destination, amount, memo string) SubmissionResult
}

// HistoryFetcher lists recent transactions for an account, joined to their
// matching payment operations.
type HistoryFetcher interface {
	List(ctx context.Context, accountID string, limit int, cursor string) ([]Transaction, error)
}

// TransactionLookup resolves one transaction by hash and classifies its
// operations.
type TransactionLookup interface {
	ByHash(ctx context.Context, hash string) LookupResult
}

// BalanceFetcher reads the account's balance line for the configured asset.
// A missing trustline is a zero balance, not an error.
type BalanceFetcher interface {
	Balance(ctx context.Context, accountID string) (string, error)
}

// StreamManager opens live transaction subscriptions with reconnection and
// optional historical backfill.
type StreamManager interface {
	Start(ctx context.Context, accountID string, handler TransactionHandler, opts StreamOptions) (StreamHandle, error)
}
