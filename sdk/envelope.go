package sdk

import (
	"encoding/json"
	"time"

	"github.com/sofizpay/sdk-go"
)

// Every asynchronous facade operation returns one of the envelope types
// below: a Success flag, a timestamp, and the operation's payload. Business
// failures land in the envelope's Error field; the only errors a caller must
// handle as Go errors are the pre-flight validation faults.

// PaymentResult is the envelope for SubmitPayment.
type PaymentResult struct {
	Success         bool      `json:"success"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	Amount          string    `json:"amount,omitempty"`
	Memo            string    `json:"memo,omitempty"`
	Destination     string    `json:"destination,omitempty"`
	Duration        float64   `json:"duration"`
	MemoTruncated   bool      `json:"memo_truncated,omitempty"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// TransactionsResult is the envelope for GetTransactions and
// SearchTransactionsByMemo.
type TransactionsResult struct {
	Success      bool                   `json:"success"`
	Transactions []sofizpay.Transaction `json:"transactions"`
	Total        int                    `json:"total"`
	TotalFound   int                    `json:"total_found,omitempty"`
	SearchMemo   string                 `json:"search_memo,omitempty"`
	PublicKey    string                 `json:"public_key,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// BalanceResult is the envelope for GetBalance.
type BalanceResult struct {
	Success     bool      `json:"success"`
	Balance     string    `json:"balance"`
	PublicKey   string    `json:"public_key"`
	AssetCode   string    `json:"asset_code"`
	AssetIssuer string    `json:"asset_issuer"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PublicKeyResult is the envelope for GetPublicKey.
type PublicKeyResult struct {
	Success   bool      `json:"success"`
	PublicKey string    `json:"public_key,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamResult is the envelope for StartTransactionStream and
// StopTransactionStream.
type StreamResult struct {
	Success       bool          `json:"success"`
	PublicKey     string        `json:"public_key"`
	Message       string        `json:"message,omitempty"`
	WithHistory   bool          `json:"with_history,omitempty"`
	CheckInterval time.Duration `json:"check_interval,omitempty"`
	Error         string        `json:"error,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// StreamStatusResult is the envelope for GetStreamStatus.
type StreamStatusResult struct {
	Success       bool          `json:"success"`
	IsActive      bool          `json:"is_active"`
	PublicKey     string        `json:"public_key"`
	StartTime     *time.Time    `json:"start_time,omitempty"`
	WithHistory   bool          `json:"with_history,omitempty"`
	CheckInterval time.Duration `json:"check_interval,omitempty"`
	Error         string        `json:"error,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// TransactionLookupResult is the envelope for GetTransactionByHash.
type TransactionLookupResult struct {
	Success                 bool                         `json:"success"`
	Found                   bool                         `json:"found"`
	Hash                    string                       `json:"hash"`
	Transaction             *sofizpay.TransactionDetail  `json:"transaction,omitempty"`
	PaymentOperationsCount  int                          `json:"payment_operations_count"`
	MatchingOperations      []sofizpay.PaymentOperation  `json:"matching_operations,omitempty"`
	MatchingOperationsCount int                          `json:"matching_operations_count"`
	Message                 string                       `json:"message,omitempty"`
	Error                   string                       `json:"error,omitempty"`
	Timestamp               time.Time                    `json:"timestamp"`
}

// CIBResult is the envelope for MakeCIBTransaction. Data carries the gateway
// response verbatim.
type CIBResult struct {
	Success   bool            `json:"success"`
	Account   string          `json:"account"`
	Amount    string          `json:"amount"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
