// Package sdk provides the SofizPay client facade. It validates caller input,
// orchestrates the Horizon-backed components, tracks per-account stream
// sessions, and normalizes every asynchronous outcome into a uniform
// success/error envelope.
package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stellar/go/network"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/core/crypto"
	"github.com/sofizpay/sdk-go/core/net"
	"github.com/sofizpay/sdk-go/errors"
	"github.com/sofizpay/sdk-go/horizon"
)

// Version is the SDK release version.
const Version = "1.0.0"

const defaultCIBBaseURL = "https://www.sofizpay.com/make-cib-transaction/"

// defaultSearchLimit caps how many matches a memo search returns when the
// caller does not supply a limit.
const defaultSearchLimit = 50

// Client is the entry point of the SDK. Construct it with New; the zero
// value is not usable.
type Client struct {
	horizonURL        string
	networkPassphrase string
	asset             sofizpay.Asset
	logger            *slog.Logger
	httpClient        *net.Client
	verificationKey   string
	cibBaseURL        string

	submitter sofizpay.PaymentSubmitter
	history   sofizpay.HistoryFetcher
	lookup    sofizpay.TransactionLookup
	balances  sofizpay.BalanceFetcher
	streams   sofizpay.StreamManager

	sessions *sessionRegistry
}

// Option configures a Client.
type Option func(*Client)

// WithHorizonURL sets the Horizon server URL (default: the public network
// Horizon).
func WithHorizonURL(url string) Option {
	return func(c *Client) {
		c.horizonURL = url
	}
}

// WithNetworkPassphrase sets the Stellar network passphrase (default: the
// public network).
func WithNetworkPassphrase(passphrase string) Option {
	return func(c *Client) {
		c.networkPassphrase = passphrase
	}
}

// WithAsset overrides the (code, issuer) pair all filtering and payments are
// scoped to. The default is the DZT asset.
func WithAsset(code, issuer string) Option {
	return func(c *Client) {
		c.asset = sofizpay.Asset{Code: code, Issuer: issuer}
	}
}

// WithLogger sets the structured logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets the retrying HTTP client used for raw Horizon fetches
// and the CIB gateway.
func WithHTTPClient(client *net.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithVerificationKey replaces the PEM public key VerifySignature checks
// against.
func WithVerificationKey(publicKeyPEM string) Option {
	return func(c *Client) {
		c.verificationKey = publicKeyPEM
	}
}

// WithCIBBaseURL overrides the CIB gateway endpoint.
func WithCIBBaseURL(url string) Option {
	return func(c *Client) {
		c.cibBaseURL = url
	}
}

// WithPaymentSubmitter replaces the payment submission component.
func WithPaymentSubmitter(s sofizpay.PaymentSubmitter) Option {
	return func(c *Client) {
		c.submitter = s
	}
}

// WithHistoryFetcher replaces the transaction history component.
func WithHistoryFetcher(h sofizpay.HistoryFetcher) Option {
	return func(c *Client) {
		c.history = h
	}
}

// WithTransactionLookup replaces the by-hash lookup component.
func WithTransactionLookup(l sofizpay.TransactionLookup) Option {
	return func(c *Client) {
		c.lookup = l
	}
}

// WithBalanceFetcher replaces the balance component.
func WithBalanceFetcher(b sofizpay.BalanceFetcher) Option {
	return func(c *Client) {
		c.balances = b
	}
}

// WithStreamManager replaces the stream component.
func WithStreamManager(s sofizpay.StreamManager) Option {
	return func(c *Client) {
		c.streams = s
	}
}

// New creates a SofizPay client. With no options it talks to the public
// Stellar network and tracks the DZT asset.
func New(opts ...Option) *Client {
	c := &Client{
		horizonURL:        sofizpay.DefaultHorizonURL,
		networkPassphrase: network.PublicNetworkPassphrase,
		asset:             sofizpay.Asset{Code: sofizpay.DefaultAssetCode, Issuer: sofizpay.DefaultAssetIssuer},
		logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		verificationKey:   sofizpay.DefaultVerificationKey,
		cibBaseURL:        defaultCIBBaseURL,
		sessions:          newSessionRegistry(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = net.NewClient()
	}

	hc := horizon.NewClient(c.horizonURL)
	if c.submitter == nil {
		c.submitter = horizon.NewSubmitter(hc, c.asset, c.networkPassphrase, c.logger)
	}
	if c.history == nil {
		c.history = horizon.NewHistory(hc, c.asset, c.logger)
	}
	if c.lookup == nil {
		c.lookup = horizon.NewLookup(hc, c.asset, c.logger)
	}
	if c.balances == nil {
		c.balances = horizon.NewAccountFetcher(hc, c.asset, c.logger)
	}
	if c.streams == nil {
		c.streams = horizon.NewStreamer(hc,
			horizon.WithFetcher(c.httpClient),
			horizon.WithHorizonURL(c.horizonURL),
			horizon.WithAsset(c.asset),
			horizon.WithHistory(c.history),
			horizon.WithLogger(c.logger),
		)
	}

	return c
}

// Version returns the SDK release version.
func (c *Client) Version() string {
	return Version
}

// Asset returns the (code, issuer) pair this client is scoped to.
func (c *Client) Asset() sofizpay.Asset {
	return c.asset
}

// PaymentRequest carries the inputs for SubmitPayment. All fields except
// Memo participate in pre-flight validation; Memo is required too, matching
// the SofizPay payment contract.
type PaymentRequest struct {
	SecretKey   string
	Destination string
	Amount      string
	Memo        string
}

// SubmitPayment builds, signs, and submits a payment of the configured
// asset. Missing or invalid required fields fail fast with an error before
// any network call; every later outcome is reported in the envelope.
func (c *Client) SubmitPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if req.SecretKey == "" {
		return nil, required("secret key")
	}
	if req.Destination == "" {
		return nil, required("destination public key")
	}
	if !validAmount(req.Amount) {
		return nil, errors.NewSDKError(errors.VALIDATION_REQUIRED, "valid amount is required", nil)
	}
	if req.Memo == "" {
		return nil, required("memo")
	}

	result := c.submitter.Submit(ctx, req.SecretKey, req.Destination, req.Amount, req.Memo)

	envelope := &PaymentResult{
		Success:       result.Success,
		Duration:      result.Duration,
		MemoTruncated: result.MemoTruncated,
		Timestamp:     time.Now().UTC(),
	}
	if result.Success {
		envelope.TransactionHash = result.Hash
		envelope.Amount = req.Amount
		envelope.Memo = req.Memo
		envelope.Destination = req.Destination
	} else {
		envelope.Error = result.Error
	}
	return envelope, nil
}

// GetTransactions lists the account's recent payments of the configured
// asset, most recent first. limit defaults to 50.
func (c *Client) GetTransactions(ctx context.Context, publicKey string, limit int) (*TransactionsResult, error) {
	if publicKey == "" {
		return nil, required("public key")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	transactions, err := c.history.List(ctx, publicKey, limit, "")
	if err != nil {
		return &TransactionsResult{
			Success:      false,
			Transactions: []sofizpay.Transaction{},
			PublicKey:    publicKey,
			Error:        err.Error(),
			Timestamp:    time.Now().UTC(),
		}, nil
	}

	return &TransactionsResult{
		Success:      true,
		Transactions: transactions,
		Total:        len(transactions),
		PublicKey:    publicKey,
		Message:      fmt.Sprintf("fetched %d transactions", len(transactions)),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// GetBalance returns the account's balance line for the configured asset.
func (c *Client) GetBalance(ctx context.Context, publicKey string) (*BalanceResult, error) {
	if publicKey == "" {
		return nil, required("public key")
	}

	balance, err := c.balances.Balance(ctx, publicKey)
	if err != nil {
		return &BalanceResult{
			Success:     false,
			Balance:     "0",
			PublicKey:   publicKey,
			AssetCode:   c.asset.Code,
			AssetIssuer: c.asset.Issuer,
			Error:       err.Error(),
			Timestamp:   time.Now().UTC(),
		}, nil
	}

	return &BalanceResult{
		Success:     true,
		Balance:     balance,
		PublicKey:   publicKey,
		AssetCode:   c.asset.Code,
		AssetIssuer: c.asset.Issuer,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// GetPublicKey derives the Stellar address from a secret key. Derivation is
// deterministic: the same secret always yields the same address.
func (c *Client) GetPublicKey(secretKey string) (*PublicKeyResult, error) {
	if secretKey == "" {
		return nil, required("secret key")
	}

	publicKey, err := crypto.DerivePublicKey(secretKey)
	if err != nil {
		return &PublicKeyResult{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		}, nil
	}

	return &PublicKeyResult{
		Success:   true,
		PublicKey: publicKey,
		Timestamp: time.Now().UTC(),
	}, nil
}

// StartTransactionStream opens a live payment stream for the account and
// registers its session. At most one stream may exist per account: a second
// start returns a Success=false envelope without opening anything. A
// CheckInterval outside [MinCheckInterval, MaxCheckInterval] is a validation
// fault; zero selects the default.
func (c *Client) StartTransactionStream(ctx context.Context, publicKey string, handler sofizpay.TransactionHandler, opts sofizpay.StreamOptions) (*StreamResult, error) {
	if publicKey == "" {
		return nil, required("public key")
	}
	if handler == nil {
		return nil, required("transaction handler")
	}
	if opts.CheckInterval == 0 {
		opts.CheckInterval = horizon.DefaultCheckInterval
	}
	if opts.CheckInterval < sofizpay.MinCheckInterval || opts.CheckInterval > sofizpay.MaxCheckInterval {
		return nil, errors.NewSDKError(
			errors.INVALID_INTERVAL,
			fmt.Sprintf("check interval must be between %s and %s", sofizpay.MinCheckInterval, sofizpay.MaxCheckInterval),
			nil,
		)
	}

	info := &session{
		PublicKey:     publicKey,
		StartTime:     time.Now().UTC(),
		WithHistory:   opts.WithHistory,
		CheckInterval: opts.CheckInterval,
	}

	err := c.sessions.start(publicKey, info, func() (sofizpay.StreamHandle, error) {
		return c.streams.Start(ctx, publicKey, handler, opts)
	})
	if err != nil {
		return &StreamResult{
			Success:   false,
			PublicKey: publicKey,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		}, nil
	}

	c.logger.Info("transaction stream started",
		"account", publicKey, "with_history", opts.WithHistory, "check_interval", opts.CheckInterval)

	return &StreamResult{
		Success:       true,
		PublicKey:     publicKey,
		Message:       "transaction stream started successfully",
		WithHistory:   opts.WithHistory,
		CheckInterval: opts.CheckInterval,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// StopTransactionStream cancels the account's stream session. Stopping an
// account with no active stream, including one stopped a moment earlier,
// returns a Success=false envelope and never a fault.
func (c *Client) StopTransactionStream(publicKey string) (*StreamResult, error) {
	if publicKey == "" {
		return nil, required("public key")
	}

	if _, err := c.sessions.stop(publicKey); err != nil {
		return &StreamResult{
			Success:   false,
			PublicKey: publicKey,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		}, nil
	}

	c.logger.Info("transaction stream stopped", "account", publicKey)

	return &StreamResult{
		Success:   true,
		PublicKey: publicKey,
		Message:   "transaction stream stopped successfully",
		Timestamp: time.Now().UTC(),
	}, nil
}

// GetStreamStatus reports whether a stream session is active for the account.
func (c *Client) GetStreamStatus(publicKey string) (*StreamStatusResult, error) {
	if publicKey == "" {
		return nil, required("public key")
	}

	result := &StreamStatusResult{
		Success:   true,
		PublicKey: publicKey,
		Timestamp: time.Now().UTC(),
	}

	if sess, ok := c.sessions.get(publicKey); ok {
		start := sess.StartTime
		result.IsActive = sess.IsActive
		result.StartTime = &start
		result.WithHistory = sess.WithHistory
		result.CheckInterval = sess.CheckInterval
	}
	return result, nil
}

// SearchTransactionsByMemo returns the account's matching payments whose
// memo contains the given substring, case-insensitively. The search scans
// the most recent 200 matching records; limit caps the returned slice and
// defaults to 50.
func (c *Client) SearchTransactionsByMemo(ctx context.Context, publicKey, memo string, limit int) (*TransactionsResult, error) {
	if publicKey == "" {
		return nil, required("public key")
	}
	if memo == "" {
		return nil, errors.NewSDKError(errors.VALIDATION_REQUIRED, "memo is required for search", nil)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	transactions, err := c.history.List(ctx, publicKey, horizon.DefaultHistoryLimit, "")
	if err != nil {
		return &TransactionsResult{
			Success:      false,
			Transactions: []sofizpay.Transaction{},
			SearchMemo:   memo,
			PublicKey:    publicKey,
			Error:        err.Error(),
			Timestamp:    time.Now().UTC(),
		}, nil
	}

	needle := strings.ToLower(memo)
	var matches []sofizpay.Transaction
	for _, tx := range transactions {
		if tx.Memo == "" {
			continue
		}
		if strings.Contains(strings.ToLower(tx.Memo), needle) {
			matches = append(matches, tx)
		}
	}

	totalFound := len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []sofizpay.Transaction{}
	}

	return &TransactionsResult{
		Success:      true,
		Transactions: matches,
		Total:        len(matches),
		TotalFound:   totalFound,
		SearchMemo:   memo,
		PublicKey:    publicKey,
		Message:      fmt.Sprintf("found %d transactions containing %q", totalFound, memo),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// GetTransactionByHash resolves one transaction by hash and classifies its
// payment operations. A lookup miss is Success=true, Found=false and never a
// fault; unexpected service faults are reported in the envelope's Error.
func (c *Client) GetTransactionByHash(ctx context.Context, hash string) (*TransactionLookupResult, error) {
	if hash == "" {
		return nil, required("transaction hash")
	}

	result := c.lookup.ByHash(ctx, hash)

	envelope := &TransactionLookupResult{
		Success:   true,
		Found:     result.Found,
		Hash:      hash,
		Message:   result.Message,
		Timestamp: time.Now().UTC(),
	}
	if result.Err != nil {
		envelope.Error = result.Err.Error()
	}
	if result.Found {
		envelope.Transaction = result.Transaction
		envelope.PaymentOperationsCount = len(result.PaymentOperations)
		envelope.MatchingOperations = result.MatchingOperations
		envelope.MatchingOperationsCount = len(result.MatchingOperations)
	}
	return envelope, nil
}

// VerifySignature checks a URL-safe base64 signature over message against
// the configured verification key. It is boolean-only and never raises: any
// decoding or verification fault yields false.
func (c *Client) VerifySignature(message, urlSafeSignature string) bool {
	return crypto.VerifySignature(c.verificationKey, message, urlSafeSignature)
}

// CIBRequest carries the inputs for MakeCIBTransaction.
type CIBRequest struct {
	Account   string
	Amount    string
	FullName  string
	Phone     string
	Email     string
	ReturnURL string
	Memo      string
	Redirect  *bool
}

// MakeCIBTransaction initiates a fiat CIB payment through the SofizPay
// gateway and forwards the gateway response in the envelope.
func (c *Client) MakeCIBTransaction(ctx context.Context, req CIBRequest) (*CIBResult, error) {
	if req.Account == "" {
		return nil, required("account")
	}
	if !validAmount(req.Amount) {
		return nil, errors.NewSDKError(errors.VALIDATION_REQUIRED, "valid amount is required", nil)
	}
	if req.FullName == "" {
		return nil, required("full name")
	}
	if req.Phone == "" {
		return nil, required("phone number")
	}
	if req.Email == "" {
		return nil, required("email")
	}

	params := url.Values{}
	params.Set("account", req.Account)
	params.Set("amount", req.Amount)
	params.Set("full_name", req.FullName)
	params.Set("phone", req.Phone)
	params.Set("email", req.Email)
	if req.ReturnURL != "" {
		params.Set("return_url", req.ReturnURL)
	}
	if req.Memo != "" {
		params.Set("memo", req.Memo)
	}
	if req.Redirect != nil {
		params.Set("redirect", strconv.FormatBool(*req.Redirect))
	}

	envelope := &CIBResult{
		Account:   req.Account,
		Amount:    req.Amount,
		Timestamp: time.Now().UTC(),
	}

	resp, err := c.httpClient.Get(ctx, c.cibBaseURL+"?"+params.Encode())
	if err != nil {
		c.logger.Error("CIB transaction request failed", "account", req.Account, "error", err)
		envelope.Error = err.Error()
		return envelope, nil
	}

	var data json.RawMessage
	if err := resp.JSON(&data); err != nil {
		envelope.Error = err.Error()
		return envelope, nil
	}

	envelope.Success = true
	envelope.Data = data
	return envelope, nil
}

// required builds the validation fault for a missing field.
func required(field string) error {
	return errors.NewSDKError(errors.VALIDATION_REQUIRED, field+" is required", nil)
}

// validAmount reports whether s is a positive decimal amount.
func validAmount(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}
