package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/sofizpay/sdk-go"
)

// paymentTimeout bounds the validity window of a submitted transaction, in
// seconds from construction.
const paymentTimeout = 60

// Submitter implements sofizpay.PaymentSubmitter. It builds, signs, and
// submits a single-operation payment of the configured asset and normalizes
// every outcome, success or failure, into a SubmissionResult. Submit never
// returns a Go error.
type Submitter struct {
	client            ClientInterface
	asset             sofizpay.Asset
	networkPassphrase string
	logger            *slog.Logger
}

// NewSubmitter creates a PaymentSubmitter for the given asset and network.
func NewSubmitter(client ClientInterface, asset sofizpay.Asset, networkPassphrase string, logger *slog.Logger) *Submitter {
	return &Submitter{
		client:            client,
		asset:             asset,
		networkPassphrase: networkPassphrase,
		logger:            logger,
	}
}

// Submit sends amount of the configured asset from the account identified by
// secret to destination. A memo longer than sofizpay.MaxMemoBytes is
// truncated, logged, and flagged on the result; it never fails the payment.
// Duration is wall-clock seconds from call start to completion or failure.
func (s *Submitter) Submit(_ context.Context, secret, destination, amount, memo string) sofizpay.SubmissionResult {
	start := time.Now()

	memo, truncated := truncateMemo(memo)
	if truncated {
		s.logger.Warn("memo too long, truncated",
			"limit", sofizpay.MaxMemoBytes, "memo", memo)
	}

	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return s.failure(start, truncated, "invalid secret key", err)
	}

	account, err := s.client.AccountDetail(horizonclient.AccountRequest{
		AccountID: kp.Address(),
	})
	if err != nil {
		return s.failure(start, truncated, fmt.Sprintf("failed to load account %s", kp.Address()), err)
	}

	sequence, err := account.GetSequenceNumber()
	if err != nil {
		return s.failure(start, truncated, "failed to read account sequence", err)
	}

	sourceAccount := txnbuild.SimpleAccount{
		AccountID: kp.Address(),
		Sequence:  sequence,
	}

	params := txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: destination,
				Amount:      amount,
				Asset:       txnbuild.CreditAsset{Code: s.asset.Code, Issuer: s.asset.Issuer},
			},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(paymentTimeout)},
	}
	if memo != "" {
		params.Memo = txnbuild.MemoText(memo)
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return s.failure(start, truncated, "failed to build transaction", err)
	}

	tx, err = tx.Sign(s.networkPassphrase, kp)
	if err != nil {
		return s.failure(start, truncated, "failed to sign transaction", err)
	}

	envelope, err := tx.Base64()
	if err != nil {
		return s.failure(start, truncated, "failed to encode transaction envelope", err)
	}

	resp, err := s.client.SubmitTransactionXDR(envelope)
	if err != nil {
		return s.failure(start, truncated, "transaction submission failed", err)
	}

	duration := time.Since(start).Seconds()
	s.logger.Info("payment submitted",
		"hash", resp.Hash, "destination", destination, "amount", amount, "duration", duration)

	return sofizpay.SubmissionResult{
		Success:       true,
		Hash:          resp.Hash,
		Duration:      duration,
		MemoTruncated: truncated,
	}
}

// truncateMemo cuts a memo to the Stellar text-memo byte limit.
func truncateMemo(memo string) (string, bool) {
	if len(memo) <= sofizpay.MaxMemoBytes {
		return memo, false
	}
	return memo[:sofizpay.MaxMemoBytes], true
}

// failure normalizes any failure into a SubmissionResult, decoding Horizon
// rejection detail when present.
func (s *Submitter) failure(start time.Time, truncated bool, message string, err error) sofizpay.SubmissionResult {
	result := sofizpay.SubmissionResult{
		Duration:      time.Since(start).Seconds(),
		MemoTruncated: truncated,
		Error:         fmt.Sprintf("%s: %v", message, err),
	}

	if herr := horizonclient.GetError(err); herr != nil {
		decodeRejection(&result, herr)
	}

	s.logger.Error("payment failed", "error", result.Error, "duration", result.Duration)
	return result
}

// decodeRejection extracts the transaction/operation result codes and raw XDR
// blobs Horizon attaches to a rejected submission.
func decodeRejection(result *sofizpay.SubmissionResult, herr *horizonclient.Error) {
	extras := herr.Problem.Extras
	if extras == nil {
		return
	}

	if raw, ok := extras["result_codes"]; ok {
		var codes struct {
			Transaction string   `json:"transaction"`
			Operations  []string `json:"operations"`
		}
		if encoded, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(encoded, &codes)
		}

		result.TransactionCode = codes.Transaction
		result.OperationCodes = codes.Operations

		if codes.Transaction != "" {
			message := fmt.Sprintf("transaction error: %s", codes.Transaction)
			if len(codes.Operations) > 0 {
				message += fmt.Sprintf(" | operation errors: %s", strings.Join(codes.Operations, ", "))
			}
			result.Error = message
		}
	}

	if v, ok := extras["envelope_xdr"].(string); ok {
		result.EnvelopeXDR = v
	}
	if v, ok := extras["result_xdr"].(string); ok {
		result.ResultXDR = v
	}
}

// Compile-time interface check
var _ sofizpay.PaymentSubmitter = (*Submitter)(nil)
