package horizon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/protocols/horizon/operations"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/errors"
)

// Lookup implements sofizpay.TransactionLookup: it resolves one transaction
// by hash and classifies its payment operations against the configured asset.
type Lookup struct {
	client ClientInterface
	asset  sofizpay.Asset
	logger *slog.Logger
}

// NewLookup creates a TransactionLookup for the given asset.
func NewLookup(client ClientInterface, asset sofizpay.Asset, logger *slog.Logger) *Lookup {
	return &Lookup{
		client: client,
		asset:  asset,
		logger: logger,
	}
}

// ByHash fetches the transaction and its full operation list. A Horizon 404
// is reported as Found=false with a descriptive message, not as a fault; any
// other service fault is captured in the result's Err field. ByHash never
// panics or propagates an error.
func (l *Lookup) ByHash(_ context.Context, hash string) sofizpay.LookupResult {
	tx, err := l.client.TransactionDetail(hash)
	if err != nil {
		if herr := horizonclient.GetError(err); herr != nil && herr.Problem.Status == http.StatusNotFound {
			return sofizpay.LookupResult{
				Found:   false,
				Message: "transaction not found on the Stellar network",
			}
		}
		l.logger.Error("transaction lookup failed", "hash", hash, "error", err)
		return sofizpay.LookupResult{
			Found:   false,
			Message: "error while searching for transaction",
			Err:     errors.NewHorizonError(errors.NETWORK_ERROR, fmt.Sprintf("failed to fetch transaction %s", hash), err),
		}
	}

	detail := &sofizpay.TransactionDetail{
		ID:             tx.ID,
		Hash:           tx.Hash,
		Ledger:         tx.Ledger,
		CreatedAt:      tx.LedgerCloseTime,
		SourceAccount:  tx.Account,
		FeeCharged:     tx.FeeCharged,
		OperationCount: tx.OperationCount,
		MemoType:       tx.MemoType,
		Memo:           tx.Memo,
		Successful:     tx.Successful,
		PagingToken:    tx.PT,
		EnvelopeXDR:    tx.EnvelopeXdr,
		ResultXDR:      tx.ResultXdr,
	}

	ops, err := l.client.Operations(horizonclient.OperationRequest{
		ForTransaction: hash,
	})
	if err != nil {
		l.logger.Error("operations fetch failed for lookup", "hash", hash, "error", err)
		return sofizpay.LookupResult{
			Found:   false,
			Message: "error while searching for transaction",
			Err:     errors.NewHorizonError(errors.OPERATION_FETCH_FAIL, fmt.Sprintf("failed to fetch operations for transaction %s", hash), err),
		}
	}

	var payments []sofizpay.PaymentOperation
	var matching []sofizpay.PaymentOperation
	for _, op := range ops.Embedded.Records {
		payment, ok := op.(operations.Payment)
		if !ok {
			continue
		}

		classified := sofizpay.PaymentOperation{
			ID:              payment.ID,
			Type:            payment.Base.Type,
			TypeI:           payment.TypeI,
			CreatedAt:       payment.LedgerCloseTime,
			TransactionHash: payment.TransactionHash,
			SourceAccount:   payment.SourceAccount,
			From:            payment.From,
			To:              payment.To,
			Amount:          payment.Amount,
			AssetType:       payment.Asset.Type,
			AssetCode:       payment.Asset.Code,
			AssetIssuer:     payment.Asset.Issuer,
		}
		payments = append(payments, classified)
		if l.asset.Matches(payment.Asset.Code, payment.Asset.Issuer) {
			matching = append(matching, classified)
		}
	}
	detail.Operations = payments

	return sofizpay.LookupResult{
		Found:              true,
		Transaction:        detail,
		PaymentOperations:  payments,
		MatchingOperations: matching,
		Message: fmt.Sprintf("transaction found with %d payment operations (%d %s payments)",
			len(payments), len(matching), l.asset.Code),
	}
}

// Compile-time interface check
var _ sofizpay.TransactionLookup = (*Lookup)(nil)
