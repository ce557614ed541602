package horizon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/protocols/horizon/operations"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/errors"
)

// DefaultHistoryLimit is the page size used when the caller does not supply
// a limit. It is also the depth of stream backfill and memo search.
const DefaultHistoryLimit = 200

// History implements sofizpay.HistoryFetcher. It lists recent transactions
// for an account newest-first and joins each one to its payment operations
// matching the configured asset.
type History struct {
	client ClientInterface
	asset  sofizpay.Asset
	logger *slog.Logger
}

// NewHistory creates a HistoryFetcher for the given asset.
func NewHistory(client ClientInterface, asset sofizpay.Asset, logger *slog.Logger) *History {
	return &History{
		client: client,
		asset:  asset,
		logger: logger,
	}
}

// List fetches up to limit transactions for the account in descending time
// order and returns one record per matching payment operation. A transaction
// with no matching operations contributes nothing; one with several
// contributes several records. A failure fetching one transaction's
// operations is logged and that transaction skipped. cursor, when non-empty,
// resumes the listing after a prior page.
func (h *History) List(_ context.Context, accountID string, limit int, cursor string) ([]sofizpay.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	request := horizonclient.TransactionRequest{
		ForAccount: accountID,
		Order:      horizonclient.OrderDesc,
		Limit:      uint(limit),
	}
	if cursor != "" {
		request.Cursor = cursor
	}

	page, err := h.client.Transactions(request)
	if err != nil {
		return nil, errors.NewHorizonError(
			errors.NETWORK_ERROR,
			fmt.Sprintf("failed to list transactions for account %s", accountID),
			err,
		)
	}

	var records []sofizpay.Transaction
	for _, tx := range page.Embedded.Records {
		ops, err := h.client.Operations(horizonclient.OperationRequest{
			ForTransaction: tx.Hash,
		})
		if err != nil {
			h.logger.Warn("skipping transaction, operations fetch failed",
				"hash", tx.Hash, "error", err)
			continue
		}

		for _, op := range ops.Embedded.Records {
			payment, ok := op.(operations.Payment)
			if !ok {
				continue
			}
			if !h.asset.Matches(payment.Asset.Code, payment.Asset.Issuer) {
				continue
			}

			records = append(records, sofizpay.Transaction{
				ID:          tx.ID,
				Hash:        tx.Hash,
				Memo:        tx.Memo,
				Amount:      payment.Amount,
				From:        payment.From,
				To:          payment.To,
				AssetCode:   payment.Asset.Code,
				AssetIssuer: payment.Asset.Issuer,
				Direction:   direction(payment.From, accountID),
				Status:      "completed",
				PagingToken: tx.PT,
				CreatedAt:   tx.LedgerCloseTime,
				ProcessedAt: tx.LedgerCloseTime,
			})
		}
	}

	return records, nil
}

// Compile-time interface check
var _ sofizpay.HistoryFetcher = (*History)(nil)
