package horizon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/errors"
)

// AccountFetcher implements sofizpay.BalanceFetcher against a Horizon server.
type AccountFetcher struct {
	client ClientInterface
	asset  sofizpay.Asset
	logger *slog.Logger
}

// NewAccountFetcher creates a BalanceFetcher for the given asset.
func NewAccountFetcher(client ClientInterface, asset sofizpay.Asset, logger *slog.Logger) *AccountFetcher {
	return &AccountFetcher{
		client: client,
		asset:  asset,
		logger: logger,
	}
}

// Balance returns the account's balance line for the configured asset as a
// decimal string. An account without a trustline for the asset has balance
// "0". A missing account is an ACCOUNT_NOT_FOUND error.
func (f *AccountFetcher) Balance(_ context.Context, accountID string) (string, error) {
	account, err := f.client.AccountDetail(horizonclient.AccountRequest{
		AccountID: accountID,
	})
	if err != nil {
		if herr := horizonclient.GetError(err); herr != nil && herr.Problem.Status == http.StatusNotFound {
			return "", errors.NewHorizonError(
				errors.ACCOUNT_NOT_FOUND,
				fmt.Sprintf("account %s not found, it might not be activated on the Stellar network", accountID),
				err,
			)
		}
		return "", errors.NewHorizonError(
			errors.NETWORK_ERROR,
			fmt.Sprintf("failed to load account %s", accountID),
			err,
		)
	}

	for _, balance := range account.Balances {
		if f.asset.Matches(balance.Asset.Code, balance.Asset.Issuer) {
			return balance.Balance, nil
		}
	}

	f.logger.Debug("asset not found in account balances",
		"account", accountID, "asset", f.asset.Code)
	return "0", nil
}

// Compile-time interface check
var _ sofizpay.BalanceFetcher = (*AccountFetcher)(nil)
