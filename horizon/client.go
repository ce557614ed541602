// Package horizon provides the Horizon-backed implementations of the SDK's
// ledger components: payment submission, transaction history, by-hash lookup,
// balance reads, and live transaction streaming with reconnection.
package horizon

import (
	"context"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	hProtocol "github.com/stellar/go-stellar-sdk/protocols/horizon"
	"github.com/stellar/go-stellar-sdk/protocols/horizon/operations"

	"github.com/sofizpay/sdk-go"
)

// ClientInterface is the subset of horizonclient.Client this package uses.
// Components accept the interface so tests can substitute a mock.
type ClientInterface interface {
	AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error)
	Transactions(request horizonclient.TransactionRequest) (hProtocol.TransactionsPage, error)
	TransactionDetail(txHash string) (hProtocol.Transaction, error)
	Operations(request horizonclient.OperationRequest) (operations.OperationsPage, error)
	SubmitTransactionXDR(transactionXdr string) (hProtocol.Transaction, error)
	StreamTransactions(ctx context.Context, request horizonclient.TransactionRequest, handler horizonclient.TransactionHandler) error
}

// NewClient creates a Horizon client for the given server URL.
func NewClient(horizonURL string) *horizonclient.Client {
	return &horizonclient.Client{HorizonURL: horizonURL}
}

// direction derives whether a payment was sent or received by the queried
// account. It is always computed from the payment source, never stored.
func direction(from, accountID string) sofizpay.Direction {
	if from == accountID {
		return sofizpay.DirectionSent
	}
	return sofizpay.DirectionReceived
}

// Compile-time interface check
var _ ClientInterface = (*horizonclient.Client)(nil)
