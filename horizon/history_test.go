package horizon

import (
	"context"
	"testing"
	"time"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	hProtocol "github.com/stellar/go-stellar-sdk/protocols/horizon"
	"github.com/stellar/go-stellar-sdk/protocols/horizon/base"
	"github.com/stellar/go-stellar-sdk/protocols/horizon/operations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/errors"
)

const historyAccount = "GHISTORYACCOUNT"

func paymentOp(from, to, amount, code, issuer string) operations.Payment {
	return operations.Payment{
		Base: operations.Base{
			ID:   "op-" + amount,
			Type: "payment",
		},
		Asset:  base.Asset{Type: "credit_alphanum4", Code: code, Issuer: issuer},
		From:   from,
		To:     to,
		Amount: amount,
	}
}

func transactionsPage(records ...hProtocol.Transaction) hProtocol.TransactionsPage {
	var page hProtocol.TransactionsPage
	page.Embedded.Records = records
	return page
}

func operationsPage(records ...operations.Operation) operations.OperationsPage {
	var page operations.OperationsPage
	page.Embedded.Records = records
	return page
}

func TestListFiltersAndJoins(t *testing.T) {
	closeTime := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	client := &mockClient{
		transactionsFn: func(request horizonclient.TransactionRequest) (hProtocol.TransactionsPage, error) {
			assert.Equal(t, historyAccount, request.ForAccount)
			assert.Equal(t, horizonclient.OrderDesc, request.Order)
			assert.Equal(t, uint(10), request.Limit)
			return transactionsPage(
				hProtocol.Transaction{ID: "tx1", Hash: "hash1", Memo: "order 1", PT: "1001", LedgerCloseTime: closeTime},
				hProtocol.Transaction{ID: "tx2", Hash: "hash2", Memo: "order 2", PT: "1002", LedgerCloseTime: closeTime},
			), nil
		},
		operationsFn: func(request horizonclient.OperationRequest) (operations.OperationsPage, error) {
			switch request.ForTransaction {
			case "hash1":
				return operationsPage(
					paymentOp("GSENDER", historyAccount, "10.0000000", testAsset.Code, testAsset.Issuer),
					paymentOp("GSENDER", historyAccount, "3.0000000", "USDC", "GOTHERISSUER"),
					operations.CreateAccount{Base: operations.Base{ID: "op-ca", Type: "create_account"}},
				), nil
			case "hash2":
				return operationsPage(
					paymentOp(historyAccount, "GRECIPIENT", "7.5000000", testAsset.Code, testAsset.Issuer),
				), nil
			}
			t.Fatalf("unexpected operations request for %q", request.ForTransaction)
			return operations.OperationsPage{}, nil
		},
	}

	history := NewHistory(client, testAsset, testLogger())
	records, err := history.List(context.Background(), historyAccount, 10, "")
	require.NoError(t, err)
	require.Len(t, records, 2, "non-matching assets and non-payment operations are dropped")

	first := records[0]
	assert.Equal(t, "tx1", first.ID)
	assert.Equal(t, "hash1", first.Hash)
	assert.Equal(t, "order 1", first.Memo)
	assert.Equal(t, "10.0000000", first.Amount)
	assert.Equal(t, sofizpay.DirectionReceived, first.Direction)
	assert.Equal(t, "completed", first.Status)
	assert.Equal(t, "1001", first.PagingToken)
	assert.Equal(t, closeTime, first.CreatedAt)

	second := records[1]
	assert.Equal(t, sofizpay.DirectionSent, second.Direction)
	assert.Equal(t, "GRECIPIENT", second.To)
}

func TestListSkipsTransactionOnOperationsFailure(t *testing.T) {
	client := &mockClient{
		transactionsFn: func(request horizonclient.TransactionRequest) (hProtocol.TransactionsPage, error) {
			return transactionsPage(
				hProtocol.Transaction{ID: "tx1", Hash: "broken"},
				hProtocol.Transaction{ID: "tx2", Hash: "good"},
			), nil
		},
		operationsFn: func(request horizonclient.OperationRequest) (operations.OperationsPage, error) {
			if request.ForTransaction == "broken" {
				return operations.OperationsPage{}, notFoundError()
			}
			return operationsPage(
				paymentOp("GSENDER", historyAccount, "1.0000000", testAsset.Code, testAsset.Issuer),
			), nil
		},
	}

	history := NewHistory(client, testAsset, testLogger())
	records, err := history.List(context.Background(), historyAccount, 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tx2", records[0].ID)
}

func TestListTransactionsFailure(t *testing.T) {
	history := NewHistory(&mockClient{}, testAsset, testLogger())
	_, err := history.List(context.Background(), historyAccount, 10, "")
	require.Error(t, err)

	var sdkErr *errors.SDKError
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, errors.NETWORK_ERROR, sdkErr.Code)
	assert.Equal(t, "horizon", sdkErr.Layer)
}

func TestListDefaultsLimitAndForwardsCursor(t *testing.T) {
	var seen horizonclient.TransactionRequest
	client := &mockClient{
		transactionsFn: func(request horizonclient.TransactionRequest) (hProtocol.TransactionsPage, error) {
			seen = request
			return hProtocol.TransactionsPage{}, nil
		},
	}

	history := NewHistory(client, testAsset, testLogger())
	_, err := history.List(context.Background(), historyAccount, 0, "5005")
	require.NoError(t, err)
	assert.Equal(t, uint(DefaultHistoryLimit), seen.Limit)
	assert.Equal(t, "5005", seen.Cursor)
}
