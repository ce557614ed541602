package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/core/net"
	"github.com/sofizpay/sdk-go/errors"
)

type mockSubmitter struct {
	result sofizpay.SubmissionResult
}

func (m *mockSubmitter) Submit(ctx context.Context, secret, destination, amount, memo string) sofizpay.SubmissionResult {
	return m.result
}

type mockHistory struct {
	records []sofizpay.Transaction
	err     error
}

func (m *mockHistory) List(ctx context.Context, accountID string, limit int, cursor string) ([]sofizpay.Transaction, error) {
	return m.records, m.err
}

type mockLookup struct {
	result sofizpay.LookupResult
}

func (m *mockLookup) ByHash(ctx context.Context, hash string) sofizpay.LookupResult {
	return m.result
}

type mockBalance struct {
	balance string
	err     error
}

func (m *mockBalance) Balance(ctx context.Context, accountID string) (string, error) {
	return m.balance, m.err
}

type fakeHandle struct {
	closed int
	done   chan struct{}
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan struct{})}
}

func (h *fakeHandle) Close()                { h.closed++ }
func (h *fakeHandle) Done() <-chan struct{} { return h.done }

type mockStreams struct {
	handle *fakeHandle
	err    error
	starts int
}

func (m *mockStreams) Start(ctx context.Context, accountID string, handler sofizpay.TransactionHandler, opts sofizpay.StreamOptions) (sofizpay.StreamHandle, error) {
	m.starts++
	if m.err != nil {
		return nil, m.err
	}
	return m.handle, nil
}

func assertValidationFault(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var sdkErr *errors.SDKError
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, errors.VALIDATION_REQUIRED, sdkErr.Code)
}

func TestSubmitPaymentValidation(t *testing.T) {
	client := New(WithPaymentSubmitter(&mockSubmitter{}))
	ctx := context.Background()

	_, err := client.SubmitPayment(ctx, PaymentRequest{Destination: "GDEST", Amount: "1", Memo: "m"})
	assertValidationFault(t, err)

	_, err = client.SubmitPayment(ctx, PaymentRequest{SecretKey: "S", Amount: "1", Memo: "m"})
	assertValidationFault(t, err)

	_, err = client.SubmitPayment(ctx, PaymentRequest{SecretKey: "S", Destination: "GDEST", Amount: "abc", Memo: "m"})
	assertValidationFault(t, err)

	_, err = client.SubmitPayment(ctx, PaymentRequest{SecretKey: "S", Destination: "GDEST", Amount: "-5", Memo: "m"})
	assertValidationFault(t, err)

	_, err = client.SubmitPayment(ctx, PaymentRequest{SecretKey: "S", Destination: "GDEST", Amount: "1"})
	assertValidationFault(t, err)
}

func TestSubmitPaymentEnvelopes(t *testing.T) {
	ctx := context.Background()
	request := PaymentRequest{SecretKey: "SKEY", Destination: "GDEST", Amount: "10.5", Memo: "order 1"}

	ok := New(WithPaymentSubmitter(&mockSubmitter{result: sofizpay.SubmissionResult{
		Success: true, Hash: "abcd", Duration: 1.25,
	}}))
	result, err := ok.SubmitPayment(ctx, request)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "abcd", result.TransactionHash)
	assert.Equal(t, "10.5", result.Amount)
	assert.Equal(t, "order 1", result.Memo)
	assert.Equal(t, 1.25, result.Duration)
	assert.Empty(t, result.Error)
	assert.False(t, result.Timestamp.IsZero())

	rejected := New(WithPaymentSubmitter(&mockSubmitter{result: sofizpay.SubmissionResult{
		Success: false, Error: "transaction error: tx_failed",
	}}))
	result, err = rejected.SubmitPayment(ctx, request)
	require.NoError(t, err, "a rejected submission is an envelope, not a fault")
	assert.False(t, result.Success)
	assert.Equal(t, "transaction error: tx_failed", result.Error)
	assert.Empty(t, result.TransactionHash)
}

func TestGetTransactions(t *testing.T) {
	ctx := context.Background()

	client := New(WithHistoryFetcher(&mockHistory{records: []sofizpay.Transaction{
		{ID: "tx1"}, {ID: "tx2"},
	}}))

	_, err := client.GetTransactions(ctx, "", 10)
	assertValidationFault(t, err)

	result, err := client.GetTransactions(ctx, "GACCOUNT", 10)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Transactions, 2)
	assert.Equal(t, "GACCOUNT", result.PublicKey)

	failing := New(WithHistoryFetcher(&mockHistory{err: errors.NewHorizonError(errors.NETWORK_ERROR, "down", nil)}))
	result, err = failing.GetTransactions(ctx, "GACCOUNT", 10)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.NotNil(t, result.Transactions)
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()

	client := New(WithBalanceFetcher(&mockBalance{balance: "250.0000000"}))
	_, err := client.GetBalance(ctx, "")
	assertValidationFault(t, err)

	result, err := client.GetBalance(ctx, "GACCOUNT")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "250.0000000", result.Balance)
	assert.Equal(t, sofizpay.DefaultAssetCode, result.AssetCode)

	failing := New(WithBalanceFetcher(&mockBalance{err: errors.NewHorizonError(errors.ACCOUNT_NOT_FOUND, "missing", nil)}))
	result, err = failing.GetBalance(ctx, "GACCOUNT")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "0", result.Balance)
	assert.NotEmpty(t, result.Error)
}

func TestGetPublicKey(t *testing.T) {
	client := New()

	_, err := client.GetPublicKey("")
	assertValidationFault(t, err)

	kp := keypair.MustRandom()
	result, err := client.GetPublicKey(kp.Seed())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, kp.Address(), result.PublicKey)

	result, err = client.GetPublicKey("not-a-secret")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestStreamLifecycle(t *testing.T) {
	ctx := context.Background()
	streams := &mockStreams{handle: newFakeHandle()}
	client := New(WithStreamManager(streams))
	handler := func(sofizpay.Transaction) {}

	_, err := client.StartTransactionStream(ctx, "", handler, sofizpay.StreamOptions{})
	assertValidationFault(t, err)

	_, err = client.StartTransactionStream(ctx, "GACCOUNT", nil, sofizpay.StreamOptions{})
	assertValidationFault(t, err)

	result, err := client.StartTransactionStream(ctx, "GACCOUNT", handler, sofizpay.StreamOptions{WithHistory: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, streams.starts)

	// A second start for the same account is refused without opening
	// another subscription.
	result, err = client.StartTransactionStream(ctx, "GACCOUNT", handler, sofizpay.StreamOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "already active")
	assert.Equal(t, 1, streams.starts)

	status, err := client.GetStreamStatus("GACCOUNT")
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.True(t, status.WithHistory)
	require.NotNil(t, status.StartTime)

	stop, err := client.StopTransactionStream("GACCOUNT")
	require.NoError(t, err)
	assert.True(t, stop.Success)
	assert.Equal(t, 1, streams.handle.closed)

	// Stopping again, or stopping an account never started, is safe.
	stop, err = client.StopTransactionStream("GACCOUNT")
	require.NoError(t, err)
	assert.False(t, stop.Success)
	assert.Contains(t, stop.Error, "no active transaction stream")

	status, err = client.GetStreamStatus("GACCOUNT")
	require.NoError(t, err)
	assert.False(t, status.IsActive)
	assert.Nil(t, status.StartTime)

	// After a stop the account can stream again.
	result, err = client.StartTransactionStream(ctx, "GACCOUNT", handler, sofizpay.StreamOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, streams.starts)
}

func TestStartStreamIntervalValidation(t *testing.T) {
	client := New(WithStreamManager(&mockStreams{handle: newFakeHandle()}))
	handler := func(sofizpay.Transaction) {}

	_, err := client.StartTransactionStream(context.Background(), "GACCOUNT", handler, sofizpay.StreamOptions{
		CheckInterval: time.Second,
	})
	require.Error(t, err)
	var sdkErr *errors.SDKError
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, errors.INVALID_INTERVAL, sdkErr.Code)

	_, err = client.StartTransactionStream(context.Background(), "GACCOUNT", handler, sofizpay.StreamOptions{
		CheckInterval: 10 * time.Minute,
	})
	require.Error(t, err)

	// Zero selects the default instead of failing.
	result, err := client.StartTransactionStream(context.Background(), "GACCOUNT2", handler, sofizpay.StreamOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 30*time.Second, result.CheckInterval)
}

func TestSearchTransactionsByMemo(t *testing.T) {
	ctx := context.Background()
	client := New(WithHistoryFetcher(&mockHistory{records: []sofizpay.Transaction{
		{ID: "tx1", Memo: "Order 42 paid"},
		{ID: "tx2", Memo: "refund"},
		{ID: "tx3", Memo: "ORDER 42 extra"},
		{ID: "tx4", Memo: ""},
	}}))

	_, err := client.SearchTransactionsByMemo(ctx, "", "order", 10)
	assertValidationFault(t, err)

	_, err = client.SearchTransactionsByMemo(ctx, "GACCOUNT", "", 10)
	assertValidationFault(t, err)

	result, err := client.SearchTransactionsByMemo(ctx, "GACCOUNT", "order 42", 10)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalFound)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "tx1", result.Transactions[0].ID)
	assert.Equal(t, "tx3", result.Transactions[1].ID)
	assert.Equal(t, "order 42", result.SearchMemo)

	// The limit caps the slice but not the reported total.
	result, err = client.SearchTransactionsByMemo(ctx, "GACCOUNT", "order 42", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalFound)
	assert.Len(t, result.Transactions, 1)

	result, err = client.SearchTransactionsByMemo(ctx, "GACCOUNT", "no such memo", 10)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.TotalFound)
	assert.NotNil(t, result.Transactions)
}

func TestGetTransactionByHash(t *testing.T) {
	ctx := context.Background()

	found := New(WithTransactionLookup(&mockLookup{result: sofizpay.LookupResult{
		Found:       true,
		Transaction: &sofizpay.TransactionDetail{ID: "tx1", Hash: "hash1"},
		PaymentOperations: []sofizpay.PaymentOperation{
			{ID: "op1"}, {ID: "op2"},
		},
		MatchingOperations: []sofizpay.PaymentOperation{{ID: "op1"}},
		Message:            "transaction found with 2 payment operations (1 DZT payments)",
	}}))

	_, err := found.GetTransactionByHash(ctx, "")
	assertValidationFault(t, err)

	result, err := found.GetTransactionByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Found)
	assert.Equal(t, 2, result.PaymentOperationsCount)
	assert.Equal(t, 1, result.MatchingOperationsCount)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, "hash1", result.Transaction.Hash)

	missing := New(WithTransactionLookup(&mockLookup{result: sofizpay.LookupResult{
		Found:   false,
		Message: "transaction not found on the Stellar network",
	}}))
	result, err = missing.GetTransactionByHash(ctx, "unknown")
	require.NoError(t, err, "a lookup miss is not a fault")
	assert.True(t, result.Success)
	assert.False(t, result.Found)
	assert.Empty(t, result.Error)

	faulty := New(WithTransactionLookup(&mockLookup{result: sofizpay.LookupResult{
		Found: false,
		Err:   errors.NewHorizonError(errors.NETWORK_ERROR, "horizon is down", nil),
	}}))
	result, err = faulty.GetTransactionByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Found)
	assert.NotEmpty(t, result.Error)
}

func TestVerifySignature(t *testing.T) {
	client := New()
	assert.False(t, client.VerifySignature("message", "garbage signature"))
	assert.False(t, client.VerifySignature("", ""))
}

func TestMakeCIBTransaction(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "GACCOUNT", q.Get("account"))
		assert.Equal(t, "150.00", q.Get("amount"))
		assert.Equal(t, "Amine B", q.Get("full_name"))
		assert.Equal(t, "+213550000000", q.Get("phone"))
		assert.Equal(t, "amine@example.com", q.Get("email"))
		assert.Equal(t, "order 42", q.Get("memo"))
		assert.Equal(t, "true", q.Get("redirect"))
		fmt.Fprint(w, `{"status":"pending","payment_url":"https://cib.example/pay/1"}`)
	}))
	defer server.Close()

	redirect := true
	client := New(WithCIBBaseURL(server.URL), WithHTTPClient(net.NewClient()))

	_, err := client.MakeCIBTransaction(ctx, CIBRequest{Amount: "1", FullName: "x", Phone: "y", Email: "z"})
	assertValidationFault(t, err)

	_, err = client.MakeCIBTransaction(ctx, CIBRequest{Account: "G", Amount: "zero", FullName: "x", Phone: "y", Email: "z"})
	assertValidationFault(t, err)

	result, err := client.MakeCIBTransaction(ctx, CIBRequest{
		Account:  "GACCOUNT",
		Amount:   "150.00",
		FullName: "Amine B",
		Phone:    "+213550000000",
		Email:    "amine@example.com",
		Memo:     "order 42",
		Redirect: &redirect,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.JSONEq(t, `{"status":"pending","payment_url":"https://cib.example/pay/1"}`, string(result.Data))

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway unavailable", http.StatusBadGateway)
	}))
	defer broken.Close()

	failing := New(WithCIBBaseURL(broken.URL), WithHTTPClient(net.NewClient()))
	result, err = failing.MakeCIBTransaction(ctx, CIBRequest{
		Account: "GACCOUNT", Amount: "1", FullName: "x", Phone: "y", Email: "z",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestVersion(t *testing.T) {
	client := New()
	assert.Equal(t, Version, client.Version())
	assert.NotEmpty(t, client.Version())
}
