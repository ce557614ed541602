package horizon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	hProtocol "github.com/stellar/go-stellar-sdk/protocols/horizon"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/core/net"
	"github.com/sofizpay/sdk-go/errors"
)

// Default stream timing knobs.
const (
	DefaultCheckInterval = 30 * time.Second
	defaultHistoryPause  = 50 * time.Millisecond
)

// Streamer implements sofizpay.StreamManager. Each Start call opens one live
// transaction subscription for an account and runs it in its own goroutine:
// inbound events are re-fetched in full through the retrying fetcher, filtered
// to the configured asset, and delivered to the session's handler; stream
// faults trigger a fixed-interval sleep followed by an automatic restart,
// until the session is cancelled.
type Streamer struct {
	client     ClientInterface
	fetcher    *net.Client
	horizonURL string
	asset      sofizpay.Asset
	history    sofizpay.HistoryFetcher
	logger     *slog.Logger
}

// StreamerOption is a function that configures a Streamer.
type StreamerOption func(*Streamer)

// WithFetcher sets the retrying HTTP fetcher used for per-event secondary
// fetches. These fetches are subject to the same rate limiting as the
// subscription itself.
func WithFetcher(fetcher *net.Client) StreamerOption {
	return func(s *Streamer) {
		s.fetcher = fetcher
	}
}

// WithHorizonURL sets the Horizon base URL for secondary fetches.
func WithHorizonURL(url string) StreamerOption {
	return func(s *Streamer) {
		s.horizonURL = url
	}
}

// WithAsset sets the asset filter.
func WithAsset(asset sofizpay.Asset) StreamerOption {
	return func(s *Streamer) {
		s.asset = asset
	}
}

// WithHistory sets the fetcher used for backfill replay.
func WithHistory(history sofizpay.HistoryFetcher) StreamerOption {
	return func(s *Streamer) {
		s.history = history
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) StreamerOption {
	return func(s *Streamer) {
		s.logger = logger
	}
}

// NewStreamer creates a StreamManager streaming from the given Horizon client.
func NewStreamer(client ClientInterface, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		client:     client,
		horizonURL: sofizpay.DefaultHorizonURL,
		asset:      sofizpay.Asset{Code: sofizpay.DefaultAssetCode, Issuer: sofizpay.DefaultAssetIssuer},
		logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		s.fetcher = net.NewClient()
	}
	if s.history == nil {
		s.history = NewHistory(client, s.asset, s.logger)
	}

	return s
}

// handle cancels one stream session. Close is safe to call any number of
// times; the first call wins.
type handle struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func (h *handle) Close() {
	h.closeOnce.Do(h.cancel)
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

// Start opens a stream session for accountID and returns its cancellation
// handle. When opts.WithHistory is set, up to opts.HistoryLimit past matching
// records are replayed oldest-first, followed by one history-complete
// sentinel, before live delivery begins. The session runs until the handle is
// closed or ctx is cancelled.
func (s *Streamer) Start(ctx context.Context, accountID string, handler sofizpay.TransactionHandler, opts sofizpay.StreamOptions) (sofizpay.StreamHandle, error) {
	if accountID == "" {
		return nil, errors.NewStreamError(errors.STREAM_ERROR, "account identifier is required", nil)
	}
	if handler == nil {
		return nil, errors.NewStreamError(errors.STREAM_ERROR, "transaction handler is required", nil)
	}

	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.HistoryPause <= 0 {
		opts.HistoryPause = defaultHistoryPause
	}
	if opts.Cursor == "" {
		opts.Cursor = "now"
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	h := &handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.run(sessionCtx, h, accountID, handler, opts)

	return h, nil
}

// run is the session loop: backfill once, then stream, sleeping for the check
// interval and restarting whenever the subscription fails. Cancellation is
// observed before each reconnect attempt and before each delivery.
func (s *Streamer) run(ctx context.Context, h *handle, accountID string, handler sofizpay.TransactionHandler, opts sofizpay.StreamOptions) {
	defer close(h.done)

	machine := newStateMachine(s.logger)

	if opts.WithHistory {
		s.backfill(ctx, accountID, handler, opts)
	}

	cursor := opts.Cursor
	for {
		select {
		case <-ctx.Done():
			machine.to(stateIdle)
			return
		default:
		}

		machine.to(stateStreaming)
		s.logger.Info("transaction stream open", "account", accountID, "cursor", cursor)

		request := horizonclient.TransactionRequest{
			ForAccount: accountID,
			Cursor:     cursor,
		}
		err := s.client.StreamTransactions(ctx, request, func(tx hProtocol.Transaction) {
			cursor = tx.PT
			s.processEvent(ctx, accountID, tx, handler)
		})

		if err == nil || ctx.Err() != nil {
			machine.to(stateIdle)
			return
		}

		machine.to(stateReconnecting)
		s.logger.Warn("transaction stream error, restarting",
			"account", accountID, "error", err, "wait", opts.CheckInterval)

		select {
		case <-time.After(opts.CheckInterval):
		case <-ctx.Done():
			machine.to(stateIdle)
			return
		}
	}
}

// processEvent re-fetches one inbound transaction in full and delivers one
// record per matching operation, in the order operations appear. A fault or
// panic inside event processing is logged per event and never tears down the
// subscription.
func (s *Streamer) processEvent(ctx context.Context, accountID string, tx hProtocol.Transaction, handler sofizpay.TransactionHandler) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.NewStreamError(errors.HANDLER_PANIC,
				fmt.Sprintf("panic while processing transaction %s", tx.ID), nil)
			s.logger.Error("recovered from event processing panic", "error", err, "panic", r)
		}
	}()

	detail, ops, err := s.fetchEvent(ctx, tx.ID)
	if err != nil {
		s.logger.Error("failed to fetch transaction details", "id", tx.ID, "error", err)
		return
	}

	processedAt := time.Now().UTC()
	for _, op := range ops {
		if !s.asset.Matches(op.AssetCode, op.AssetIssuer) || op.Amount == "" {
			continue
		}

		to := op.To
		if to == "" {
			to = op.Destination
		}

		record := sofizpay.Transaction{
			ID:          detail.Hash,
			Hash:        detail.Hash,
			Memo:        detail.Memo,
			Amount:      op.Amount,
			From:        op.SourceAccount,
			To:          to,
			AssetCode:   op.AssetCode,
			AssetIssuer: op.AssetIssuer,
			Direction:   direction(op.SourceAccount, accountID),
			Status:      "completed",
			PagingToken: tx.PT,
			CreatedAt:   detail.CreatedAt,
			ProcessedAt: processedAt,
		}

		// Cancellation stops future deliveries, not the fetch above.
		if ctx.Err() != nil {
			return
		}
		handler(record)
	}
}

// backfill replays past matching records oldest-first with a small pause
// between deliveries, then delivers the history-complete sentinel. Backfill
// failure is non-fatal: live streaming proceeds regardless.
func (s *Streamer) backfill(ctx context.Context, accountID string, handler sofizpay.TransactionHandler, opts sofizpay.StreamOptions) {
	records, err := s.history.List(ctx, accountID, opts.HistoryLimit, "")
	if err != nil {
		s.logger.Warn("could not load previous transactions, going live without history",
			"account", accountID, "error", err)
		return
	}
	if len(records) == 0 {
		return
	}

	// The listing is newest-first; replay oldest-first.
	for i := len(records) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return
		}

		record := records[i]
		record.Historical = true
		handler(record)

		select {
		case <-time.After(opts.HistoryPause):
		case <-ctx.Done():
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	handler(sofizpay.Transaction{
		ID:              "HISTORY_COMPLETE",
		HistoryComplete: true,
		HistoricalCount: len(records),
		ProcessedAt:     time.Now().UTC(),
	})
	s.logger.Info("historical replay complete, listening for new transactions",
		"account", accountID, "count", len(records))
}

// transactionPayload is the Horizon transaction record shape consumed from
// the raw detail endpoint during event processing.
type transactionPayload struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	Memo      string    `json:"memo"`
	CreatedAt time.Time `json:"created_at"`
}

// operationsPayload is the embedded-records page returned by the Horizon
// operations endpoint.
type operationsPayload struct {
	Embedded struct {
		Records []operationPayload `json:"records"`
	} `json:"_embedded"`
}

type operationPayload struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	SourceAccount string `json:"source_account"`
	From          string `json:"from"`
	To            string `json:"to"`
	Destination   string `json:"destination"`
	Amount        string `json:"amount"`
	AssetCode     string `json:"asset_code"`
	AssetIssuer   string `json:"asset_issuer"`
}

// fetchEvent re-fetches the full transaction and its operation list through
// the retrying fetcher. These secondary fetches are subject to the same rate
// limiting as everything else.
func (s *Streamer) fetchEvent(ctx context.Context, txID string) (*transactionPayload, []operationPayload, error) {
	var detail transactionPayload
	if err := s.fetcher.GetJSON(ctx, fmt.Sprintf("%s/transactions/%s", s.horizonURL, txID), &detail); err != nil {
		return nil, nil, err
	}

	var ops operationsPayload
	if err := s.fetcher.GetJSON(ctx, fmt.Sprintf("%s/transactions/%s/operations", s.horizonURL, detail.ID), &ops); err != nil {
		return nil, nil, err
	}

	return &detail, ops.Embedded.Records, nil
}

// Compile-time interface checks
var (
	_ sofizpay.StreamManager = (*Streamer)(nil)
	_ sofizpay.StreamHandle  = (*handle)(nil)
)
