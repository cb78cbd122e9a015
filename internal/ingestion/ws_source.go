package ingestion

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"backtest-lab/internal/events"
	"backtest-lab/internal/observability"
)

// WSConfig configures websocket capture behavior.
type WSConfig struct {
	URL   string
	Chain string // ChainSolana | ChainEVM

	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns defaults for url and chain.
func DefaultWSConfig(url, chain string) WSConfig {
	return WSConfig{
		URL:               url,
		Chain:             chain,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource captures chain events over a JSON-RPC websocket
// subscription. It reconnects with exponential backoff and
// resubscribes after every reconnect. Events are delivered with a
// blocking send so none are dropped; the channel buffer absorbs
// bursts.
type WSSource struct {
	config     WSConfig
	logger     *logrus.Entry
	classifier *Classifier

	conn      *websocket.Conn
	requestID uint64

	// subscription IDs by stream kind, rebuilt on reconnect
	headsSubID   string
	pendingSubID string

	ch chan events.Event
}

var _ Source = (*WSSource)(nil)

// NewWSSource creates a websocket capture source.
func NewWSSource(logger *logrus.Entry, config WSConfig) (*WSSource, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("ingestion: websocket url is required")
	}
	if config.Chain != ChainSolana && config.Chain != ChainEVM {
		return nil, fmt.Errorf("ingestion: unknown chain %q", config.Chain)
	}
	return &WSSource{
		config:     config,
		logger:     logger,
		classifier: NewClassifier(0),
		ch:         make(chan events.Event, 10000),
	}, nil
}

// Events implements Source.
func (s *WSSource) Events() <-chan events.Event { return s.ch }

// Run connects and captures until ctx is done. Transient connection
// errors trigger reconnects; Run only returns on cancellation.
func (s *WSSource) Run(ctx context.Context) error {
	defer close(s.ch)

	delay := s.config.ReconnectDelay

	for {
		if err := s.connect(ctx); err != nil {
			observability.RecordCaptureError("connect")
			s.logger.WithError(err).WithField("delay", delay).Warn("connect failed, backing off")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = backoff(delay, s.config.MaxReconnectDelay)
			continue
		}

		delay = s.config.ReconnectDelay
		err := s.readLoop(ctx)
		s.closeConn()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		observability.RecordCaptureError("read")
		s.logger.WithError(err).Warn("connection lost, reconnecting")
	}
}

func backoff(delay, max time.Duration) time.Duration {
	delay *= 2
	if delay > max {
		delay = max
	}
	return delay
}

func (s *WSSource) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	s.conn = conn

	if err := s.subscribe(); err != nil {
		s.closeConn()
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"url":   s.config.URL,
		"chain": s.config.Chain,
	}).Info("capture connected")
	return nil
}

func (s *WSSource) closeConn() {
	if s.conn == nil {
		return
	}
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()
	s.conn = nil
	s.headsSubID = ""
	s.pendingSubID = ""
}

// subscribe issues the chain-appropriate subscription requests. The
// subscription IDs come back in the read loop as plain responses and
// are matched by request ID there.
func (s *WSSource) subscribe() error {
	switch s.config.Chain {
	case ChainSolana:
		return s.writeRequest("slotSubscribe", nil)
	case ChainEVM:
		if err := s.writeRequest("eth_subscribe", []interface{}{"newHeads"}); err != nil {
			return err
		}
		return s.writeRequest("eth_subscribe", []interface{}{"newPendingTransactions", true})
	}
	return fmt.Errorf("unknown chain %q", s.config.Chain)
}

func (s *WSSource) writeRequest(method string, params []interface{}) error {
	s.requestID++
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      s.requestID,
		Method:  method,
		Params:  params,
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write %s: %w", method, err)
	}
	return nil
}

func (s *WSSource) readLoop(ctx context.Context) error {
	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()

	msgs := make(chan []byte, 64)
	errs := make(chan error, 1)
	connDone := make(chan struct{})
	defer close(connDone)

	go func() {
		for {
			s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
			_, message, err := s.conn.ReadMessage()
			if err != nil {
				select {
				case errs <- err:
				case <-connDone:
				}
				return
			}
			select {
			case msgs <- message:
			case <-connDone:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		case message := <-msgs:
			if err := s.handleMessage(ctx, message); err != nil {
				return err
			}
		}
	}
}

func (s *WSSource) handleMessage(ctx context.Context, message []byte) error {
	// Subscription confirmation: {"id": N, "result": <sub id>}
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID > 0 && len(resp.Result) > 0 {
		s.recordSubscription(resp.ID, resp.Result)
		return nil
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Params == nil {
		return nil
	}

	switch notif.Method {
	case "slotNotification":
		return s.handleSlot(ctx, notif.Params.Result)
	case "eth_subscription":
		return s.handleEVM(ctx, notif.Params)
	}
	return nil
}

// recordSubscription matches a confirmation to the request that
// produced it. Requests go out in a fixed order per chain: solana has
// a single slot subscription; EVM subscribes heads first, pending
// second.
func (s *WSSource) recordSubscription(reqID uint64, result json.RawMessage) {
	subID := string(result)
	subID = strings.Trim(subID, `"`)

	if s.config.Chain == ChainSolana || reqID%2 == 1 {
		s.headsSubID = subID
	} else {
		s.pendingSubID = subID
	}
	s.logger.WithFields(logrus.Fields{
		"request_id":      reqID,
		"subscription_id": subID,
	}).Debug("subscription confirmed")
}

func (s *WSSource) handleSlot(ctx context.Context, result json.RawMessage) error {
	var slot struct {
		Parent uint64 `json:"parent"`
		Root   uint64 `json:"root"`
		Slot   uint64 `json:"slot"`
	}
	if err := json.Unmarshal(result, &slot); err != nil {
		observability.RecordCaptureError("parse_slot")
		return nil
	}

	ev := &events.BlockEvent{
		Base:        events.Base{At: time.Now().UTC(), Prio: priorityChainEvent},
		Chain:       ChainSolana,
		BlockNumber: slot.Slot,
		Slot:        slot.Slot,
	}
	observability.RecordBlockCaptured()
	return s.emit(ctx, ev)
}

func (s *WSSource) handleEVM(ctx context.Context, params *wsNotificationParams) error {
	subID := strings.Trim(string(params.Subscription), `"`)

	switch subID {
	case s.headsSubID:
		return s.handleNewHead(ctx, params.Result)
	case s.pendingSubID:
		return s.handlePendingTx(ctx, params.Result)
	}
	return nil
}

func (s *WSSource) handleNewHead(ctx context.Context, result json.RawMessage) error {
	var head struct {
		Number     string `json:"number"`
		Hash       string `json:"hash"`
		ParentHash string `json:"parentHash"`
		GasUsed    string `json:"gasUsed"`
		BaseFee    string `json:"baseFeePerGas"`
		Timestamp  string `json:"timestamp"`
	}
	if err := json.Unmarshal(result, &head); err != nil {
		observability.RecordCaptureError("parse_head")
		return nil
	}

	at := time.Now().UTC()
	if ts := hexToUint64(head.Timestamp); ts > 0 {
		at = time.Unix(int64(ts), 0).UTC()
	}

	ev := &events.BlockEvent{
		Base:        events.Base{At: at, Prio: priorityChainEvent},
		Chain:       ChainEVM,
		BlockNumber: hexToUint64(head.Number),
		BlockHash:   head.Hash,
		ParentHash:  head.ParentHash,
		GasUsed:     hexToUint64(head.GasUsed),
		BaseFee:     hexToUint64(head.BaseFee),
	}
	observability.RecordBlockCaptured()
	return s.emit(ctx, ev)
}

func (s *WSSource) handlePendingTx(ctx context.Context, result json.RawMessage) error {
	var tx struct {
		Hash     string `json:"hash"`
		From     string `json:"from"`
		To       string `json:"to"`
		Value    string `json:"value"`
		GasPrice string `json:"gasPrice"`
		Gas      string `json:"gas"`
		Input    string `json:"input"`
	}
	if err := json.Unmarshal(result, &tx); err != nil {
		observability.RecordCaptureError("parse_pending_tx")
		return nil
	}

	ev := &events.MempoolEvent{
		Base:     events.Base{At: time.Now().UTC(), Prio: priorityChainEvent},
		TxHash:   tx.Hash,
		From:     tx.From,
		To:       tx.To,
		Value:    hexToDecimal(tx.Value),
		GasPrice: hexToUint64(tx.GasPrice),
		GasLimit: hexToUint64(tx.Gas),
		Data:     hexToBytes(tx.Input),
	}

	if mevType := s.classifier.Classify(ev); mevType != events.MEVTypeNone {
		observability.RecordMEVDetected(string(mevType))
		s.logger.WithFields(logrus.Fields{
			"tx_hash":  ev.TxHash,
			"target":   ev.To,
			"mev_type": mevType,
		}).Debug("MEV pattern detected")
	}

	observability.RecordMempoolTxCaptured()
	return s.emit(ctx, ev)
}

func (s *WSSource) emit(ctx context.Context, ev events.Event) error {
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func hexToUint64(s string) uint64 {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

func hexToDecimal(s string) decimal.Decimal {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return decimal.Zero
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

func hexToBytes(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// JSON-RPC message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}
