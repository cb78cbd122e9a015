package ingestion

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"backtest-lab/internal/events"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "test")
}

func testSource(t *testing.T, chain string) *WSSource {
	t.Helper()
	return &WSSource{
		config:     DefaultWSConfig("ws://example", chain),
		logger:     testLogger(),
		classifier: NewClassifier(0),
		ch:         make(chan events.Event, 16),
	}
}

func nextEvent(t *testing.T, s *WSSource) events.Event {
	t.Helper()
	select {
	case ev := <-s.ch:
		return ev
	default:
		t.Fatal("expected an event on the channel")
		return nil
	}
}

func TestNewWSSource_Validation(t *testing.T) {
	if _, err := NewWSSource(testLogger(), DefaultWSConfig("", ChainEVM)); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NewWSSource(testLogger(), DefaultWSConfig("ws://example", "cosmos")); err == nil {
		t.Error("expected error for unknown chain")
	}
	if _, err := NewWSSource(testLogger(), DefaultWSConfig("ws://example", ChainSolana)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWSSource_SlotNotification(t *testing.T) {
	s := testSource(t, ChainSolana)
	ctx := context.Background()

	msg := []byte(`{"jsonrpc":"2.0","method":"slotNotification","params":{"subscription":23784,"result":{"parent":99,"root":98,"slot":100}}}`)
	if err := s.handleMessage(ctx, msg); err != nil {
		t.Fatalf("handleMessage failed: %v", err)
	}

	ev, ok := nextEvent(t, s).(*events.BlockEvent)
	if !ok {
		t.Fatal("expected a BlockEvent")
	}
	if ev.Chain != ChainSolana || ev.Slot != 100 || ev.BlockNumber != 100 {
		t.Errorf("unexpected block event: %+v", ev)
	}
}

func TestWSSource_NewHead(t *testing.T) {
	s := testSource(t, ChainEVM)
	ctx := context.Background()

	// Subscription confirmations arrive in request order: heads, pending.
	if err := s.handleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"result":"0xaa"}`)); err != nil {
		t.Fatalf("heads confirmation failed: %v", err)
	}
	if err := s.handleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"result":"0xbb"}`)); err != nil {
		t.Fatalf("pending confirmation failed: %v", err)
	}
	if s.headsSubID != "0xaa" || s.pendingSubID != "0xbb" {
		t.Fatalf("subscription ids not recorded: heads=%q pending=%q", s.headsSubID, s.pendingSubID)
	}

	msg := []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xaa","result":{"number":"0x10","hash":"0xdead","parentHash":"0xbeef","gasUsed":"0x5208","baseFeePerGas":"0x3b9aca00","timestamp":"0x65f1a2c0"}}}`)
	if err := s.handleMessage(ctx, msg); err != nil {
		t.Fatalf("handleMessage failed: %v", err)
	}

	ev, ok := nextEvent(t, s).(*events.BlockEvent)
	if !ok {
		t.Fatal("expected a BlockEvent")
	}
	if ev.Chain != ChainEVM {
		t.Errorf("expected evm chain, got %s", ev.Chain)
	}
	if ev.BlockNumber != 16 {
		t.Errorf("expected block 16, got %d", ev.BlockNumber)
	}
	if ev.GasUsed != 21000 {
		t.Errorf("expected gas used 21000, got %d", ev.GasUsed)
	}
	if ev.BaseFee != 1000000000 {
		t.Errorf("expected base fee 1e9, got %d", ev.BaseFee)
	}
	if ev.BlockHash != "0xdead" || ev.ParentHash != "0xbeef" {
		t.Errorf("unexpected hashes: %s / %s", ev.BlockHash, ev.ParentHash)
	}
}

func TestWSSource_PendingTransaction(t *testing.T) {
	s := testSource(t, ChainEVM)
	ctx := context.Background()

	s.headsSubID = "0xaa"
	s.pendingSubID = "0xbb"

	msg := []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xbb","result":{"hash":"0xt1","from":"0xalice","to":"0xpool","value":"0xde0b6b3a7640000","gasPrice":"0x64","gas":"0x5208","input":"0xa9059cbb"}}}`)
	if err := s.handleMessage(ctx, msg); err != nil {
		t.Fatalf("handleMessage failed: %v", err)
	}

	ev, ok := nextEvent(t, s).(*events.MempoolEvent)
	if !ok {
		t.Fatal("expected a MempoolEvent")
	}
	if ev.TxHash != "0xt1" || ev.From != "0xalice" || ev.To != "0xpool" {
		t.Errorf("unexpected tx fields: %+v", ev)
	}
	if !ev.Value.Equal(decimal.RequireFromString("1000000000000000000")) {
		t.Errorf("expected value 1e18, got %s", ev.Value)
	}
	if ev.GasPrice != 100 || ev.GasLimit != 21000 {
		t.Errorf("unexpected gas fields: price=%d limit=%d", ev.GasPrice, ev.GasLimit)
	}
	if !bytes.Equal(ev.Data, []byte{0xa9, 0x05, 0x9c, 0xbb}) {
		t.Errorf("unexpected calldata: %x", ev.Data)
	}
}

func TestWSSource_PendingTransactionClassified(t *testing.T) {
	s := testSource(t, ChainEVM)
	ctx := context.Background()
	s.pendingSubID = "0xbb"

	first := []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xbb","result":{"hash":"0xt1","from":"0xalice","to":"0xpool","gasPrice":"0x64"}}}`)
	second := []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xbb","result":{"hash":"0xt2","from":"0xbob","to":"0xpool","gasPrice":"0xc8"}}}`)

	if err := s.handleMessage(ctx, first); err != nil {
		t.Fatalf("first tx failed: %v", err)
	}
	if err := s.handleMessage(ctx, second); err != nil {
		t.Fatalf("second tx failed: %v", err)
	}

	<-s.ch // first tx, unclassified
	ev := (<-s.ch).(*events.MempoolEvent)
	if !ev.IsPotentialMEV || ev.MEVType != events.MEVTypeFrontrun {
		t.Errorf("expected frontrun classification, got potential=%v type=%s", ev.IsPotentialMEV, ev.MEVType)
	}
}

func TestWSSource_IgnoresUnknownMessages(t *testing.T) {
	s := testSource(t, ChainEVM)
	ctx := context.Background()

	for _, msg := range []string{
		`{"jsonrpc":"2.0","id":5,"error":{"code":-32600,"message":"bad request"}}`,
		`{"jsonrpc":"2.0","method":"somethingElse","params":{"subscription":"0xzz","result":{}}}`,
		`not json at all`,
	} {
		if err := s.handleMessage(ctx, []byte(msg)); err != nil {
			t.Errorf("handleMessage(%q) failed: %v", msg, err)
		}
	}
	select {
	case ev := <-s.ch:
		t.Errorf("unexpected event emitted: %+v", ev)
	default:
	}
}

func TestHexHelpers(t *testing.T) {
	if got := hexToUint64("0x10"); got != 16 {
		t.Errorf("hexToUint64(0x10) = %d", got)
	}
	if got := hexToUint64(""); got != 0 {
		t.Errorf("hexToUint64(empty) = %d", got)
	}
	if got := hexToUint64("0xzz"); got != 0 {
		t.Errorf("hexToUint64(bad) = %d", got)
	}
	if got := hexToDecimal("0xff"); !got.Equal(decimal.NewFromInt(255)) {
		t.Errorf("hexToDecimal(0xff) = %s", got)
	}
	if got := hexToDecimal(""); !got.IsZero() {
		t.Errorf("hexToDecimal(empty) = %s", got)
	}
	if got := hexToBytes("0x0102"); !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("hexToBytes(0x0102) = %x", got)
	}
	if got := hexToBytes("0x"); got != nil {
		t.Errorf("hexToBytes(0x) = %x", got)
	}
}
