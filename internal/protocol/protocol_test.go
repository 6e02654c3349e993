package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

func TestFrameLengthPrefix(t *testing.T) {
	w := NewWriter(OutReqCurrentTime).AddInt(1)
	frame := w.Bytes()
	if got := binary.BigEndian.Uint32(frame[:4]); got != uint32(len(frame)-4) {
		t.Fatalf("length prefix %d, payload %d", got, len(frame)-4)
	}
	if !bytes.Equal(frame[4:], w.Payload()) {
		t.Fatalf("framed payload mismatch")
	}
}

func TestReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := NewWriter(OutReqPositions).AddInt(1).Payload()
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	got, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %q vs %q", got, payload)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	frame := Frame([]byte("61\x001\x00"))
	_, err := ReadFrame(bytes.NewReader(frame[:len(frame)-2]), DefaultLimits())
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	_, err = ReadFrame(bytes.NewReader(frame[:2]), DefaultLimits())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected short prefix error, got %v", err)
	}
}

func TestReadFrameLimits(t *testing.T) {
	frame := Frame(bytes.Repeat([]byte{'x'}, 64))
	_, err := ReadFrame(bytes.NewReader(frame), Limits{MaxPayloadBytes: 16})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestScalarRoundTrip(t *testing.T) {
	stamp := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	w := NewWriter(OutPlaceOrder).
		AddInt(42).
		AddLong(1<<40 + 7).
		AddFloat(123.456).
		AddString("DU12345").
		AddBool(true).
		AddBool(false).
		AddTime(stamp)

	r := NewReader(w.Payload())
	kind, err := r.Long()
	if err != nil || OutgoingKind(kind) != OutPlaceOrder {
		t.Fatalf("kind field: %d %v", kind, err)
	}
	if v, err := r.Int(); err != nil || v != 42 {
		t.Fatalf("int: %d %v", v, err)
	}
	if v, err := r.Long(); err != nil || v != 1<<40+7 {
		t.Fatalf("long: %d %v", v, err)
	}
	if v, err := r.Float(); err != nil || v != 123.456 {
		t.Fatalf("float: %v %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "DU12345" {
		t.Fatalf("string: %q %v", v, err)
	}
	if v, err := r.Bool(); err != nil || !v {
		t.Fatalf("bool true: %v %v", v, err)
	}
	if v, err := r.Bool(); err != nil || v {
		t.Fatalf("bool false: %v %v", v, err)
	}
	if v, err := r.Date(nil); err != nil || !v.Equal(stamp) {
		t.Fatalf("date: %v %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("unconsumed fields: %d", r.Remaining())
	}
}

func TestReaderTypeMismatch(t *testing.T) {
	r := NewReader([]byte("abc\x00"))
	_, err := r.Int()
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Index != 0 || de.Expected != "int" || de.Token != "abc" {
		t.Fatalf("unexpected decode error: %+v", de)
	}
}

func TestReaderExhausted(t *testing.T) {
	r := NewReader([]byte("1\x00"))
	if err := r.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if _, err := r.String(); !errors.Is(err, ErrTruncatedMessage) {
		t.Fatalf("expected ErrTruncatedMessage, got %v", err)
	}
}

func TestPeekRequestID(t *testing.T) {
	// tickPrice: kind, version, reqID, tickType, price, size, attrs
	payload := []byte("1\x006\x00905\x001\x00187.25\x00300\x000\x00")
	id, ok := PeekRequestID(InTickPrice, payload)
	if !ok || id != 905 {
		t.Fatalf("tickPrice id: %d %t", id, ok)
	}
	// position carries no request id
	if _, ok := PeekRequestID(InPosition, []byte("61\x003\x00DU1\x00")); ok {
		t.Fatalf("position should not carry a request id")
	}
}

func TestCancelKindMapping(t *testing.T) {
	if c, ok := CancelKind(OutReqMktData); !ok || c != OutCancelMktData {
		t.Fatalf("mktData cancel: %d %t", c, ok)
	}
	if _, ok := CancelKind(OutReqCurrentTime); ok {
		t.Fatalf("currentTime has no cancel counterpart")
	}
}

func TestTerminalKinds(t *testing.T) {
	if !Terminal(InPositionEnd) || !Terminal(InContractDataEnd) {
		t.Fatalf("end sentinels must be terminal")
	}
	if Terminal(InPosition) || Terminal(InTickPrice) {
		t.Fatalf("stream items must not be terminal")
	}
}
