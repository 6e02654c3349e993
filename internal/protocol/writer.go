package protocol

import (
	"strconv"
	"time"
)

const fieldSep byte = 0x00

// Writer assembles one outgoing message as an ordered field list. All scalar
// values travel as ASCII text; every field is NUL-terminated on the wire.
type Writer struct {
	kind OutgoingKind
	buf  []byte
}

// NewWriter starts a message of the given kind. The kind itself is the first
// field of the payload.
func NewWriter(kind OutgoingKind) *Writer {
	w := &Writer{kind: kind}
	w.AddLong(int64(kind))
	return w
}

func (w *Writer) Kind() OutgoingKind { return w.kind }

func (w *Writer) AddString(v string) *Writer {
	w.buf = append(w.buf, v...)
	w.buf = append(w.buf, fieldSep)
	return w
}

func (w *Writer) AddInt(v int) *Writer {
	return w.AddString(strconv.Itoa(v))
}

func (w *Writer) AddLong(v int64) *Writer {
	return w.AddString(strconv.FormatInt(v, 10))
}

func (w *Writer) AddFloat(v float64) *Writer {
	return w.AddString(strconv.FormatFloat(v, 'g', -1, 64))
}

// AddBool encodes booleans as "1"/"0".
func (w *Writer) AddBool(v bool) *Writer {
	if v {
		return w.AddString("1")
	}
	return w.AddString("0")
}

// AddTime encodes t as "YYYYMMDD HH:MM:SS".
func (w *Writer) AddTime(t time.Time) *Writer {
	return w.AddString(t.Format("20060102 15:04:05"))
}

// Payload returns the unframed field bytes.
func (w *Writer) Payload() []byte { return w.buf }

// Bytes returns the complete length-prefixed frame.
func (w *Writer) Bytes() []byte { return Frame(w.buf) }
