package protocol

import (
	"bytes"
	"strconv"
	"time"
)

// Reader walks the fields of one incoming payload sequentially. Typed
// accessors fail with a DecodeError when the current token cannot be parsed
// as requested and with ErrTruncatedMessage when no fields remain.
type Reader struct {
	fields [][]byte
	pos    int
}

// NewReader splits payload into its NUL-delimited fields.
func NewReader(payload []byte) *Reader {
	fields := bytes.Split(payload, []byte{fieldSep})
	// a NUL-terminated payload yields one trailing empty token
	if n := len(fields); n > 0 && len(fields[n-1]) == 0 {
		fields = fields[:n-1]
	}
	return &Reader{fields: fields}
}

// Remaining reports how many fields have not been consumed.
func (r *Reader) Remaining() int { return len(r.fields) - r.pos }

func (r *Reader) next() ([]byte, error) {
	if r.pos >= len(r.fields) {
		return nil, ErrTruncatedMessage
	}
	tok := r.fields[r.pos]
	r.pos++
	return tok, nil
}

// Skip discards the next field.
func (r *Reader) Skip() error {
	_, err := r.next()
	return err
}

func (r *Reader) String() (string, error) {
	tok, err := r.next()
	if err != nil {
		return "", err
	}
	return string(tok), nil
}

func (r *Reader) Int() (int, error) {
	tok, err := r.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(string(tok))
	if err != nil {
		return 0, &DecodeError{Index: r.pos - 1, Expected: "int", Token: string(tok)}
	}
	return v, nil
}

func (r *Reader) Long() (int64, error) {
	tok, err := r.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(tok), 10, 64)
	if err != nil {
		return 0, &DecodeError{Index: r.pos - 1, Expected: "long", Token: string(tok)}
	}
	return v, nil
}

func (r *Reader) Float() (float64, error) {
	tok, err := r.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(string(tok), 64)
	if err != nil {
		return 0, &DecodeError{Index: r.pos - 1, Expected: "double", Token: string(tok)}
	}
	return v, nil
}

// Bool decodes the "1"/"0" wire booleans; any non-zero int is true.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Int()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Time decodes a unix-seconds field.
func (r *Reader) Time() (time.Time, error) {
	v, err := r.Long()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0), nil
}

// Date decodes a "YYYYMMDD HH:MM:SS" field in loc (UTC when nil).
func (r *Reader) Date(loc *time.Location) (time.Time, error) {
	tok, err := r.next()
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("20060102 15:04:05", string(tok), loc)
	if err != nil {
		return time.Time{}, &DecodeError{Index: r.pos - 1, Expected: "date", Token: string(tok)}
	}
	return t, nil
}

// Kind consumes the leading kind field of an incoming payload.
func Kind(payload []byte) (IncomingKind, *Reader, error) {
	r := NewReader(payload)
	v, err := r.Long()
	if err != nil {
		return 0, nil, ErrUnknownKind
	}
	return IncomingKind(v), r, nil
}

// PeekRequestID extracts the request id of an id-carrying payload without
// consuming r's position for the caller.
func PeekRequestID(kind IncomingKind, payload []byte) (int64, bool) {
	idx, ok := RequestIDIndex(kind)
	if !ok {
		return 0, false
	}
	r := NewReader(payload)
	for i := 0; i < idx; i++ {
		if err := r.Skip(); err != nil {
			return 0, false
		}
	}
	id, err := r.Long()
	if err != nil {
		return 0, false
	}
	return id, true
}
