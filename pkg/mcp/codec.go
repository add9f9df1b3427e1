package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedValue wraps a decode error for a single syntactically
// invalid JSON value on the wire. It is never returned for true I/O
// failures (including EOF) -- only for a value that was read but could
// not be parsed. Callers treat it as a per-value parse error: log it and
// keep reading, rather than tearing down the whole stream.
var ErrMalformedValue = errors.New("mcp: malformed JSON value")

// ValueReader reads a stream of whitespace-separated, concatenated JSON
// values -- the MCP stdio wire format: concatenated JSON values
// separated by whitespace, line-tolerant, so it reads input not
// separated by newlines as long as the JSON is syntactically valid. A
// bufio.Scanner (newline-delimited) cannot offer this guarantee, so
// ValueReader wraps encoding/json.Decoder directly in stream-of-values
// mode.
//
// A malformed value does not end the stream: ValueReader resynchronizes
// past it using the decoder's buffered-but-unparsed bytes (Decoder
// doesn't discard what it already read from r when Decode fails) and
// keeps reading, so one bad value from a host or server costs only that
// one message.
type ValueReader struct {
	dec *json.Decoder
	src io.Reader
}

// NewValueReader creates a ValueReader over r.
func NewValueReader(r io.Reader) *ValueReader {
	return &ValueReader{dec: json.NewDecoder(r), src: r}
}

// Next reads the next JSON value as raw bytes. Returns io.EOF when the
// stream is genuinely exhausted. A syntactically invalid value returns
// an error wrapping ErrMalformedValue after resynchronizing past it;
// the next call to Next resumes at the following value rather than
// repeating the same error forever.
func (r *ValueReader) Next() (json.RawMessage, error) {
	var raw json.RawMessage
	err := r.dec.Decode(&raw)
	if err == nil {
		return raw, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) && !errors.Is(err, io.ErrUnexpectedEOF) {
		// A read failure from the underlying source, not a bad value.
		return nil, err
	}

	r.resync()
	return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
}

// resync rebuilds dec so the next Next call starts past the value that
// just failed to parse, instead of re-reading the same bad bytes.
//
// dec.Buffered() returns the bytes already pulled from src that the
// decoder has not yet handed back via Decode -- including whatever
// malformed value it choked on, and possibly the start of the next one.
// Scan that buffer for the next plausible top-level value boundary ('{'
// or '[') and resume decoding from there, chained with whatever remains
// unread on src.
func (r *ValueReader) resync() {
	buffered, _ := io.ReadAll(r.dec.Buffered())
	rest := skipPastMalformedValue(buffered)
	r.dec = json.NewDecoder(io.MultiReader(bytes.NewReader(rest), r.src))
}

// skipPastMalformedValue drops the leading bytes of buffered up to (not
// including) the next '{' or '[' found at index 1 or later, guaranteeing
// forward progress even if the malformed value itself contains braces.
// If no further value start is found, the whole buffer is discarded: it
// is entirely the tail of the bad value, and the next Next call falls
// through to src for the following one.
func skipPastMalformedValue(buffered []byte) []byte {
	for i := 1; i < len(buffered); i++ {
		if buffered[i] == '{' || buffered[i] == '[' {
			return buffered[i:]
		}
	}
	return nil
}

// WriteValue writes payloads byte-for-byte as received, followed by a
// single newline. It never re-serializes a Message's Raw field, so
// byte-for-byte fidelity with the original wire bytes is preserved.
func WriteValue(w io.Writer, raw json.RawMessage) error {
	if _, err := w.Write(raw); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}
