package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValueReader_ConcatenatedNoNewlines(t *testing.T) {
	// The wire format is concatenated JSON values, not necessarily
	// newline-delimited.
	src := `{"jsonrpc":"2.0","id":1,"method":"a"}{"jsonrpc":"2.0","id":2,"method":"b"}`
	r := NewValueReader(strings.NewReader(src))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	second, err := r.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}

	var got struct{ Method string }
	if err := json.Unmarshal(first, &got); err != nil || got.Method != "a" {
		t.Fatalf("first value = %s, want method a", first)
	}
	if err := json.Unmarshal(second, &got); err != nil || got.Method != "b" {
		t.Fatalf("second value = %s, want method b", second)
	}

	if _, err := r.Next(); !errorIsEOF(err) {
		t.Fatalf("expected io.EOF after last value, got %v", err)
	}
}

func TestValueReader_NewlineSeparated(t *testing.T) {
	src := "{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"a\"}\n{\"jsonrpc\":\"2.0\",\"id\":2,\"method\":\"b\"}\n"
	r := NewValueReader(strings.NewReader(src))

	count := 0
	for {
		if _, err := r.Next(); err != nil {
			if errorIsEOF(err) {
				break
			}
			t.Fatalf("Next: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("got %d values, want 2", count)
	}
}

func TestValueReader_InvalidSyntaxIsNonEOFError(t *testing.T) {
	r := NewValueReader(strings.NewReader(`{not json`))
	_, err := r.Next()
	if err == nil || errorIsEOF(err) {
		t.Fatalf("expected a non-EOF decode error, got %v", err)
	}
	if !errors.Is(err, ErrMalformedValue) {
		t.Fatalf("expected error to wrap ErrMalformedValue, got %v", err)
	}
}

func TestValueReader_ResyncsPastMalformedValue(t *testing.T) {
	src := `{bad value}` + `{"jsonrpc":"2.0","id":2,"method":"b"}`
	r := NewValueReader(strings.NewReader(src))

	_, err := r.Next()
	if !errors.Is(err, ErrMalformedValue) {
		t.Fatalf("first Next: expected ErrMalformedValue, got %v", err)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("second Next after resync: %v", err)
	}
	var got struct{ Method string }
	if err := json.Unmarshal(second, &got); err != nil || got.Method != "b" {
		t.Fatalf("second value = %s, want method b", second)
	}

	if _, err := r.Next(); !errorIsEOF(err) {
		t.Fatalf("expected io.EOF after last value, got %v", err)
	}
}

func TestValueReader_MalformedThenValidInterleavedRepeatedly(t *testing.T) {
	src := `{"jsonrpc":"2.0","id":1,"method":"a"}` + `{broken` + `{"jsonrpc":"2.0","id":3,"method":"c"}`
	r := NewValueReader(strings.NewReader(src))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	var got struct{ Method string }
	if err := json.Unmarshal(first, &got); err != nil || got.Method != "a" {
		t.Fatalf("first value = %s, want method a", first)
	}

	if _, err := r.Next(); !errors.Is(err, ErrMalformedValue) {
		t.Fatalf("expected ErrMalformedValue for the broken value, got %v", err)
	}

	third, err := r.Next()
	if err != nil {
		t.Fatalf("third Next after resync: %v", err)
	}
	if err := json.Unmarshal(third, &got); err != nil || got.Method != "c" {
		t.Fatalf("third value = %s, want method c", third)
	}
}

func TestWriteValue_PreservesBytesAndAppendsNewline(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`)
	var buf bytes.Buffer
	if err := WriteValue(&buf, raw); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	want := string(raw) + "\n"
	if buf.String() != want {
		t.Fatalf("WriteValue wrote %q, want %q", buf.String(), want)
	}
}

func errorIsEOF(err error) bool {
	return err == io.EOF
}
