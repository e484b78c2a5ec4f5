package diag

import (
	"errors"
	"io"
	"reflect"
	"testing"
)

func valueOf(s Snapshot, key string) (string, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func TestParsePreservesBodyOrder(t *testing.T) {
	snap, err := Parse([]byte(`{"Python version":"3.11.9","Operating System":"Linux 6.8","CPU":"Ryzen 9","GPU":"RTX 4090"}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []string{"Python version", "Operating System", "CPU", "GPU"}
	if got := snap.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
}

func TestParseStringifiesNonStringValues(t *testing.T) {
	snap, err := Parse([]byte(`{"a":null,"b":12.5,"c":true,"d":{"x":1},"e":[1,2]}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := Snapshot{
		{Key: "a", Value: "null"},
		{Key: "b", Value: "12.5"},
		{Key: "c", Value: "true"},
		{Key: "d", Value: `{"x":1}`},
		{Key: "e", Value: "[1,2]"},
	}
	if !reflect.DeepEqual(snap, want) {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestParseDuplicateKeyKeepsFirstPosition(t *testing.T) {
	snap, err := Parse([]byte(`{"CPU":"old","GPU":"g","CPU":"new"}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := Snapshot{{Key: "CPU", Value: "new"}, {Key: "GPU", Value: "g"}}
	if !reflect.DeepEqual(snap, want) {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestParseEmptyObject(t *testing.T) {
	snap, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if snap == nil || len(snap) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %#v", snap)
	}
}

func TestParseRejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"array":     `["CPU"]`,
		"string":    `"CPU"`,
		"html":      `<html>oops</html>`,
		"empty":     ``,
		"truncated": `{"CPU":"Ryzen`,
		"unclosed":  `{"CPU":"Ryzen 9"`,
		"trailing":  `{"CPU":"x"} garbage`,
		"concat":    `{"a":"b"}{"c":"d"}`,
		"bracket":   `{"CPU":"Ryzen 9"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(body)); err == nil {
				t.Fatalf("expected error for %s body", name)
			}
		})
	}
}

func TestParseAllowsTrailingWhitespace(t *testing.T) {
	snap, err := Parse([]byte("{\"CPU\":\"Ryzen 9\"}\r\n \t\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(snap) != 1 || snap[0].Value != "Ryzen 9" {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestParseTrailingDataError(t *testing.T) {
	_, err := Parse([]byte(`{"CPU":"Ryzen 9"}{"GPU":"x"}`))
	if !errors.Is(err, ErrTrailingData) {
		t.Fatalf("expected trailing data error, got %v", err)
	}
}

func TestParseTruncatedReportsUnexpectedEOF(t *testing.T) {
	_, err := Parse([]byte(`{"CPU":"Ryzen 9"`))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}

func TestRedactRemovesDeniedKeysAnywhere(t *testing.T) {
	snap := Snapshot{
		{Key: "Env: PYTHONPATH", Value: "/opt/py"},
		{Key: "CPU", Value: "Ryzen 9"},
		{Key: "env: cuda_home", Value: "/usr/local/cuda"},
		{Key: "GPU", Value: "RTX 4090"},
		{Key: " Env: LD_LIBRARY_PATH ", Value: "/usr/lib"},
	}
	got := Redact(snap)
	want := Snapshot{{Key: "CPU", Value: "Ryzen 9"}, {Key: "GPU", Value: "RTX 4090"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected redacted snapshot: %#v", got)
	}
	if len(snap) != 5 {
		t.Fatalf("Redact must not modify its input")
	}
}

func TestRedactKeepsOtherEnvEntries(t *testing.T) {
	got := Redact(Snapshot{{Key: "Env: HOME", Value: "/root"}})
	if len(got) != 1 {
		t.Fatalf("expected unrelated env entry to survive, got %#v", got)
	}
}

func TestRedactNil(t *testing.T) {
	if Redact(nil) != nil {
		t.Fatalf("expected nil snapshot to stay nil")
	}
}

func TestErrorSnapshot(t *testing.T) {
	snap := ErrorSnapshot()
	if len(snap) != 1 {
		t.Fatalf("expected one entry, got %d", len(snap))
	}
	if v, ok := valueOf(snap, "Error"); !ok || v != "Failed to fetch system information. Check console for details." {
		t.Fatalf("unexpected error entry: %#v", snap)
	}
}

func TestFingerprintOrderSensitive(t *testing.T) {
	a := Snapshot{{Key: "CPU", Value: "x"}, {Key: "GPU", Value: "y"}}
	b := Snapshot{{Key: "GPU", Value: "y"}, {Key: "CPU", Value: "x"}}
	if a.Fingerprint() != append(Snapshot{}, a...).Fingerprint() {
		t.Fatalf("fingerprint must be stable")
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("expected reordering to change the fingerprint")
	}
	// key/value boundary must be part of the hash
	c := Snapshot{{Key: "ab", Value: "c"}}
	d := Snapshot{{Key: "a", Value: "bc"}}
	if c.Fingerprint() == d.Fingerprint() {
		t.Fatalf("expected key/value split to change the fingerprint")
	}
}
