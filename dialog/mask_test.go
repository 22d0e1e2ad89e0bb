package dialog

import (
	"testing"
)

func TestMaskExtract(t *testing.T) {
	v, err := maskValidator("9999A")
	if err != nil {
		t.Fatal(err)
	}

	got, ok := v.Extract("PO Number is 2413v")
	if !ok {
		t.Fatal("no match")
	}
	if got != "2413v" {
		t.Fatalf("got %q", got)
	}

	if _, ok := v.Extract("hello world"); ok {
		t.Fatal("should not match")
	}
}

func TestMaskRepeat(t *testing.T) {
	v, err := maskValidator("9+")
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.Extract("order 31415 confirmed")
	if !ok || got != "31415" {
		t.Fatalf("got %q (%v)", got, ok)
	}
}

func TestMaskLiteralPlus(t *testing.T) {
	// A leading '+' has no preceding class, so it's a literal.
	v, err := maskValidator("+9999999999")
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.Extract("call +1234567890 today")
	if !ok || got != "+1234567890" {
		t.Fatalf("got %q (%v)", got, ok)
	}

	if _, ok = v.Extract("call 1234567890 today"); ok {
		t.Fatal("should require the literal +")
	}
}

func TestPatternCaptureGroup(t *testing.T) {
	v, err := patternValidator(`@([\w.]+)`)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.Extract("my address is foo.bar@acme.com")
	if !ok {
		t.Fatal("no match")
	}
	if got != "acme.com" {
		t.Fatalf("got %q", got)
	}
}

func TestPatternWholeMatch(t *testing.T) {
	v, err := patternValidator(`[0-9]+`)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.Extract("pick 42 please")
	if !ok || got != "42" {
		t.Fatalf("got %q (%v)", got, ok)
	}
}
