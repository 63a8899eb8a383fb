package utils

import "testing"

func TestLimit(t *testing.T) {
	if got := Limit("short", 10); got != "short" {
		t.Fatalf("Limit(short) = %q", got)
	}
	if got := Limit("hello world", 5); got != "hello..." {
		t.Fatalf("Limit = %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("  a \n\t b   c "); got != "a b c" {
		t.Fatalf("CollapseWhitespace = %q", got)
	}
}

func TestStr(t *testing.T) {
	if Str(nil) != "" {
		t.Fatalf("Str(nil) should be empty")
	}
	if Str(42) != "42" {
		t.Fatalf("Str(42) = %q", Str(42))
	}
}
