package main

import (
	"reflect"
	"testing"
)

func TestParseCharacters(t *testing.T) {
	t.Run("splits and trims", func(t *testing.T) {
		got := parseCharacters(" James, Raven ,Morgan")
		want := []string{"James", "Raven", "Morgan"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected roster: got %v want %v", got, want)
		}
	})

	t.Run("drops empty entries", func(t *testing.T) {
		got := parseCharacters("James,, ,Raven")
		want := []string{"James", "Raven"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected roster: got %v want %v", got, want)
		}
	})

	t.Run("all empty yields no roster", func(t *testing.T) {
		if got := parseCharacters(" , ,"); len(got) != 0 {
			t.Fatalf("expected empty roster, got %v", got)
		}
	})
}

func TestParseSay(t *testing.T) {
	t.Run("splits speaker and line", func(t *testing.T) {
		character, text, ok := parseSay("Morgan: Hello there")
		if !ok {
			t.Fatalf("expected parseSay to succeed")
		}
		if character != "Morgan" || text != "Hello there" {
			t.Fatalf("unexpected parse: got %q / %q", character, text)
		}
	})

	t.Run("splits on the first colon", func(t *testing.T) {
		character, text, ok := parseSay("Morgan: wait: stop")
		if !ok {
			t.Fatalf("expected parseSay to succeed")
		}
		if character != "Morgan" || text != "wait: stop" {
			t.Fatalf("unexpected parse: got %q / %q", character, text)
		}
	})

	t.Run("rejects missing colon", func(t *testing.T) {
		if _, _, ok := parseSay("Morgan says hi"); ok {
			t.Fatalf("expected parseSay to fail without a colon")
		}
	})

	t.Run("rejects empty halves", func(t *testing.T) {
		if _, _, ok := parseSay(": hi"); ok {
			t.Fatalf("expected parseSay to reject an empty speaker")
		}
		if _, _, ok := parseSay("Morgan: "); ok {
			t.Fatalf("expected parseSay to reject an empty line")
		}
	})
}

func TestTrimTrailingNewline(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello\n", "hello"},
		{"hello\r\n", "hello"},
		{"hello", "hello"},
		{"\n", ""},
	}
	for _, tc := range cases {
		if got := trimTrailingNewline(tc.in); got != tc.want {
			t.Fatalf("trimTrailingNewline(%q): got %q want %q", tc.in, got, tc.want)
		}
	}
}
