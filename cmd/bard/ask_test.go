package main

import (
	"reflect"
	"testing"
)

func TestSplitStops(t *testing.T) {
	t.Run("splits on commas", func(t *testing.T) {
		got := splitStops(".,!,?")
		want := []string{".", "!", "?"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected stops: got %q want %q", got, want)
		}
	})

	t.Run("keeps interior spacing", func(t *testing.T) {
		got := splitStops("\n, the end")
		want := []string{"\n", " the end"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected stops: got %q want %q", got, want)
		}
	})

	t.Run("drops empty entries", func(t *testing.T) {
		got := splitStops(",.")
		want := []string{"."}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected stops: got %q want %q", got, want)
		}
	})
}
