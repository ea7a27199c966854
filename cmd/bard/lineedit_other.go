//go:build !linux

package main

import "fmt"

func readInteractiveLine(prompt string) (string, error) {
	if stdinIsTTY() {
		fmt.Print(prompt)
	}
	return readPlainLine()
}
