// Package main — точка входа audio-capture (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/Zilai-WANG/Web-Recording-Collection/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
