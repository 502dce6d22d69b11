package main

import (
	cmd "github.com/chatrag/chatrag/cmd/chatrag"
	"github.com/chatrag/chatrag/internal"
)

var log = internal.GetLogger()

func main() {
	log.Debug("Starting chatrag")
	cmd.Execute()
}
