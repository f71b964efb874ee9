package main

import (
	"log"

	"github.com/tbaiguzhinov/pizza-bot/core/cmd"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "configs/config.yaml",
	})
	if err != nil {
		log.Fatalf("pizza-bot: %v", err)
	}
}
