package main

import (
	"log"

	"github.com/MrSnakeDoc/deferlink/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ deferlink failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ deferlink stopped with error: %v", err)
	}
}
