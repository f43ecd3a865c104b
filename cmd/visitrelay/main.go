package main

import (
	"log"

	"github.com/MrSnakeDoc/visitrelay/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ visitrelay failed to start: %v", err)
	}
}
