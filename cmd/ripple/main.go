package main

import (
	"log"

	"github.com/potato-club/ripple-server/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
