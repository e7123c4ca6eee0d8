package main

import (
	"flag"
	"log"
	"net/http"

	scenarios "github.com/ShroXd/cascade/internal/mock"
)

func main() {
	addr := flag.String("addr", ":6657", "listen address")
	flag.Parse()

	log.Printf("Mock server is running on http://localhost%s", *addr)
	if err := http.ListenAndServe(*addr, scenarios.NewMux()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
