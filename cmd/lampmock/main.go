// Command lampmock is a small LAMP-compatible backend for local development
// and end-to-end tests. It serves the API subset the engine consumes from a
// sqlite file and can seed itself with a demo study.
package main

import (
	"flag"
	"log"
)

func main() {
	var (
		addr   = flag.String("addr", ":8080", "listen address")
		dbPath = flag.String("db", "lampmock.db", "sqlite database path")
		seed   = flag.Bool("seed", false, "seed a demo researcher, study, and participants")
	)
	flag.Parse()

	store, err := OpenStore(*dbPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer store.Close()

	if *seed {
		ids, err := Seed(store)
		if err != nil {
			log.Fatal("Failed to seed demo data:", err)
		}
		log.Printf("Seeded researcher %s, study %s, participants %v",
			ids.Researcher, ids.Study, ids.Participants)
	}

	router := SetupRouter(store)
	log.Printf("LAMP mock listening on %s (db %s)", *addr, *dbPath)
	if err := router.Run(*addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
