//cmd/seeder/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unclebandit/outreach/internal/app"
	"github.com/unclebandit/outreach/internal/config"
	"github.com/unclebandit/outreach/internal/model"
)

// seedFile lists the records loaded into the local stores.
type seedFile struct {
	Segments  []model.Segment       `json:"segments"`
	Senders   []model.SenderAccount `json:"senders"`
	Campaigns []model.Campaign      `json:"campaigns"`
	Contacts  []model.Contact       `json:"contacts"`
}

func main() {
	path := flag.String("file", "seed/outreach.json", "seed file to load")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	content, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *path, err)
	}
	var seed seedFile
	if err := json.Unmarshal(content, &seed); err != nil {
		log.Fatalf("failed to parse %s: %v", *path, err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	for i := range seed.Segments {
		if err := a.Segments.Create(ctx, &seed.Segments[i]); err != nil {
			log.Fatalf("failed to seed segment %q: %v", seed.Segments[i].Name, err)
		}
		fmt.Printf("Seeded segment: %s (%s)\n", seed.Segments[i].Name, seed.Segments[i].ID)
	}
	for i := range seed.Senders {
		if err := a.Senders.Create(ctx, &seed.Senders[i]); err != nil {
			log.Fatalf("failed to seed sender %q: %v", seed.Senders[i].ID, err)
		}
		fmt.Printf("Seeded sender: %s (%s)\n", seed.Senders[i].ID, seed.Senders[i].State)
	}
	for i := range seed.Campaigns {
		if err := a.Campaigns.Create(ctx, &seed.Campaigns[i]); err != nil {
			log.Fatalf("failed to seed campaign %q: %v", seed.Campaigns[i].Name, err)
		}
		fmt.Printf("Seeded campaign: %s (%s)\n", seed.Campaigns[i].Name, seed.Campaigns[i].ID)
	}
	for i := range seed.Contacts {
		if err := a.Contacts.Create(ctx, &seed.Contacts[i]); err != nil {
			log.Fatalf("failed to seed contact %q: %v", seed.Contacts[i].DisplayName, err)
		}
	}
	fmt.Printf("Seeded %d contacts\n", len(seed.Contacts))

	fmt.Println("Database seeding completed successfully!")
}
