package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	repo "github.com/joseph-ayodele/pantry-receipts/internal/repository"
	"github.com/joseph-ayodele/pantry-receipts/internal/utils"
)

func main() {
	userID := flag.Int64("user", 1, "user whose latest receipts are listed")
	flag.Parse()

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Println("ERROR: loading configuration:", err)
		log.Println("  set PANTRY_DATABASE_DRIVER and PANTRY_DATABASE_DSN, or provide pantry.yaml")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, nil)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx, 1*time.Second); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Printf("DB health: OK (%s)", db.Dialect())

	q := db.Queries()
	cats, err := q.ListCategories(ctx)
	if err != nil {
		log.Fatalf("listing categories: %v", err)
	}
	log.Printf("categories count: %d", len(cats))
	for _, c := range cats {
		log.Printf("- [%d] %s", c.ID, c.Name)
	}

	aliases, err := q.ListAliases(ctx)
	if err != nil {
		log.Fatalf("listing aliases: %v", err)
	}
	log.Printf("aliases count: %d", len(aliases))

	receipts, err := q.ListReceipts(ctx, *userID, 5)
	if err != nil {
		log.Fatalf("listing receipts: %v", err)
	}
	for _, r := range receipts {
		log.Printf("- receipt %d %s engine=%s version=%s status=%s",
			r.ID, r.PurchaseDate.Format(time.DateOnly), r.OCREngine, utils.StrOrEmpty(r.OCRVersion), r.Status)
	}
}
