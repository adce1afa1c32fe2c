package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/database/migrations"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Standalone migration tool: applies the schema and optionally seeds a few
// guests and ushers for local development.
func main() {
	seed := flag.Bool("seed", false, "insert development seed data after migrating")
	dir := flag.String("dir", "./migrations", "migrations directory")
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer sqldb.Close()

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: *dir})
	if err := runner.RunMigrations(); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	log.Println("migrations applied")

	if !*seed {
		return
	}

	ctx := context.Background()
	now := time.Now()

	ushers := []models.Usher{
		{Username: "jane", DisplayName: "Jane", Role: models.RoleUsher, CreatedAt: now},
		{Username: "admin", DisplayName: "Admin", Role: models.RoleAdmin, CreatedAt: now},
	}
	if _, err := bunDB.NewInsert().Model(&ushers).On("CONFLICT (username) DO NOTHING").Exec(ctx); err != nil {
		log.Fatalf("failed to seed ushers: %v", err)
	}

	guests := []models.Guest{
		{GuestID: "G001", FirstName: "Ada", LastName: "Lovelace", TicketClass: "VIP", PlusOnesAllowed: 2, Status: models.StatusNotCheckedIn, CreatedAt: now},
		{GuestID: "G002", FirstName: "Alan", LastName: "Turing", TicketClass: "GENERAL", PlusOnesAllowed: 1, Status: models.StatusNotCheckedIn, CreatedAt: now},
		{GuestID: "G003", FirstName: "Grace", LastName: "Hopper", TicketClass: "GENERAL", PlusOnesAllowed: 0, Status: models.StatusNotCheckedIn, CreatedAt: now},
	}
	if _, err := bunDB.NewInsert().Model(&guests).On("CONFLICT (guest_id) DO NOTHING").Exec(ctx); err != nil {
		log.Fatalf("failed to seed guests: %v", err)
	}

	log.Println("seed data inserted")
}
