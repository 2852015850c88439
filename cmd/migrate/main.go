package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/colmado/internal/config"
	"github.com/MrJamesThe3rd/colmado/internal/database"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.New(context.Background(), cfg.ConnectionString(), 1)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 0 {
		return fmt.Errorf("usage: migrate up | down [steps]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp(db)
	case "down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil || steps < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
		}

		return database.MigrateDown(db, steps)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
