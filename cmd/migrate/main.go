package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/luhive/luhive-backend/pkg/config"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|to|status|create|validate")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	// files only, no config needed
	switch *cmd {
	case "create":
		path, err := migrate.Create(migrate.SourceDir, *name, time.Now())
		if err != nil {
			fail("create", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.Validate(os.DirFS(migrate.SourceDir)); err != nil {
			fail("validate", err)
		}
		fmt.Println("migrations ok")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail("config", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.db_unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "migrate.db_unavailable", err)
		os.Exit(1)
	}
	migrator, err := migrate.New(sqlDB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.init_failed", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "to":
		err = migrator.To(ctx, *target)
	case "status":
		err = printStatus(ctx, migrator)
	default:
		err = fmt.Errorf("unknown -cmd %q", *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
}

func printStatus(ctx context.Context, migrator *migrate.Migrator) error {
	rows, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED AT\tFILE")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", row.Version, applied, row.File)
	}
	return w.Flush()
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "migrate %s: %v\n", step, err)
	os.Exit(1)
}
