package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/db"
	"github.com/campusbite/orderflow/pkg/instance"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/migrate"
)

type flags struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var f flags
	flag.StringVar(&f.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&f.dir, "dir", "", "migrations directory; empty uses the embedded set (create defaults to "+migrate.DefaultDir+")")
	flag.StringVar(&f.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&f.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := offline(f); !errors.Is(err, errNeedsDatabase) {
		exit(err)
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Static:      map[string]string{"instance": instance.GetID()},
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": f.cmd})

	if err := online(ctx, cfg, logg, f); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

var errNeedsDatabase = errors.New("needs database")

// offline runs the commands that only touch files.
func offline(f flags) error {
	switch f.cmd {
	case "create":
		if f.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		dir := f.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.Scaffold(dir, f.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.Validate(migrate.Source(f.dir)); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	default:
		return errNeedsDatabase
	}
}

func online(ctx context.Context, cfg *config.Config, logg *logger.Logger, f flags) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	migrator, err := migrate.New(sqlDB, migrate.Source(f.dir), logg)
	if err != nil {
		return err
	}

	switch f.cmd {
	case "up":
		return migrator.Up(ctx)
	case "down":
		return migrator.Down(ctx)
	case "version":
		version, err := migrate.ParseVersion(f.version)
		if err != nil {
			return err
		}
		return migrator.To(ctx, version)
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			state := "pending"
			if st.Applied {
				state = "applied"
			}
			fmt.Printf("%d\t%s\t%s\n", st.Version, state, st.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown -cmd value %q", f.cmd)
	}
}

func exit(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
