package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

type command struct {
	usage string
	// offline commands only touch the migrations directory.
	offline bool
	run     func(ctx context.Context, m *migrate.Migrator, opts options) error
}

var commands = map[string]command{
	"up": {
		usage: "apply every pending migration",
		run: func(ctx context.Context, m *migrate.Migrator, _ options) error {
			from, to, err := m.Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("migrated %d -> %d\n", from, to)
			return nil
		},
	},
	"up-by-one": {
		usage: "apply the next pending migration",
		run:   gooseStep("up-by-one"),
	},
	"down": {
		usage: "roll back the latest migration",
		run:   gooseStep("down"),
	},
	"redo": {
		usage: "roll back and re-apply the latest migration",
		run:   gooseStep("redo"),
	},
	"status": {
		usage: "print applied and pending migrations",
		run:   gooseStep("status"),
	},
	"version": {
		usage: "migrate up or down to -version",
		run: func(ctx context.Context, m *migrate.Migrator, opts options) error {
			if opts.version == "" {
				return errors.New("missing -version for version command")
			}
			return m.To(ctx, opts.version)
		},
	},
	"create": {
		usage:   "create an empty SQL migration named -name",
		offline: true,
		run: func(_ context.Context, _ *migrate.Migrator, opts options) error {
			if opts.name == "" {
				return errors.New("missing -name for create")
			}
			path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
			if err != nil {
				return err
			}
			fmt.Println("created migration:", path)
			return nil
		},
	},
	"validate": {
		usage:   "check migration file names and goose annotations",
		offline: true,
		run: func(_ context.Context, _ *migrate.Migrator, opts options) error {
			check := migrate.Embedded()
			if opts.dir != "" {
				check = os.DirFS(opts.dir)
			}
			if err := migrate.Validate(check); err != nil {
				return err
			}
			fmt.Println("migration validation passed")
			return nil
		},
	},
}

func gooseStep(name string) func(ctx context.Context, m *migrate.Migrator, opts options) error {
	return func(ctx context.Context, m *migrate.Migrator, _ options) error {
		return m.Step(ctx, name)
	}
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	var opts options
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory; empty uses the set compiled into this binary")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Usage = usage
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmdName)
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmdName,
		"dir": opts.dir,
	})

	if cmd.offline {
		if err := cmd.run(ctx, nil, opts); err != nil {
			logg.Error(ctx, "migrate command failed", err)
			os.Exit(1)
		}
		return
	}

	if cfg.DB.IsSQLite() {
		logg.Warn(ctx, "goose migrations target postgres; sqlite databases are auto-migrated by the services")
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)
	migrator, err := migrate.NewMigrator(sqlDB, opts.dir)
	requireResource(ctx, logg, "migrator", err)

	logg.Info(ctx, "migrate ready")
	if err := cmd.run(ctx, migrator, opts); err != nil {
		logg.Error(ctx, "migrate command failed", err)
		dbClient.Close()
		os.Exit(1)
	}
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate -cmd=<command> [-dir=path] [-name=name] [-version=YYYYMMDDHHMMSS]")
	names := strings.Split(commandNames(), "|")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].usage)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
