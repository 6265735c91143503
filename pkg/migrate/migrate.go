package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where the migrations live in the source tree.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps its dialect and file system in package globals.
var gooseMu sync.Mutex

// Migrator applies the shop's goose migrations to Postgres, either from the
// set compiled into the binary or from a directory on disk. SQLite databases
// never go through here; the services auto-migrate them.
type Migrator struct {
	db   *sql.DB
	dir  string
	fsys fs.FS
}

// NewMigrator reads migrations from dir, or from the embedded set when dir
// is empty.
func NewMigrator(db *sql.DB, dir string) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return &Migrator{db: db, dir: embeddedDir, fsys: embedded}, nil
	}
	return &Migrator{db: db, dir: dir}, nil
}

// Embedded exposes the compiled-in migrations, rooted at the directory.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, embeddedDir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Version reports the latest applied migration.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.with(func() error {
		var err error
		version, err = goose.GetDBVersionContext(ctx, m.db)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return version, nil
}

// Up applies every pending migration and returns the version before and after.
func (m *Migrator) Up(ctx context.Context) (from, to int64, err error) {
	if from, err = m.Version(ctx); err != nil {
		return 0, 0, err
	}
	if err = m.with(func() error { return goose.UpContext(ctx, m.db, m.dir) }); err != nil {
		return from, 0, fmt.Errorf("goose up: %w", err)
	}
	to, err = m.Version(ctx)
	return from, to, err
}

// Step runs one of goose's single-shot commands: up-by-one, down, redo or status.
func (m *Migrator) Step(ctx context.Context, command string) error {
	var run func() error
	switch command {
	case "up-by-one":
		run = func() error { return goose.UpByOneContext(ctx, m.db, m.dir) }
	case "down":
		run = func() error { return goose.DownContext(ctx, m.db, m.dir) }
	case "redo":
		run = func() error { return goose.RedoContext(ctx, m.db, m.dir) }
	case "status":
		run = func() error { return goose.StatusContext(ctx, m.db, m.dir) }
	default:
		return fmt.Errorf("unsupported goose command %q", command)
	}
	if err := m.with(run); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// To migrates up or down until the database sits at target.
func (m *Migrator) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || !versionRe.MatchString(target) {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	switch {
	case current < version:
		err = m.with(func() error { return goose.UpToContext(ctx, m.db, m.dir, version) })
	case current > version:
		err = m.with(func() error { return goose.DownToContext(ctx, m.db, m.dir, version) })
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

func (m *Migrator) with(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(m.fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}
