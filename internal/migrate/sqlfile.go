package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creatorclub/backend/pkg/logger"
	"gorm.io/gorm"
)

// Outcome is the result of applying one SQL file.
type Outcome int

const (
	// Applied means every statement in the file committed.
	Applied Outcome = iota
	// Failed means nothing was applied: read, connection or execution error.
	Failed
	// ManualRequired means the SQL was saved for a human to run by hand.
	ManualRequired
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case ManualRequired:
		return "manual action required"
	default:
		return "failed"
	}
}

// ExitCode maps the outcome to the process exit status of the CLI.
func (o Outcome) ExitCode() int {
	switch o {
	case Applied:
		return 0
	case ManualRequired:
		return 2
	default:
		return 1
	}
}

// FileResult reports what happened to one SQL file.
type FileResult struct {
	File       string
	Outcome    Outcome
	ManualCopy string
	Err        error
}

// Worst folds several results into the outcome that should drive the exit code.
// Failed outranks ManualRequired, which outranks Applied.
func Worst(results []*FileResult) Outcome {
	worst := Applied
	for _, r := range results {
		switch r.Outcome {
		case Failed:
			return Failed
		case ManualRequired:
			worst = ManualRequired
		}
	}
	return worst
}

// ErrEmptyFile is returned for a SQL file with no statements.
var ErrEmptyFile = errors.New("sql file is empty")

// FileRunner executes SQL files against the database, or saves them for manual
// execution when no database is reachable or manual mode is requested.
type FileRunner struct {
	db        *gorm.DB
	manualDir string
	out       io.Writer
	now       func() time.Time
}

// NewFileRunner builds a runner. db may be nil; every file then goes to manual mode.
func NewFileRunner(db *gorm.DB, manualDir string, out io.Writer) *FileRunner {
	if out == nil {
		out = os.Stdout
	}
	if manualDir == "" {
		manualDir = "migrations/manual"
	}
	return &FileRunner{db: db, manualDir: manualDir, out: out, now: time.Now}
}

// Apply runs the file at path in a single transaction.
func (r *FileRunner) Apply(ctx context.Context, path string, manual bool) *FileResult {
	result := &FileResult{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Outcome = Failed
		result.Err = fmt.Errorf("read %s: %w", path, err)
		return result
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		result.Outcome = Failed
		result.Err = fmt.Errorf("%s: %w", path, ErrEmptyFile)
		return result
	}

	if manual || r.db == nil {
		return r.saveForManual(path, data, result)
	}

	if err := r.exec(ctx, content); err != nil {
		result.Outcome = Failed
		result.Err = fmt.Errorf("execute %s: %w", path, err)
		fmt.Fprintf(r.out, "  %s ... ERROR: %v\n", filepath.Base(path), err)
		fmt.Fprintf(r.out, "  nothing was committed; re-run with --manual to save the SQL for the database console\n")
		return result
	}

	fmt.Fprintf(r.out, "  %s ... OK\n", filepath.Base(path))
	logger.Info().Str("file", path).Msg("[Migrate] SQL file applied")
	result.Outcome = Applied
	return result
}

func (r *FileRunner) exec(ctx context.Context, content string) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, content); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *FileRunner) saveForManual(path string, data []byte, result *FileResult) *FileResult {
	if err := os.MkdirAll(r.manualDir, 0755); err != nil {
		result.Outcome = Failed
		result.Err = fmt.Errorf("create %s: %w", r.manualDir, err)
		return result
	}

	name := fmt.Sprintf("%s_%s", r.now().UTC().Format("20060102T150405"), filepath.Base(path))
	dest := filepath.Join(r.manualDir, name)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		result.Outcome = Failed
		result.Err = fmt.Errorf("save manual copy: %w", err)
		return result
	}

	fmt.Fprintf(r.out, "MANUAL ACTION REQUIRED for %s\n", path)
	fmt.Fprintf(r.out, "  1. Open the SQL console of the club database.\n")
	fmt.Fprintf(r.out, "  2. Paste and run the contents of %s.\n", dest)
	fmt.Fprintf(r.out, "  3. Run `migrate status` to confirm the schema.\n")
	logger.Warn().Str("file", path).Str("copy", dest).Msg("[Migrate] SQL file saved for manual execution")

	result.Outcome = ManualRequired
	result.ManualCopy = dest
	return result
}
