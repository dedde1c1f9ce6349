package migrations

import (
	"context"
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- comment line
CREATE TABLE a (x Int32);

CREATE TABLE b (
    y String
);
`
	got := splitStatements(input)
	want := []string{
		"CREATE TABLE a (x Int32)",
		"CREATE TABLE b (\n    y String\n)",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitStatements = %q, want %q", got, want)
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings("SELECT 'it''s fine';"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateNoSemicolonInStrings("SELECT 'a;b'"); err == nil {
		t.Error("expected error for semicolon inside literal")
	}
}

func TestEmbeddedFilesSorted(t *testing.T) {
	for dir, fsys := range map[string]fs.FS{
		"postgres":   PostgresFS,
		"clickhouse": ClickhouseFS,
		"sqlite":     SQLiteFS,
	} {
		files, err := sqlFiles(fsys, dir)
		if err != nil {
			t.Fatalf("%s: read failed: %v", dir, err)
		}
		if len(files) == 0 {
			t.Fatalf("%s: no migrations embedded", dir)
		}
		if !strings.HasPrefix(files[0], "001_") {
			t.Errorf("%s: expected 001_ first, got %s", dir, files[0])
		}
	}
}

type recordingExecer struct {
	stmts []string
	fail  bool
}

func (r *recordingExecer) Exec(_ context.Context, query string, _ ...any) error {
	if r.fail {
		return errors.New("exec failed")
	}
	r.stmts = append(r.stmts, query)
	return nil
}

func TestRunClickhouseMigrations(t *testing.T) {
	exec := &recordingExecer{}
	if err := RunClickhouseMigrations(context.Background(), exec); err != nil {
		t.Fatalf("RunClickhouseMigrations failed: %v", err)
	}
	if len(exec.stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(exec.stmts))
	}
	if !strings.Contains(exec.stmts[0], "run_records") || !strings.Contains(exec.stmts[1], "run_ticks") {
		t.Errorf("unexpected statement order: %q", exec.stmts)
	}

	if err := RunClickhouseMigrations(context.Background(), &recordingExecer{fail: true}); err == nil {
		t.Error("expected error from failing execer")
	}
}
