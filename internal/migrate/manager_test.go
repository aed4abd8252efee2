package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	in := `create table a (id text);
insert into a(id) values ('x;y');
`
	stmts := splitStatements(in)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[1] != "\ninsert into a(id) values ('x;y');" {
		t.Fatalf("semicolon inside string literal split the statement: %q", stmts[1])
	}
}

func TestCollectSQLOrdersByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_rules.up.sql", "0001_init.up.sql", "0001_init.down.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := collectSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 up files, got %d", len(files))
	}
	if files[0].Base != "0001_init.up.sql" || files[1].Base != "0002_rules.up.sql" {
		t.Fatalf("wrong order: %+v", files)
	}
}

func TestCollectSQLMissingDir(t *testing.T) {
	files, err := collectSQL(filepath.Join(t.TempDir(), "absent"), ".sql")
	if err != nil {
		t.Fatalf("missing directory should not error: %v", err)
	}
	if files != nil {
		t.Fatalf("expected no files, got %+v", files)
	}
}
