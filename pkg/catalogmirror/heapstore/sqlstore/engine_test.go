package sqlstore

import (
	"testing"

	"github.com/rimdb/rim/internal/cas/handle"
)

func TestFirstTableName(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM users WHERE id = ?", "users"},
		{"select id from orders;", "orders"},
		{"INSERT INTO accounts (id) VALUES (?)", "accounts"},
		{"UPDATE widgets SET name = ?", "widgets"},
		{"DELETE FROM sessions", "sessions"},
		{"CREATE TABLE t (id int)", ""},
	}
	for _, c := range cases {
		if got := firstTableName(c.sql); got != c.want {
			t.Errorf("firstTableName(%q) = %q, want %q", c.sql, got, c.want)
		}
	}
}

func TestClassifyStmt(t *testing.T) {
	cases := []struct {
		sql  string
		want handle.StmtType
	}{
		{"SELECT 1", handle.StmtTypeSelect},
		{"insert into t values (1)", handle.StmtTypeInsert},
		{"", handle.StmtTypeUnknown},
	}
	for _, c := range cases {
		if got := classifyStmt(c.sql); got != c.want {
			t.Errorf("classifyStmt(%q) = %v, want %v", c.sql, got, c.want)
		}
	}
}
