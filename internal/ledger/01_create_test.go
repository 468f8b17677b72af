package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ytget/phin/internal/ledger/query"
)

var (
	tdb     *Ledger
	tdbPath string
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "phin-ledger-")
	if err != nil {
		panic(err)
	}
	tdbPath = filepath.Join(dir, "sub", "phin.db")

	code := m.Run()

	if tdb != nil {
		tdb.Close() // nolint: errcheck
	}
	os.RemoveAll(dir) // nolint: errcheck
	os.Exit(code)
}

func TestLedgerCreate(t *testing.T) {
	var err error

	if tdb, err = Open(tdbPath); err != nil {
		tdb = nil
		t.Fatalf("Cannot create Ledger: %s",
			err.Error())
	}

	if _, err = os.Stat(tdbPath); err != nil {
		t.Errorf("Ledger file was not created: %s", err.Error())
	}
}

func TestQueryPrepare(t *testing.T) {
	if tdb == nil {
		t.SkipNow()
	}

	for qid := range dbQueries {
		if _, err := tdb.getQuery(t.Context(), qid); err != nil {
			t.Errorf("Cannot prepare query %s: %s",
				qid,
				err.Error())
		}
	}

	if _, err := tdb.getQuery(t.Context(), query.ID(200)); err == nil {
		t.Error("Expected an error for an unknown query")
	}
}

func TestWorthARetry(t *testing.T) {
	type tc struct {
		msg   string
		retry bool
	}
	for _, c := range []tc{
		{"database is locked", true},
		{"Database Is Busy", true},
		{"no such table: run", false},
	} {
		if got := worthARetry(errors.New(c.msg)); got != c.retry {
			t.Errorf("retry(%q) = %t, expected %t", c.msg, got, c.retry)
		}
	}
}
