package queue

import (
	"testing"
	"time"
)

func TestRebindForPostgres(t *testing.T) {
	s := &Store{driver: driverPostgres}
	got := s.rebind("UPDATE jobs SET status = ? WHERE id = ? AND status IN (?,?)")
	want := "UPDATE jobs SET status = $1 WHERE id = $2 AND status IN ($3,$4)"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	sqlite := &Store{driver: driverSQLite}
	if q := "SELECT ? "; sqlite.rebind(q) != q {
		t.Fatal("expected sqlite queries to be unchanged")
	}
}

func TestRedactDSN(t *testing.T) {
	got := redactDSN("postgres://vidpipe:secret@db:5432/vidpipe?sslmode=disable")
	if got != "postgres://***@db:5432/vidpipe?sslmode=disable" {
		t.Fatalf("unexpected redaction %q", got)
	}
	if redactDSN("/var/lib/jobs.db") != "/var/lib/jobs.db" {
		t.Fatal("expected plain paths untouched")
	}
}

func TestTimeLayoutSortsChronologically(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := formatTime(base.Add(500 * time.Millisecond))
	later := formatTime(base.Add(time.Second))
	if !(earlier < later) {
		t.Fatalf("expected %q < %q", earlier, later)
	}
	parsed, err := parseTimeString(later)
	if err != nil || !parsed.Equal(base.Add(time.Second)) {
		t.Fatalf("round trip failed: %v %v", parsed, err)
	}
}

func TestSplitResultsRejectsUnknownKind(t *testing.T) {
	_, err := splitResults([]StepResult{{Kind: "mystery", FileName: "x"}})
	if err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
}
