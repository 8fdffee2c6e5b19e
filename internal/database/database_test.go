package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/nikhilbhutani/voiceguard/internal/config"
)

func TestNewPoolNotConfigured(t *testing.T) {
	_, err := NewPool(context.Background(), config.DatabaseConfig{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestNewPoolBadURL(t *testing.T) {
	_, err := NewPool(context.Background(), config.DatabaseConfig{URL: "postgres://%zz"})
	if err == nil || errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) < 2 {
		t.Fatalf("got %d migrations", len(ms))
	}
	if ms[0].Version != "001_voice_analyses.sql" {
		t.Errorf("first migration = %s", ms[0].Version)
	}
	if !strings.Contains(ms[0].SQL, "CREATE TABLE IF NOT EXISTS voice_analyses") {
		t.Error("voice_analyses table missing from first migration")
	}
}

func TestLoadMigrationsSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_c.sql": {Data: []byte("c")},
		"m/002_b.sql": {Data: []byte("b")},
		"m/001_a.sql": {Data: []byte("a")},
		"m/readme.md": {Data: []byte("skip")},
	}
	ms, err := loadMigrations(fsys, "m")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, m := range ms {
		got = append(got, m.Version+"="+m.SQL)
	}
	want := "001_a.sql=a,002_b.sql=b,010_c.sql=c"
	if strings.Join(got, ",") != want {
		t.Errorf("migrations = %v, want %s", got, want)
	}
}
