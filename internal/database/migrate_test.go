package database

import "testing"

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"0001_init.sql", 1, false},
		{"0042_add_indexes.sql", 42, false},
		{"init.sql", 0, true},
		{"abc_init.sql", 0, true},
	}
	for _, tt := range tests {
		got, err := migrationVersion(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("migrationVersion(%q): expected error, got %d", tt.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("migrationVersion(%q): unexpected error %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("migrationVersion(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		t.Fatalf("reading embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations found")
	}
	seen := map[int]string{}
	for _, e := range entries {
		version, err := migrationVersion(e.Name())
		if err != nil {
			t.Errorf("migration %s: %v", e.Name(), err)
			continue
		}
		if prev, dup := seen[version]; dup {
			t.Errorf("migrations %s and %s share version %d", prev, e.Name(), version)
		}
		seen[version] = e.Name()
	}
}
