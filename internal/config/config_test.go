package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("PROTECTED_ABBREVIATIONS", "")
	t.Setenv("LOG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChunkSize != 50000 {
		t.Fatalf("chunk size = %d", cfg.ChunkSize)
	}
	if cfg.ReorderLookahead != 10 {
		t.Fatalf("lookahead = %d", cfg.ReorderLookahead)
	}
	if cfg.LogFile != "" {
		t.Fatalf("log file = %q", cfg.LogFile)
	}
	if len(cfg.ProtectedAbbreviations) != len(DefaultProtectedAbbreviations) {
		t.Fatalf("abbreviations = %v", cfg.ProtectedAbbreviations)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "250")
	t.Setenv("MORPH_TIMEOUT_MS", "150")
	t.Setenv("MORPH_CACHE", "off")
	t.Setenv("PROTECTED_ABBREVIATIONS", "ПВХ, ГОСТ ,,IP")
	t.Setenv("REORDER_LOOKAHEAD", "not-a-number")
	t.Setenv("LOG_FILE", "logs/pairs_etl_{date}.log")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChunkSize != 250 {
		t.Fatalf("chunk size = %d", cfg.ChunkSize)
	}
	if cfg.MorphTimeout != 150*time.Millisecond {
		t.Fatalf("timeout = %v", cfg.MorphTimeout)
	}
	if cfg.MorphCache {
		t.Fatal("cache should be disabled")
	}
	if cfg.LogFile != "logs/pairs_etl_{date}.log" {
		t.Fatalf("log file = %q", cfg.LogFile)
	}
	if cfg.ReorderLookahead != 10 {
		t.Fatalf("invalid value should fall back, got %d", cfg.ReorderLookahead)
	}
	want := []string{"ПВХ", "ГОСТ", "IP"}
	if len(cfg.ProtectedAbbreviations) != len(want) {
		t.Fatalf("abbreviations = %v", cfg.ProtectedAbbreviations)
	}
	for i := range want {
		if cfg.ProtectedAbbreviations[i] != want[i] {
			t.Fatalf("abbreviations[%d] = %q want %q", i, cfg.ProtectedAbbreviations[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "bad driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: true},
		{name: "bad provider", mutate: func(c *Config) { c.MorphProvider = "spacy" }, wantErr: true},
		{name: "zero chunk", mutate: func(c *Config) { c.ChunkSize = 0 }, wantErr: true},
		{name: "empty table", mutate: func(c *Config) { c.DestTable = " " }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{
				DBDriver:         "sqlite",
				DBDSN:            "x.db",
				SourceRelation:   "src",
				DestTable:        "dst",
				ChunkSize:        10,
				ReorderLookahead: 10,
				MorphProvider:    "none",
			}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
