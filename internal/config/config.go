package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver string
	DBDSN    string

	SourceRelation string
	DestTable      string

	ChunkSize  int
	Workers    int
	StageBatch int

	ReorderLookahead       int
	ProtectedAbbreviations []string

	MorphProvider    string
	MorphLexiconPath string
	MorphURL         string
	MorphTimeout     time.Duration
	MorphRateLimit   int
	MorphRetries     int
	MorphCache       bool

	LogMode   string
	LogFile   string
	OutputDir string
}

// DefaultProtectedAbbreviations are the acronyms and units kept upper-case and
// never used as reorder candidates.
var DefaultProtectedAbbreviations = []string{
	"ПВХ", "НГ", "IP", "ГОСТ", "ТУ", "DIN", "ISO", "EN", "ASTM",
	"ШПС", "ШС", "ШУ", "ЩС", "ЩУ", "КИП", "АСУ", "ТП", "РЗА", "ГРЩ", "ВРУ",
	"AC", "DC", "UPS", "UHF", "VHF", "LAN", "WAN", "CAT", "RJ",
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:    getEnv("DB_DSN", filepath.Join(cwd, "data", "pairs.db")),

		SourceRelation: getEnv("SOURCE_RELATION", "v_nomenclature_spec_pairs_src"),
		DestTable:      getEnv("DEST_TABLE", "nomenclature_spec_pairs"),

		ChunkSize:  getEnvInt("CHUNK_SIZE", 50000),
		Workers:    getEnvInt("ETL_WORKERS", 1),
		StageBatch: getEnvInt("STAGE_BATCH", 1000),

		ReorderLookahead:       getEnvInt("REORDER_LOOKAHEAD", 10),
		ProtectedAbbreviations: getEnvList("PROTECTED_ABBREVIATIONS", DefaultProtectedAbbreviations),

		MorphProvider:    strings.ToLower(getEnv("MORPH_PROVIDER", "lexicon")),
		MorphLexiconPath: getEnv("MORPH_LEXICON_PATH", ""),
		MorphURL:         getEnv("MORPH_URL", "http://localhost:8085"),
		MorphTimeout:     getEnvDuration("MORPH_TIMEOUT_MS", 2*time.Second),
		MorphRateLimit:   getEnvInt("MORPH_RATE_LIMIT_RPS", 200),
		MorphRetries:     getEnvInt("MORPH_RETRIES", 2),
		MorphCache:       getEnvBool("MORPH_CACHE", true),

		LogMode:   getEnv("LOG_MODE", "dev"),
		LogFile:   getEnv("LOG_FILE", ""),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	switch c.MorphProvider {
	case "lexicon", "http", "none":
	default:
		return fmt.Errorf("unsupported MORPH_PROVIDER: %s", c.MorphProvider)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ReorderLookahead <= 0 {
		return fmt.Errorf("REORDER_LOOKAHEAD must be positive, got %d", c.ReorderLookahead)
	}
	if err := c.Require("DB_DSN", c.DBDSN); err != nil {
		return err
	}
	if err := c.Require("SOURCE_RELATION", c.SourceRelation); err != nil {
		return err
	}
	return c.Require("DEST_TABLE", c.DestTable)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
