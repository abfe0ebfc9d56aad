package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               int
	SigningKey         string
	DashboardDSN       string
	MetaDBPath         string
	RowLimit           int
	EnableFullExport   bool
	StatementTimeoutMs int
	ExportBatchSize    int
	LogDir             string
}

func Load() (*Config, error) {
	// Try loading .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	key := os.Getenv("PGDASH_KEY")
	if len(key) < 32 {
		fmt.Println("PGDASH_KEY not found or too short. Generating a new secure key...")
		newKey, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}

		if err := saveKeyToEnv(newKey); err != nil {
			fmt.Printf("Warning: Failed to save generated key to .env: %v\n", err)
		} else {
			fmt.Println("New PGDASH_KEY saved to .env file.")
		}
		key = newKey
	}

	dsn := os.Getenv("DASHBOARD_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DASHBOARD_DSN is required (Postgres connection string for query execution)")
	}

	return &Config{
		Port:               envInt("PORT", 8080),
		SigningKey:         key,
		DashboardDSN:       dsn,
		MetaDBPath:         envString("META_DB_PATH", "pgdash.db"),
		RowLimit:           envInt("ROW_LIMIT", 100),
		EnableFullExport:   envBool("ENABLE_FULL_EXPORT"),
		StatementTimeoutMs: envInt("STATEMENT_TIMEOUT_MS", 0),
		ExportBatchSize:    envInt("EXPORT_BATCH_SIZE", 2000),
		LogDir:             envString("LOG_DIR", "logs"),
	}, nil
}

func envString(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(name string) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func generateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	// Return base64 encoded string to ensure it's printable and handles bytes correctly
	return base64.StdEncoding.EncodeToString(b), nil
}

func saveKeyToEnv(key string) error {
	filename := ".env"
	content, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return os.WriteFile(filename, []byte(fmt.Sprintf("PGDASH_KEY=%s\n", key)), 0644)
	} else if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	found := false
	newLines := []string{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "PGDASH_KEY=") {
			newLines = append(newLines, fmt.Sprintf("PGDASH_KEY=%s", key))
			found = true
		} else if trimmed != "" {
			newLines = append(newLines, trimmed)
		}
	}
	if !found {
		newLines = append(newLines, fmt.Sprintf("PGDASH_KEY=%s", key))
	}

	return os.WriteFile(filename, []byte(strings.Join(newLines, "\n")+"\n"), 0644)
}
