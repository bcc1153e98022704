package config

import (
	"log/slog"
	"os"
	"strings"
)

func getEnv(key string) string {
	return os.Getenv(envPrefix + key)
}

// getEnvOrFile resolves KEY or KEY_FILE (Docker secrets pattern). The file
// wins when both are set; its contents are trimmed.
func getEnvOrFile(key string) string {
	if path := os.Getenv(envPrefix + key + "_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
		slog.Default().Warn("fail read secret file, falling back to env", "key", envPrefix+key, "path", path, "error", err)
	}
	return os.Getenv(envPrefix + key)
}
