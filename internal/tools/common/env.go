package common

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=VALUE pairs into the environment. Variables already set win
// over the file and a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// DefaultBaseURL points at a locally running API using HTTP_PORT and API_BASE_PATH.
func DefaultBaseURL() string {
	port := strings.TrimSpace(os.Getenv("HTTP_PORT"))
	if port == "" {
		port = "5000"
	}
	base := strings.TrimSpace(os.Getenv("API_BASE_PATH"))
	if base == "" {
		base = "/api"
	}
	u := url.URL{Scheme: "http", Host: "localhost:" + port, Path: "/" + strings.Trim(base, "/")}
	return u.String()
}
