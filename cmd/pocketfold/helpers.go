package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pocketfold/pocketfold/internal/ai"
	"github.com/pocketfold/pocketfold/internal/common"
	"github.com/pocketfold/pocketfold/internal/storage"
)

// resolveDBPath picks the database location: explicit config first, then the
// conventional per-user data directory.
func resolveDBPath() (string, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: database.path is unset and no home directory is available: %v", common.ErrMissingConfig, err)
		}
		dbPath = filepath.Join(home, ".local", "share", "pocketfold", "pocketfold.db")
	}
	return expandPath(dbPath), nil
}

// initStorage opens the configured database and brings its schema up to
// date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// aiConfigFromViper assembles the extraction adapter config from the `ai`
// config section. Defaults and clamps live in the ai package.
func aiConfigFromViper() ai.Config {
	return ai.Config{
		Enabled:         viper.GetBool("ai.enabled"),
		Provider:        viper.GetString("ai.provider"),
		APIKey:          viper.GetString("ai.api_key"),
		Model:           viper.GetString("ai.model"),
		BaseURL:         viper.GetString("ai.base_url"),
		Timeout:         time.Duration(viper.GetInt("ai.timeout_seconds")) * time.Second,
		MaxOutputTokens: viper.GetInt("ai.max_output_tokens"),
	}
}

// userFacing maps storage sentinels onto messages fit for the terminal;
// anything else passes through untouched.
func userFacing(err error, what string) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(what+" not found", err)
	}
	return err
}

// expandPath expands ~ and environment variables in a filesystem path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}
