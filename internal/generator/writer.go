package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vigilx/pricewatch/internal/store"
)

// WriteDataset serializes the dataset into users.json under the provided directory.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, "users.json")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dataset); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}

// Seed loads the dataset into a store. Users that already exist keep their
// record but get their tracking list overwritten with the generated one.
func Seed(ctx context.Context, st store.Store, dataset Dataset) error {
	for _, user := range dataset.Users {
		if err := st.UpsertUser(ctx, user.ChatID, user.Name); err != nil {
			return fmt.Errorf("seed user %d: %w", user.ChatID, err)
		}
		if err := st.ReplaceTracking(ctx, user.ChatID, user.Tracking); err != nil {
			return fmt.Errorf("seed tracking for user %d: %w", user.ChatID, err)
		}
	}
	return nil
}
