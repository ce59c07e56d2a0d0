// Package fixtures dumps accounts to a directory of JSON documents and
// loads them back. Each model gets a scribble collection named after its
// label, one document per account keyed by id.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sdomino/scribble"
)

// Store is a model's accounts as seen by Dump and Load.
type Store[T any] interface {
	// Label names the collection, "<app_label>.<model_name>".
	Label() string
	ID(v T) string
	Export(ctx context.Context) ([]T, error)
	Import(ctx context.Context, v T) error
}

// Dump replaces the model's collection under dir with its current accounts
// and returns how many were written.
func Dump[T any](ctx context.Context, dir string, s Store[T]) (int, error) {
	db, err := scribble.New(dir, nil)
	if err != nil {
		return 0, fmt.Errorf("open fixtures %s: %w", dir, err)
	}

	if _, err := os.Stat(filepath.Join(dir, s.Label())); err == nil {
		if err := db.Delete(s.Label(), ""); err != nil {
			return 0, fmt.Errorf("clear %s: %w", s.Label(), err)
		}
	}

	items, err := s.Export(ctx)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := db.Write(s.Label(), s.ID(it), it); err != nil {
			return 0, fmt.Errorf("write %s %s: %w", s.Label(), s.ID(it), err)
		}
	}
	return len(items), nil
}

// Load restores every document of the model's collection under dir.
// Accounts keep their ids and password hashes.
func Load[T any](ctx context.Context, dir string, s Store[T]) (int, error) {
	if _, err := os.Stat(filepath.Join(dir, s.Label())); errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("no fixtures for %s in %s", s.Label(), dir)
	}

	db, err := scribble.New(dir, nil)
	if err != nil {
		return 0, fmt.Errorf("open fixtures %s: %w", dir, err)
	}
	records, err := db.ReadAll(s.Label())
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.Label(), err)
	}

	n := 0
	for _, r := range records {
		var v T
		if err := json.Unmarshal([]byte(r), &v); err != nil {
			return n, fmt.Errorf("decode %s document: %w", s.Label(), err)
		}
		if err := s.Import(ctx, v); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
