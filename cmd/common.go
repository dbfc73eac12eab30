/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/valpere/sefer/internal/output"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/sefaria"
	"github.com/valpere/sefer/internal/store"
	"github.com/valpere/sefer/internal/translator"
)

var errNoDB = errors.New("the checkpoint database is disabled (--no-db)")

func newClient() *sefaria.Client {
	return sefaria.NewClient(sefaria.WithBaseURL(cfg.SefariaURL), sefaria.WithLogger(slog.Default()))
}

func newGenerator() (translator.Generator, error) {
	return translator.New(cfg.Generator)
}

func newWriter() *output.Writer {
	return output.NewWriter(cfg.OutputDir, cfg.Policy(), slog.Default())
}

// openStore opens the configured database, creating its directory.
func openStore() (*store.Store, error) {
	if cfg.NoDB {
		return nil, errNoDB
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// parseReference parses arg and attaches level labels: configured labels
// first, then the section names from the Sefaria index.
func parseReference(ctx context.Context, client *sefaria.Client, arg string) (reference.Reference, error) {
	ref, err := reference.Parse(arg, reference.Labels{})
	if err != nil {
		return reference.Reference{}, err
	}
	if cfg.Labels != (reference.Labels{}) {
		return ref.WithLabels(cfg.Labels), nil
	}

	idx, err := client.FetchIndex(ctx, ref.Title)
	if err != nil {
		slog.Warn("could not fetch index, using default labels", "title", ref.Title, "error", err)
		return ref.WithLabels(reference.DefaultLabels()), nil
	}
	return ref.WithLabels(idx.Labels()), nil
}
