/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/skald/internal/db"
	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/library"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml> [manifest.yaml ...]",
	Short: "Import playlist manifests",
	Long:  "Import one or more YAML playlist manifests into the library",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	librarySvc := library.New(database, events.NewBus(), logger)

	ctx := context.Background()
	for _, path := range args {
		playlist, err := librarySvc.ImportManifest(ctx, path)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Printf("imported %q (%d tracks) as %s\n", playlist.Title, len(playlist.Tracks), playlist.ID)
	}
	return nil
}
