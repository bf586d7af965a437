/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resolver maps stored track filenames to verified absolute paths
// under the media root.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver confines track lookups to a single media root directory.
type Resolver struct {
	root   string
	logger zerolog.Logger
}

// New creates a resolver rooted at mediaRoot.
func New(mediaRoot string, logger zerolog.Logger) (*Resolver, error) {
	abs, err := filepath.Abs(mediaRoot)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		root:   abs,
		logger: logger.With().Str("component", "resolver").Logger(),
	}, nil
}

// Root returns the absolute media root directory.
func (r *Resolver) Root() string {
	return r.root
}

// ResolvePath maps a stored filename to a verified absolute path. Returns
// false when the filename escapes the media root or the file is not a
// readable regular file.
func (r *Resolver) ResolvePath(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}

	joined := filepath.Join(r.root, filepath.Clean("/"+filename))
	if !strings.HasPrefix(joined, r.root+string(filepath.Separator)) {
		r.logger.Warn().Str("filename", filename).Msg("filename escapes media root")
		return "", false
	}

	if !r.ValidatePath(joined) {
		return "", false
	}
	return joined, true
}

// ValidatePath reports whether path points at an existing, readable,
// regular file.
func (r *Resolver) ValidatePath(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
