// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local writes images below a directory that is served at urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates the upload directory if needed and returns a Local
// store serving it under urlPrefix (e.g. "/storage").
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Dir is the directory files are written to.
func (l *Local) Dir() string { return l.dir }

// Put writes data to dir/key and returns urlPrefix/key.
func (l *Local) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	p, err := l.pathOf(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", key, err)
	}
	return l.urlPrefix + "/" + key, nil
}

// Delete removes the file behind url. Missing files and foreign URLs are
// not an error.
func (l *Local) Delete(ctx context.Context, url string) error {
	prefix := l.urlPrefix + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	p, err := l.pathOf(strings.TrimPrefix(url, prefix))
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// pathOf maps a key to a file path, refusing keys that escape dir.
func (l *Local) pathOf(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}
