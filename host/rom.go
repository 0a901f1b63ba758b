// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/gochip8/cpu"
	"github.com/bodgit/sevenzip"
	"github.com/ulikunitz/xz"
)

// ErrEmptyArchive is returned when a ROM archive holds no files.
var ErrEmptyArchive = errors.New("archive contains no files")

// readROMFile reads a ROM image from the named file. Files ending in .gz,
// .xz, .zip or .7z are decompressed; an archive supplies its first regular
// file. Anything else is returned as is.
func readROMFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var r io.Reader
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		r, err = gzip.NewReader(bytes.NewReader(data))
	case ".xz":
		r, err = xz.NewReader(bytes.NewReader(data))
	case ".zip":
		r, err = openZip(data)
	case ".7z":
		r, err = open7z(data)
	default:
		return data, nil
	}
	if err != nil {
		return nil, err
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	// Read one byte past the limit so oversized images are caught without
	// decompressing all of them.
	b, err := io.ReadAll(io.LimitReader(r, cpu.MaxROMSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return b, nil
}

func openZip(data []byte) (io.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.FileInfo().Mode().IsRegular() {
			return f.Open()
		}
	}
	return nil, ErrEmptyArchive
}

func open7z(data []byte) (io.Reader, error) {
	sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range sr.File {
		if f.FileInfo().Mode().IsRegular() {
			return f.Open()
		}
	}
	return nil, ErrEmptyArchive
}
