// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/gochip8/cpu"
	"github.com/retroenv/retrogolib/assert"
	"github.com/ulikunitz/xz"
)

var romImage = []byte{0x60, 0x2a, 0x12, 0x02}

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadROMGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(romImage)
	assert.NoError(t, zw.Close())

	b, err := readROMFile(writeFile(t, "game.ch8.gz", buf.Bytes()))
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(romImage, b))
}

func TestReadROMXz(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	assert.NoError(t, err)
	xw.Write(romImage)
	assert.NoError(t, xw.Close())

	b, err := readROMFile(writeFile(t, "game.xz", buf.Bytes()))
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(romImage, b))
}

func TestReadROMZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("roms/")
	assert.NoError(t, err)
	w, err := zw.Create("roms/game.ch8")
	assert.NoError(t, err)
	w.Write(romImage)
	assert.NoError(t, zw.Close())

	h, _ := newTestHost(t, "")
	assert.NoError(t, h.LoadROM(writeFile(t, "game.ZIP", buf.Bytes())))
	v, _ := h.cpu.Mem.LoadByte(0x201)
	assert.Equal(t, byte(0x2a), v)
}

func TestReadROM7z(t *testing.T) {
	// testdata/game.7z stores romImage as game.ch8 with the copy method.
	b, err := readROMFile(filepath.Join("testdata", "game.7z"))
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(romImage, b))

	h, _ := newTestHost(t, "")
	assert.NoError(t, h.LoadROM(filepath.Join("testdata", "game.7z")))
	v, _ := h.cpu.Mem.LoadByte(0x200)
	assert.Equal(t, byte(0x60), v)
}

func TestReadROMBad7z(t *testing.T) {
	_, err := readROMFile(writeFile(t, "bad.7z", romImage))
	assert.True(t, err != nil)
}

func TestReadROMEmptyZip(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, zip.NewWriter(&buf).Close())

	_, err := readROMFile(writeFile(t, "empty.zip", buf.Bytes()))
	assert.True(t, errors.Is(err, ErrEmptyArchive))
}

func TestReadROMCompressedTooLarge(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(make([]byte, 3*cpu.MaxROMSize))
	assert.NoError(t, zw.Close())

	h, _ := newTestHost(t, "")
	err := h.LoadROM(writeFile(t, "big.gz", buf.Bytes()))
	assert.True(t, errors.Is(err, cpu.ErrROMTooLarge))
}

func TestReadROMPlain(t *testing.T) {
	b, err := readROMFile(writeFile(t, "game.ch8", romImage))
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(romImage, b))
}
