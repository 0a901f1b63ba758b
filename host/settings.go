// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

type settings struct {
	CyclesPerFrame     int    `doc:"instructions executed per 60Hz frame"`
	SpriteClip         bool   `doc:"clip sprites at the display edges"`
	MemDumpBytes       int    `doc:"default number of memory bytes to dump"`
	DisasmLines        int    `doc:"default number of lines to disassemble"`
	StepLinesToDisplay int    `doc:"max lines to disassemble when stepping"`
	NextDisasmAddr     uint16 `doc:"address of next disassembly"`
	NextMemDumpAddr    uint16 `doc:"address of next memory dump"`
}

func newSettings() *settings {
	return &settings{
		CyclesPerFrame:     10,
		SpriteClip:         false,
		MemDumpBytes:       64,
		DisasmLines:        10,
		StepLinesToDisplay: 20,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := range settingsFields {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// Display writes every setting, its value and its description to w.
func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var line string
		switch f.kind {
		case reflect.Uint16:
			line = fmt.Sprintf("    %-18s $%04X", f.name, uint16(v.Uint()))
		default:
			line = fmt.Sprintf("    %-18s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-32s (%s)\n", line, f.doc)
	}
}

// Kind returns the kind of the setting matching key, or reflect.Invalid if
// no setting matches.
func (s *settings) Kind(key string) reflect.Kind {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid
	}
	return f.kind
}

// Set assigns value to the setting matching key. Numeric values are
// converted to the setting's type.
func (s *settings) Set(key string, value any) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return err
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.Bool) != (vIn.Kind() == reflect.Bool) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return errors.New("invalid type")
	}

	reflect.ValueOf(s).Elem().Field(f.index).Set(vIn.Convert(f.typ))
	return nil
}
