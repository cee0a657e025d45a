// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Outputs names the files produced by AssembleFile. Empty paths are
// skipped.
type Outputs struct {
	Listing   string // expanded assembly listing
	Binary    string // machine code image
	SourceMap string // JSON source map
}

// AssembleFile reads a file containing assembly code, assembles it, and
// writes the requested output files. Nothing is written unless assembly
// succeeds. If writing any output fails, all outputs written so far are
// removed.
func AssembleFile(path string, out Outputs, cfg *Config) (*Assembly, error) {
	inFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening source file '%s'", path)
	}
	defer inFile.Close()

	assembly, err := Assemble(inFile, path, cfg)
	if err != nil {
		return nil, err
	}

	files := []outputFile{
		{out.Listing, assembly.WriteListing},
		{out.Binary, assembly.WriteTo},
		{out.SourceMap, assembly.SourceMap().WriteTo},
	}
	if err := writeFiles(files); err != nil {
		return nil, err
	}
	return assembly, nil
}

type outputFile struct {
	path  string
	write func(w io.Writer) (int64, error)
}

// Write each output file in turn. On failure, remove every file created
// so far, including the one that failed.
func writeFiles(files []outputFile) error {
	var created []string
	for _, f := range files {
		if f.path == "" {
			continue
		}

		created = append(created, f.path)
		err := writeFile(f.path, f.write)
		if err == nil {
			continue
		}

		var cleanup error
		for _, p := range created {
			if rerr := os.Remove(p); rerr != nil && !os.IsNotExist(rerr) {
				cleanup = multierror.Append(cleanup, errors.Wrapf(rerr, "removing '%s'", p))
			}
		}
		if cleanup != nil {
			return multierror.Append(err, cleanup)
		}
		return err
	}
	return nil
}

func writeFile(path string, write func(w io.Writer) (int64, error)) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "creating '%s'", path)
	}

	_, err = write(file)
	cerr := file.Close()
	switch {
	case err != nil:
		return errors.Wrapf(err, "writing '%s'", path)
	case cerr != nil:
		return errors.Wrapf(cerr, "closing '%s'", path)
	default:
		return nil
	}
}
