// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/tubefit/tube"
)

var errEmptyDocument = errors.New("tubefit: measurement document has no files")

// document is the hand-off format of classified measurements. JSON documents
// decode through the same path.
type document struct {
	Files []tube.File `yaml:"files" json:"files"`
}

func readDocument(path string) (document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return document{}, err
		}
		defer f.Close()
		r = f
	}

	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return document{}, fmt.Errorf("tubefit: decode %s: %w", path, err)
	}
	if len(doc.Files) == 0 {
		return document{}, errEmptyDocument
	}

	return doc, nil
}
