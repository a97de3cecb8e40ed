// Copyright 2025 kettlebyte
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package item

import (
	"encoding/base64"
	"os"
	"path"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// File is one payload unit belonging to an Item. Text files are rewritten
// in place by the content pipeline before upload; binary files pass through
// untouched.
type File struct {
	// RelativePath is the path within the item folder, slash-separated
	RelativePath string
	// AbsPath is the file's location on disk
	AbsPath string
	// Contents is mutable for text files
	Contents []byte

	binary bool
}

// LoadFile reads a file from disk and classifies it as text or binary.
func LoadFile(absPath, relativePath string) (*File, error) {
	contents, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", absPath, err)
	}
	return &File{
		RelativePath: relativePath,
		AbsPath:      absPath,
		Contents:     contents,
		binary:       !utf8.Valid(contents),
	}, nil
}

// IsText reports whether the file is subject to content rewriting.
func (f *File) IsText() bool {
	return !f.binary
}

// IsMetadata reports whether the file is the item metadata marker. The
// marker rides along in the upload payload but is never rewritten.
func (f *File) IsMetadata() bool {
	return path.Base(f.RelativePath) == MetadataFile
}

// Name returns the file's base name.
func (f *File) Name() string {
	return path.Base(f.RelativePath)
}

// Part is one entry of a definition upload, with the payload base64-encoded
// for transport.
type Part struct {
	Path        string `json:"path"`
	Payload     string `json:"payload"`
	PayloadType string `json:"payloadType"`
}

// Part encodes the file's current contents as an upload part.
func (f *File) Part() Part {
	return Part{
		Path:        f.RelativePath,
		Payload:     base64.StdEncoding.EncodeToString(f.Contents),
		PayloadType: "InlineBase64",
	}
}
