// Copyright 2025 Kadir Pekel
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

// Package utils provides utility functions for memori.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureMemoriDir ensures the .memori directory exists at the given base path.
// If basePath is empty or ".", it creates ./.memori in the current directory.
// Otherwise, it creates {basePath}/.memori.
//
// This is used by facilities that need local on-disk state outside the
// configured storage backend, e.g. the embedded chromem vector store.
//
// Returns the full path to the .memori directory and any error.
func EnsureMemoriDir(basePath string) (string, error) {
	var memoriDir string
	if basePath == "" || basePath == "." {
		memoriDir = ".memori"
	} else {
		memoriDir = filepath.Join(basePath, ".memori")
	}

	if err := os.MkdirAll(memoriDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create .memori directory at '%s': %w", memoriDir, err)
	}

	return memoriDir, nil
}
