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

// Package vector abstracts similarity search backends used by the
// optional semantic search stage (package search). A Provider stores
// pre-computed embedding vectors alongside metadata and answers
// nearest-neighbor queries; the embedding itself is always computed
// externally by an embedders.EmbedderProvider.
package vector

import "context"

// Result is a single nearest-neighbor hit returned by a Provider.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Vector   []float32
	Metadata map[string]any
}

// Provider is implemented by every vector backend (chromem, Qdrant,
// Pinecone, ...). Collections are created implicitly by most backends;
// CreateCollection/DeleteCollection exist for backends that require
// an explicit schema (e.g. a fixed vector dimension).
type Provider interface {
	// Name identifies the provider implementation (e.g. "chromem").
	Name() string

	// Upsert adds or replaces a document's vector and metadata.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// Search finds the topK nearest vectors in a collection.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// SearchWithFilter is Search restricted to documents matching filter.
	SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error)

	// Delete removes a single document by ID.
	Delete(ctx context.Context, collection string, id string) error

	// DeleteByFilter removes every document matching filter.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error

	// CreateCollection creates a collection, if the backend requires one.
	CreateCollection(ctx context.Context, collection string, vectorDimension int) error

	// DeleteCollection removes a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// Close releases any resources held by the provider.
	Close() error
}

// NilProvider is a Provider that stores nothing and finds nothing. It is
// returned by NewProvider when given a nil configuration, so callers
// that don't configure a vector backend get a harmless no-op rather
// than a nil-pointer panic.
type NilProvider struct{}

func (NilProvider) Name() string { return "nil" }

func (NilProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	return nil
}

func (NilProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	return nil, nil
}

func (NilProvider) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error) {
	return nil, nil
}

func (NilProvider) Delete(ctx context.Context, collection string, id string) error { return nil }

func (NilProvider) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	return nil
}

func (NilProvider) CreateCollection(ctx context.Context, collection string, vectorDimension int) error {
	return nil
}

func (NilProvider) DeleteCollection(ctx context.Context, collection string) error { return nil }

func (NilProvider) Close() error { return nil }

var _ Provider = NilProvider{}
