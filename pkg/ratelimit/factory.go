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

package ratelimit

import (
	"database/sql"
	"fmt"

	"github.com/kadirpekel/memori/pkg/config"
)

// NewRateLimiterFromConfig builds a RateLimiter from a memori config
// section. For backend "sql", db/dialect must be the connection the
// memory store already opened — see config.StorageConfig.SQLDialect —
// so usage survives a restart without a second pool. Returns a nil
// limiter (and nil error) when rate limiting is disabled.
func NewRateLimiterFromConfig(cfg config.RateLimitConfig, db *sql.DB, dialect string) (RateLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var store Store
	switch cfg.Backend {
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("rate_limiting.backend 'sql' requires a database connection")
		}
		s, err := NewSQLStore(db, dialect)
		if err != nil {
			return nil, fmt.Errorf("failed to create sql rate limit store: %w", err)
		}
		store = s
	case "memory", "":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}

	limits := make([]LimitRule, len(cfg.Limits))
	for i, l := range cfg.Limits {
		limits[i] = LimitRule{Type: ParseLimitType(l.Type), Window: ParseTimeWindow(l.Window), Limit: l.Limit}
	}

	return NewRateLimiter(&Config{Enabled: cfg.Enabled, Limits: limits}, store)
}
