package connector

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-openapi/metacache"
)

const (
	// DefaultMaxSplitCount is sent with list-splits when the caller asks for
	// no particular limit.
	DefaultMaxSplitCount = 128

	// MinMetadataRefreshInterval is the floor of Config.MetadataRefreshInterval.
	MinMetadataRefreshInterval = 30 * time.Second

	// DefaultMetadataRefreshThreads sizes the refresh pool.
	DefaultMetadataRefreshThreads = 1
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid connector config")

// Config tunes the metadata cache, split listing and page decoding.
type Config struct {
	// MaxSplitCount caps the splits requested per table scan.
	// Defaults to DefaultMaxSplitCount.
	MaxSplitCount int `mapstructure:"max_split_count"`

	// MetadataRefreshThreads bounds concurrent background describe calls.
	// Minimum 1.
	MetadataRefreshThreads int `mapstructure:"metadata_refresh_threads"`

	// MetadataRefreshInterval is how long a table description is served
	// before an access triggers a background refresh.
	// Raised to MinMetadataRefreshInterval when lower.
	MetadataRefreshInterval time.Duration `mapstructure:"metadata_refresh_interval"`

	// MetadataExpireAfterWrite is the maximum age of a description.
	// Defaults to metacache.DefaultExpireAfterWrite.
	MetadataExpireAfterWrite time.Duration `mapstructure:"metadata_expire_after_write"`

	// Allocator for decoded pages. OPTIONAL: memory.DefaultAllocator if nil.
	Allocator memory.Allocator `mapstructure:"-"`

	// Logger. OPTIONAL: slog.Default() if nil.
	Logger *slog.Logger `mapstructure:"-"`

	// Now overrides the cache clock in tests.
	Now func() time.Time `mapstructure:"-"`
}

// WithDefaults returns a copy with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.MaxSplitCount <= 0 {
		c.MaxSplitCount = DefaultMaxSplitCount
	}
	if c.MetadataRefreshThreads < 1 {
		c.MetadataRefreshThreads = DefaultMetadataRefreshThreads
	}
	if c.MetadataRefreshInterval < MinMetadataRefreshInterval {
		c.MetadataRefreshInterval = MinMetadataRefreshInterval
	}
	if c.MetadataExpireAfterWrite <= 0 {
		c.MetadataExpireAfterWrite = metacache.DefaultExpireAfterWrite
	}
	if c.Allocator == nil {
		c.Allocator = memory.DefaultAllocator
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c Config) Validate() error {
	if c.MetadataExpireAfterWrite <= c.MetadataRefreshInterval {
		return fmt.Errorf("%w: metadata_expire_after_write (%s) must exceed metadata_refresh_interval (%s)",
			ErrInvalidConfig, c.MetadataExpireAfterWrite, c.MetadataRefreshInterval)
	}
	return nil
}
