package connector

import (
	"context"
	"log/slog"
	"net/url"
)

// NodeSelection tells the host engine where a split prefers to run.
type NodeSelection int

const (
	// NoPreference lets the engine run the split on any worker.
	NoPreference NodeSelection = iota
)

// Split is one independently fetchable part of a table scan.
type Split struct {
	// Token is opaque to the connector and echoed back to the service.
	Token string
	Table QualifiedTableName
	// Location is the service root. It is a hint only; every split is read
	// through the same client.
	Location *url.URL
}

// NodeSelection is always NoPreference.
func (Split) NodeSelection() NodeSelection {
	return NoPreference
}

// SplitSource lists the splits of a table.
type SplitSource struct {
	svc           Service
	maxSplitCount int
	logger        *slog.Logger
}

// NewSplitSource creates a split source over svc.
func NewSplitSource(svc Service, cfg Config) *SplitSource {
	cfg = cfg.WithDefaults()
	return &SplitSource{
		svc:           svc,
		maxSplitCount: cfg.MaxSplitCount,
		logger:        cfg.Logger.With("component", "splits"),
	}
}

// ListSplits asks the service to partition a scan of table into at most
// maxSplitCount splits. maxSplitCount <= 0 uses the configured maximum. An
// empty result is a table with nothing to read.
func (s *SplitSource) ListSplits(ctx context.Context, table QualifiedTableName, maxSplitCount int) ([]Split, error) {
	if maxSplitCount <= 0 {
		maxSplitCount = s.maxSplitCount
	}

	tokens, err := s.svc.ListSplits(ctx, table.wire(), maxSplitCount)
	if err != nil {
		return nil, err
	}

	location := s.svc.BaseURL()
	splits := make([]Split, len(tokens))
	for i, tok := range tokens {
		splits[i] = Split{Token: tok, Table: table, Location: location}
	}

	s.logger.DebugContext(ctx, "Listed splits",
		"table", table.String(),
		"max_split_count", maxSplitCount,
		"splits", len(splits),
	)
	return splits, nil
}
