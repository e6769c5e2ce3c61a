package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

// MetadataCache resolves problem metadata store-first and fetches on miss.
// Entries never expire: a problem's difficulty and title do not change.
type MetadataCache struct {
	store  ports.MetadataStore
	source ports.MetadataSource
	logger *slog.Logger
}

// NewMetadataCache wires the permanent store with the upstream source.
func NewMetadataCache(store ports.MetadataStore, source ports.MetadataSource, log *slog.Logger) *MetadataCache {
	if log == nil {
		log = slog.Default()
	}
	return &MetadataCache{store: store, source: source, logger: log}
}

// Resolve returns the cached entry or fetches, stores and returns it.
// A failed fetch stores nothing, so the next call retries cleanly.
func (c *MetadataCache) Resolve(ctx context.Context, itemKey string) (domain.MetadataEntry, error) {
	entry, ok, err := c.store.LookupMetadata(ctx, itemKey)
	if err != nil {
		return domain.MetadataEntry{}, fmt.Errorf("lookup metadata %s: %w", itemKey, err)
	}
	if ok {
		return entry, nil
	}

	c.logger.Debug("metadata cache miss", "item", itemKey)
	entry, err = c.source.FetchItemMetadata(ctx, itemKey)
	if err != nil {
		return domain.MetadataEntry{}, fmt.Errorf("fetch metadata %s: %w", itemKey, err)
	}
	entry.ItemKey = itemKey

	if err := c.store.SaveMetadata(ctx, entry); err != nil {
		return domain.MetadataEntry{}, fmt.Errorf("save metadata %s: %w", itemKey, err)
	}
	return entry, nil
}
