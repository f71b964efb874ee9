package flow

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tbaiguzhinov/pizza-bot/core/catalog"
	"github.com/tbaiguzhinov/pizza-bot/core/logger"
	"github.com/tbaiguzhinov/pizza-bot/core/session"
)

// menuCache is a best-effort side-channel cache for catalog lookups,
// kept in the session store. Entries have no TTL and are never
// invalidated; a cache miss or a store failure falls through to a live
// catalog call.
type menuCache struct {
	store session.Store
}

const (
	cacheKeyCategories = "cache:categories"
	cacheKeyProducts   = "cache:products:"
	cacheKeyFile       = "cache:file:"
)

func (c *menuCache) load(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	raw, err := c.store.Get(ctx, key)
	if err != nil || len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (c *menuCache) save(ctx context.Context, key string, val any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		logger.Debug(ctx, "flow", "cache_save_failed",
			slog.String("cache_key", key),
			slog.String("err", err.Error()))
	}
}

// categories returns the category list, cache first.
func (m *Machine) categories(ctx context.Context, token string) ([]catalog.Category, error) {
	var cats []catalog.Category
	if m.cache.load(ctx, cacheKeyCategories, &cats) {
		return cats, nil
	}
	cats, err := m.catalog.Categories(ctx, token)
	if err != nil {
		return nil, err
	}
	m.cache.save(ctx, cacheKeyCategories, cats)
	return cats, nil
}

// categoryProducts returns one category's products, cache first.
func (m *Machine) categoryProducts(ctx context.Context, categoryID, token string) ([]catalog.Product, error) {
	var products []catalog.Product
	if m.cache.load(ctx, cacheKeyProducts+categoryID, &products) {
		return products, nil
	}
	products, err := m.catalog.ProductsByCategory(ctx, categoryID, token)
	if err != nil {
		return nil, err
	}
	m.cache.save(ctx, cacheKeyProducts+categoryID, products)
	return products, nil
}

// fileURL resolves a file id to its public href, cache first. An empty
// fileID resolves to an empty URL without a catalog call.
func (m *Machine) fileURL(ctx context.Context, fileID, token string) (string, error) {
	if fileID == "" {
		return "", nil
	}
	var href string
	if m.cache.load(ctx, cacheKeyFile+fileID, &href) {
		return href, nil
	}
	href, err := m.catalog.FileURL(ctx, fileID, token)
	if err != nil {
		return "", err
	}
	m.cache.save(ctx, cacheKeyFile+fileID, href)
	return href, nil
}
