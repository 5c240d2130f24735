package cli

import (
	"fmt"

	"github.com/ppiankov/heritage/internal/cache"
	"github.com/ppiankov/heritage/internal/catalog"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/store"
	"go.uber.org/zap"
)

// newCatalog wires the store client, its cache and the catalog service
func newCatalog(cfg *model.Config, logger *zap.Logger) (*catalog.Service, error) {
	opts := []store.Option{store.WithLogger(logger.Named("store"))}
	if cfg.Cache.Enabled {
		c := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		opts = append(opts, store.WithCache(c, cfg.Cache.DiskTTL))
		logger.Debug("response cache enabled",
			zap.String("dir", cfg.Cache.Dir),
			zap.Duration("memory_ttl", cfg.Cache.MemoryTTL),
			zap.Duration("disk_ttl", cfg.Cache.DiskTTL))
	}

	client, err := store.New(cfg.Store, opts...)
	if err != nil {
		return nil, fmt.Errorf("create store client: %w", err)
	}

	return catalog.NewService(client, logger.Named("catalog")), nil
}
