package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/captioner/pkg/cache"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the caption result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())

	return cmd
}

// openConfiguredCache opens the configured backend without falling back.
func (c *CLI) openConfiguredCache(ctx context.Context) (cache.Cache, cache.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, cache.Options{}, err
	}
	opts, err := cfg.CacheOptions()
	if err != nil {
		return nil, opts, fmt.Errorf("resolve cache: %w", err)
	}
	store, err := cache.Open(ctx, opts)
	if err != nil {
		return nil, opts, fmt.Errorf("open cache: %w", err)
	}
	return store, opts, nil
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached captions and inspections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, opts, err := c.openConfiguredCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var count int
			switch s := store.(type) {
			case *cache.FileCache:
				count, err = s.Clear()
				if err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				printSuccess("Cleared %d cached entries", count)
				printDetail("Directory: %s", s.Dir())
			case *cache.RedisCache:
				cfg, _ := c.config()
				pattern := "*"
				if cfg.Cache.Namespace != "" {
					pattern = cfg.Cache.Namespace + ":*"
				}
				count, err = s.Clear(ctx, pattern)
				if err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				printSuccess("Cleared %d cached entries", count)
				printDetail("Redis: %s (%s)", opts.RedisAddr, pattern)
			default:
				printInfo("Caching is disabled")
			}
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cached results are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			opts, err := cfg.CacheOptions()
			if err != nil {
				return fmt.Errorf("resolve cache: %w", err)
			}
			switch opts.Backend {
			case cache.BackendRedis:
				fmt.Println("redis://" + opts.RedisAddr)
			case cache.BackendNone:
				fmt.Println("none")
			default:
				fmt.Println(opts.Dir)
			}
			return nil
		},
	}
}

func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the size of the file cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := c.openConfiguredCache(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			fc, ok := store.(*cache.FileCache)
			if !ok {
				printInfo("Stats are only available for the file cache")
				return nil
			}
			entries, size, err := fc.Stats()
			if err != nil {
				return fmt.Errorf("cache stats: %w", err)
			}
			printKeyValue("directory", fc.Dir())
			printKeyValue("entries", fmt.Sprint(entries))
			printKeyValue("size", formatBytes(size))
			return nil
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
