package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glcm/internal/cache"
	"glcm/internal/config"
	"glcm/internal/gitio"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the listing cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show listing cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached listings",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openCache opens the cache configured for the current directory. Outside a
// repository only defaults and environment apply.
func openCache() (*cache.ListingCache, error) {
	var root string
	if repo, err := gitio.Open("."); err == nil {
		root = repo.Root()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.CacheDir)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	lc, err := openCache()
	if err != nil {
		return err
	}
	defer lc.Close()

	stats, err := lc.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache:    %s\n", lc.Dir())
	fmt.Fprintf(out, "Listings: %d\n", stats.TotalEntries)
	fmt.Fprintf(out, "Size:     %s\n", formatBytes(stats.PayloadBytes))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	lc, err := openCache()
	if err != nil {
		return err
	}
	defer lc.Close()

	if err := lc.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}

// formatBytes formats a byte count for humans.
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
