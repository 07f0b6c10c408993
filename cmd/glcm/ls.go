package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"glcm/internal/cache"
	"glcm/internal/config"
	"glcm/internal/gitio"
	"glcm/internal/ignore"
	"glcm/internal/object"
	"glcm/internal/output"
	"glcm/internal/pathres"
	"glcm/internal/provenance"
	"glcm/internal/store"
)

var (
	lsRepo         string
	lsRev          string
	lsJSON         bool
	lsNameOnly     bool
	lsExclude      []string
	lsMaxRevisions int
	lsNoCache      bool
	lsPatch        bool
	lsVerbose      bool
)

var lsCmd = &cobra.Command{
	Use:     "ls [path]",
	Aliases: []string{"glcm"},
	Short:   "List a directory with the commit that last changed each entry",
	Long: `List a directory with the commit that introduced each entry's current content.

The path is relative to the current directory, or to the repository root
when --repo is given. A file path shows only that file's row.

Examples:
  glcm ls                      # Current directory at HEAD
  glcm ls src --rev v1.2.0     # Another directory at a tag
  glcm ls README.md --patch    # One file, with the change that introduced it
  glcm ls --exclude '*.lock'   # Hide matching rows`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().StringVar(&lsRepo, "repo", "", "Repository path (default: discovered from the current directory)")
	lsCmd.Flags().StringVar(&lsRev, "rev", "", "Revision to list (default HEAD)")
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "Output as JSON")
	lsCmd.Flags().BoolVar(&lsNameOnly, "name-only", false, "Output only short revision and name")
	lsCmd.Flags().StringSliceVar(&lsExclude, "exclude", nil, "Hide rows matching these gitignore-style patterns")
	lsCmd.Flags().IntVar(&lsMaxRevisions, "max-revisions", 0, "Stop the history walk after this many commits (0 = unbounded)")
	lsCmd.Flags().BoolVar(&lsNoCache, "no-cache", false, "Bypass the listing cache")
	lsCmd.Flags().BoolVar(&lsPatch, "patch", false, "For a file path, show the change that introduced its content")
	lsCmd.Flags().BoolVarP(&lsVerbose, "verbose", "v", false, "Enable debug logging")
}

func runLs(cmd *cobra.Command, args []string) error {
	repoPath := lsRepo
	if repoPath == "" {
		repoPath = "."
	}
	repo, err := gitio.Open(repoPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(repo.Root())
	if err != nil {
		return err
	}
	applyLsFlags(cmd, cfg)
	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	target, err := targetPath(repo.Root(), arg, lsRepo != "")
	if err != nil {
		return err
	}

	rev, err := repo.ResolveRevision(cfg.Rev)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("unknown revision %q", cfg.Rev)
	}
	if err != nil {
		return err
	}

	if lsPatch && (lsJSON || lsNameOnly) {
		return fmt.Errorf("--patch cannot be combined with --json or --name-only")
	}

	l := &lister{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		asm: provenance.NewAssembler(repo, provenance.Options{
			MaxRevisions: cfg.MaxRevisions,
			Logger:       logger,
		}),
	}
	if cfg.CacheEnabled() {
		lc, err := cache.Open(cfg.CacheDir)
		if err != nil {
			logger.Warn("listing cache unavailable", "dir", cfg.CacheDir, "error", err)
		} else {
			defer lc.Close()
			l.cache = lc
		}
	}

	listing, fileName, err := l.list(cmd.Context(), rev, target)
	if err != nil {
		return err
	}

	if fileName == "" {
		listing.Entries = ignore.Compile(cfg.Exclude).Filter(listing.Path, listing.Entries)
	} else if lsPatch {
		return writeFilePatch(cmd, repo, listing, fileName)
	}
	if lsPatch {
		return fmt.Errorf("--patch requires a file path")
	}

	if listing.Truncated {
		logger.Warn("history walk stopped early; attributions are limited to the newest commits",
			"max_revisions", cfg.MaxRevisions)
	}

	format := output.FormatDefault
	switch {
	case lsJSON:
		format = output.FormatJSON
	case lsNameOnly:
		format = output.FormatNameOnly
	}
	return output.WriteListing(cmd.OutOrStdout(), listing, format)
}

// applyLsFlags overrides configuration with flags the user set explicitly.
func applyLsFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("rev") {
		cfg.Rev = lsRev
	}
	if flags.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, lsExclude...)
	}
	if flags.Changed("max-revisions") {
		cfg.MaxRevisions = lsMaxRevisions
	}
	if lsNoCache {
		disabled := false
		cfg.Cache = &disabled
	}
	if lsVerbose {
		cfg.Debug = true
	}
}

// targetPath maps a command-line path to a repository-relative path. Relative
// paths are taken from the working directory unless rootRelative is set.
func targetPath(root, arg string, rootRelative bool) (string, error) {
	if arg == "" {
		if rootRelative {
			return "", nil
		}
		arg = "."
	}
	if !filepath.IsAbs(arg) && !rootRelative {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", fmt.Errorf("resolving path: %w", err)
		}
		arg = abs
	}
	if filepath.IsAbs(arg) {
		arg = pathres.RelativeTo(evalSymlinks(root), evalSymlinks(arg))
		if filepath.IsAbs(arg) {
			return "", fmt.Errorf("%s is outside the repository at %s", arg, root)
		}
	}
	return pathres.Normalize(arg)
}

// evalSymlinks resolves p as far as it exists on disk.
func evalSymlinks(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	dir, base := filepath.Split(p)
	if dir == p || dir == "" {
		return p
	}
	return filepath.Join(evalSymlinks(filepath.Clean(dir)), base)
}

type lister struct {
	repo   *gitio.Repository
	cfg    *config.Config
	cache  *cache.ListingCache
	asm    *provenance.Assembler
	logger *slog.Logger
}

// list returns the annotated listing for target. When target names a file,
// its parent is listed, only the file's row is kept, and the file name is
// returned.
func (l *lister) list(ctx context.Context, rev object.RevisionID, target string) (*provenance.Listing, string, error) {
	listing, err := l.annotate(ctx, rev, target)
	var nd *pathres.NotDirectoryError
	if !errors.As(err, &nd) {
		return listing, "", err
	}

	parent, name := path.Split(target)
	parent = path.Clean("/" + parent)[1:]
	listing, err = l.annotate(ctx, rev, parent)
	if err != nil {
		return nil, "", err
	}
	for _, e := range listing.Entries {
		if e.Name == name {
			listing.Entries = []object.AnnotatedEntry{e}
			return listing, name, nil
		}
	}
	return nil, "", &provenance.InconsistencyError{Name: name, Fingerprint: nd.Entry.Fingerprint, Revision: rev}
}

func (l *lister) annotate(ctx context.Context, rev object.RevisionID, dir string) (*provenance.Listing, error) {
	key := cache.Key{
		Repo:         l.repo.Root(),
		Revision:     rev,
		Path:         dir,
		MaxRevisions: l.cfg.MaxRevisions,
	}

	if l.cache != nil {
		cached, ok, err := l.cache.Get(key)
		if err != nil {
			l.logger.Warn("reading listing cache", "error", err)
		} else if ok {
			l.logger.Debug("listing cache hit", "rev", rev.Short(), "path", dir)
			return cached, nil
		}
	}

	listing, err := l.asm.BuildListing(ctx, rev, dir)
	if err != nil {
		return nil, err
	}

	if l.cache != nil && !listing.Truncated {
		if err := l.cache.Put(key, listing); err != nil {
			l.logger.Warn("writing listing cache", "error", err)
		}
	}
	return listing, nil
}

// writeFilePatch prints the file's row followed by the diff between its
// content at the attributed commit and at that commit's first parent.
func writeFilePatch(cmd *cobra.Command, repo *gitio.Repository, listing *provenance.Listing, name string) error {
	out := cmd.OutOrStdout()
	if err := output.WriteListing(out, listing, output.FormatDefault); err != nil {
		return err
	}

	entry := listing.Entries[0]
	switch entry.Kind {
	case object.KindRegularFile, object.KindExecutableFile, object.KindSymlink:
	default:
		return fmt.Errorf("--patch: %s is a %s, not a file", name, entry.Kind)
	}
	filePath := path.Join(listing.Path, name)

	after, err := repo.ReadBlob(entry.Fingerprint)
	if err != nil {
		return err
	}

	var before []byte
	parents, err := repo.Parents(entry.Revision)
	if err != nil {
		return err
	}
	if len(parents) > 0 {
		prev, err := pathres.Resolve(repo, parents[0], filePath)
		switch {
		case pathres.IsMissing(err):
		case err != nil:
			return err
		case prev.IsDir() || prev.Kind == object.KindSubmodule:
		default:
			before, err = repo.ReadBlob(prev.Fingerprint)
			if err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(out)
	return output.WritePatch(out, filePath, before, after)
}
