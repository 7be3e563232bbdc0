package modes

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/scour-io/scour/internal/alert"
	"github.com/scour-io/scour/internal/executor"
	"github.com/scour-io/scour/internal/registry"
)

// Artifact folders are named <run>-<kind>-<lineage>, e.g.
// "00024399-raw-5f1a9c". The lineage tag is derived from the producing
// definition; a tag that no longer matches the active definition marks
// a stale artifact.
type artifact struct {
	Number  int
	Kind    string
	Lineage string
	Name    string
	Path    string
}

// RunName returns the canonical artifact folder name for a run.
func RunName(number int, kind, lineage string) string {
	return fmt.Sprintf("%08d-%s-%s", number, kind, lineage)
}

// parseArtifact decodes an artifact folder name. "-temp" shadow
// folders are handled by the executor alongside their primary.
func parseArtifact(dir, name string) (artifact, bool) {
	if strings.HasSuffix(name, "-temp") {
		return artifact{}, false
	}
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 {
		return artifact{}, false
	}
	number, err := strconv.Atoi(parts[0])
	if err != nil || number <= 0 {
		return artifact{}, false
	}
	return artifact{
		Number:  number,
		Kind:    parts[1],
		Lineage: parts[2],
		Name:    name,
		Path:    filepath.Join(dir, name),
	}, true
}

// scanArtifacts lists parseable artifact folders under root. A missing
// root is an empty scan, not an error.
func scanArtifacts(root string) ([]artifact, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var out []artifact
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if a, ok := parseArtifact(root, entry.Name()); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// cleanUnregistered scans the processed tier for run folders with no
// matching registry record. Each discovered run id is reported at
// error priority, then re-checked with a fresh registry lookup before
// anything is touched; confirmed orphans are archived into the
// quarantine tier and removed. Single pass, per discovered run id.
func (c *Cleaner) cleanUnregistered(ctx context.Context, opts Options) error {
	artifacts, err := scanArtifacts(c.cfg.Tiers.ProcessedRoot)
	if err != nil {
		return err
	}

	byRun := make(map[int][]artifact)
	for _, a := range artifacts {
		byRun[a.Number] = append(byRun[a.Number], a)
	}
	numbers := make([]int, 0, len(byRun))
	for n := range byRun {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, number := range numbers {
		if _, err := c.reg.Run(ctx, number); err == nil {
			continue
		} else if !errors.Is(err, registry.ErrRunNotFound) {
			return err
		}

		c.alerts.Report(ctx, alert.PriorityError,
			fmt.Sprintf("found %d on-disk folder(s) for unregistered run %d", len(byRun[number]), number),
			number)

		// Deep check: a fresh lookup right before acting, in case the
		// pipeline registered the run while this pass was scanning.
		if _, err := c.reg.Run(ctx, number); err == nil {
			c.log.WithRun(number).Info("run registered since scan, leaving folders alone")
			continue
		} else if !errors.Is(err, registry.ErrRunNotFound) {
			return err
		}

		for _, a := range byRun[number] {
			if opts.DryRun {
				c.log.WithRun(number).Infof("dry-run: would quarantine", map[string]any{
					"path": a.Path,
				})
				continue
			}
			if err := c.quarantine(a); err != nil {
				if fatal := c.isolate(ModeUnregistered, number, err); fatal != nil {
					return fatal
				}
			}
		}
	}
	return nil
}

// cleanStaging removes unregistered artifacts from the staging tier.
// Staging holds data the pipeline has not registered yet, so nothing
// younger than the configured delay is touched. Single pass.
func (c *Cleaner) cleanStaging(ctx context.Context, opts Options) error {
	root := c.cfg.Tiers.StagingRoot
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", root, err)
	}

	cutoff := c.now().Add(-time.Duration(c.cfg.Cleaner.StagingDelayHours) * time.Hour)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		a, ok := parseArtifact(root, entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if _, err := c.reg.Run(ctx, a.Number); err == nil {
			continue
		} else if !errors.Is(err, registry.ErrRunNotFound) {
			return err
		}

		if opts.DryRun {
			c.log.WithRun(a.Number).Infof("dry-run: would remove staging artifact", map[string]any{
				"path": a.Path,
			})
			continue
		}
		if err := os.RemoveAll(a.Path); err != nil {
			if fatal := c.isolate(ModeStaging, a.Number, &executor.InconsistencyError{
				Run: a.Number, Path: a.Path, Err: err,
			}); fatal != nil {
				return fatal
			}
			continue
		}
		c.log.WithRun(a.Number).Infof("staging artifact removed", map[string]any{
			"path": a.Path,
		})
	}
	return nil
}

// cleanStaleLineage removes artifacts whose lineage tag does not match
// the currently active definition for their kind. Registered artifacts
// go through the executor so the registry entry is cleared alongside
// the folder; unregistered leftovers are removed directly. Single pass.
func (c *Cleaner) cleanStaleLineage(ctx context.Context, opts Options) error {
	if len(c.cfg.Cleaner.Lineage) == 0 {
		c.log.Debug("stale-lineage: no active lineage configured, nothing to compare against")
		return nil
	}

	artifacts, err := scanArtifacts(c.cfg.Tiers.ProcessedRoot)
	if err != nil {
		return err
	}

	host := c.coord.Host()
	for _, a := range artifacts {
		active, known := c.cfg.Cleaner.Lineage[a.Kind]
		if !known || a.Lineage == active {
			continue
		}

		run, err := c.reg.Run(ctx, a.Number)
		if err != nil && !errors.Is(err, registry.ErrRunNotFound) {
			return err
		}

		if err == nil {
			if loc, ok := run.FindLocation(a.Kind, host); ok && loc.Path == a.Path {
				_, err := c.exec.Delete(ctx, &run, loc, executor.Options{
					DryRun: opts.DryRun,
					Force:  opts.Force,
					Reason: opts.reason(fmt.Sprintf("stale lineage %s, active is %s", a.Lineage, active)),
					Mode:   string(ModeStaleLineage),
				})
				if err != nil {
					if fatal := c.isolate(ModeStaleLineage, a.Number, err); fatal != nil {
						return fatal
					}
				}
				continue
			}
		}

		// Not in the registry: a leftover from a reprocessing pass.
		if opts.DryRun {
			c.log.WithRun(a.Number).Infof("dry-run: would remove stale artifact", map[string]any{
				"path": a.Path, "lineage": a.Lineage, "active": active,
			})
			continue
		}
		if err := os.RemoveAll(a.Path); err != nil {
			if fatal := c.isolate(ModeStaleLineage, a.Number, &executor.InconsistencyError{
				Run: a.Number, Path: a.Path, Err: err,
			}); fatal != nil {
				return fatal
			}
			continue
		}
		c.log.WithRun(a.Number).Infof("stale artifact removed", map[string]any{
			"path": a.Path, "lineage": a.Lineage, "active": active,
		})
	}
	return nil
}

// quarantine archives the artifact folder as a tar.gz in the
// quarantine tier for operator review, then removes the original.
func (c *Cleaner) quarantine(a artifact) error {
	root := c.cfg.Tiers.QuarantineRoot
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("quarantine: %w", err)
	}

	dst := filepath.Join(root, a.Name+".tar.gz")
	if err := archiveTree(a.Path, dst); err != nil {
		return fmt.Errorf("quarantine %s: %w", a.Path, err)
	}
	if err := os.RemoveAll(a.Path); err != nil {
		return &executor.InconsistencyError{Run: a.Number, Path: a.Path, Err: err}
	}

	c.log.WithRun(a.Number).Infof("orphaned artifact quarantined", map[string]any{
		"path":    a.Path,
		"archive": dst,
	})
	return nil
}

// archiveTree writes a gzip-compressed tarball of the directory tree
// rooted at src.
func archiveTree(src, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	base := filepath.Dir(src)
	err = filepath.Walk(src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}
