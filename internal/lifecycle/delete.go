package lifecycle

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/model"
)

// teardown is the set of resources a delete removes besides containers
// and the network. Each list keeps first-seen order and holds no
// duplicate strings.
type teardown struct {
	images  []string
	volumes []string
	files   []string
	dirs    []string
}

// Delete tears package name down. Phases run in this order, each one
// halting everything after it on failure:
//
//  1. remove every container (stop, then remove), manifest order
//  2. remove every image, only when includeImages is set
//  3. remove bound host files, then bound host directories (recursively)
//  4. remove volumes
//  5. remove the network
//
// Bound host paths that no longer exist are skipped with a warning.
func (m *Manager) Delete(ctx context.Context, name string, includeImages bool) (err error) {
	defer func() { m.observe("delete", name, err) }()

	pkg, err := m.Resolve(name)
	if err != nil {
		return err
	}

	log := m.log.With(zap.String("package", pkg.Name))
	plan, err := m.collect(log, pkg, includeImages)
	if err != nil {
		return err
	}

	s := &steps{op: "delete", pkg: pkg.Name}

	for _, c := range pkg.Containers {
		if err := m.runtime.RemoveContainer(ctx, c.Name); err != nil {
			return s.fail(err)
		}
		s.add("container " + c.Name)
	}

	for _, img := range plan.images {
		if err := m.runtime.RemoveImage(ctx, img); err != nil {
			return s.fail(err)
		}
		s.add("image " + img)
	}

	for _, f := range plan.files {
		if err := os.Remove(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn("bound file vanished before removal", zap.String("path", f))
				continue
			}
			return s.fail(model.NewError(model.KindFilesystem, "remove file", f, err))
		}
		s.add("file " + f)
	}

	for _, d := range plan.dirs {
		if err := os.RemoveAll(d); err != nil {
			return s.fail(model.NewError(model.KindFilesystem, "remove directory", d, err))
		}
		s.add("directory " + d)
	}

	for _, v := range plan.volumes {
		if err := m.runtime.RemoveVolume(ctx, v); err != nil {
			return s.fail(err)
		}
		s.add("volume " + v)
	}

	if err := m.runtime.RemoveNetwork(ctx, pkg.NetworkName); err != nil {
		return s.fail(err)
	}
	s.add("network " + pkg.NetworkName)

	log.Info("package deleted", zap.Strings("removed", s.done))
	return nil
}

// collect gathers what Delete removes besides containers. File binding
// sources are classified by a stat taken now; a missing source is
// skipped with a warning, any other stat failure aborts the delete before
// anything is removed.
func (m *Manager) collect(log *zap.Logger, pkg model.Package, includeImages bool) (teardown, error) {
	var t teardown
	seen := make(map[string]bool)
	add := func(list *[]string, kind, value string) {
		key := kind + "\x00" + value
		if seen[key] {
			return
		}
		seen[key] = true
		*list = append(*list, value)
	}

	for _, c := range pkg.Containers {
		if includeImages {
			add(&t.images, "image", c.Image)
		}
		for _, v := range c.VolumeBindings {
			add(&t.volumes, "volume", v.Source)
		}
		for _, f := range c.FileBindings {
			info, err := os.Stat(f.Source)
			switch {
			case errors.Is(err, os.ErrNotExist):
				log.Warn("bound path already absent, skipping",
					zap.String("container", c.Name), zap.String("path", f.Source))
			case err != nil:
				return teardown{}, model.NewError(model.KindFilesystem, "stat bound path", f.Source, err)
			case info.IsDir():
				add(&t.dirs, "path", f.Source)
			default:
				add(&t.files, "path", f.Source)
			}
		}
	}
	return t, nil
}
