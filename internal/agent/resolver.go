package agent

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FileResolver maps a file name mentioned by the user to paths on disk.
type FileResolver interface {
	Find(ctx context.Context, name string) ([]string, error)
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// WalkResolver searches Root recursively. A bare name matches by base name;
// a name containing a slash matches the end of the path relative to Root.
// Matches are returned sorted, so the first one is stable across runs.
type WalkResolver struct {
	Root string
}

func (r WalkResolver) Find(ctx context.Context, name string) ([]string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "." || name == "" {
		return nil, nil
	}
	root := r.Root
	if root == "" {
		root = "."
	}
	withDir := strings.ContainsRune(filepath.ToSlash(name), '/')
	suffix := "/" + strings.TrimPrefix(filepath.ToSlash(name), "/")

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			base := d.Name()
			if path != root && (skipDirs[base] || strings.HasPrefix(base, ".")) {
				return fs.SkipDir
			}
			return nil
		}

		if !withDir {
			if d.Name() == name {
				matches = append(matches, path)
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = "/" + filepath.ToSlash(rel)
		if strings.HasSuffix(rel, suffix) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(matches)
	return matches, nil
}
