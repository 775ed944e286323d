package dirstat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"
)

// walkParallel walks root with fastwalk. Entries are attributed to their parent
// directory in the collector, and reports are emitted once the walk is done.
//
//nolint:varnamelen // c is idiomatic for collector
func walkParallel(ctx context.Context, c *collector, root string, workers int) error {
	if err := readable(root); err != nil {
		return err
	}

	c.addSeen(root)

	// Configure fastwalk
	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: workers,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		path = filepath.Clean(path)

		if err != nil {
			if path == root || (d != nil && d.IsDir()) {
				c.fail(path)
				c.addError(&OpenError{Path: path, Err: cause(err)})
			} else {
				c.addError(&StatError{Path: path, Err: cause(err)})
			}

			return nil
		}

		// Check cancellation periodically
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		if path == root {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			c.addError(&StatError{Path: path, Err: cause(err)})

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		c.addEntry(filepath.Dir(path), path, info)

		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("walking %q: %w", root, walkErr)
	}

	c.flush()

	return nil
}

// readable checks that dir can be listed, reporting the failure the same way
// the sequential walker does for its start directory.
func readable(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return &OpenError{Path: dir, Err: cause(err)}
	}
	defer f.Close()

	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return &OpenError{Path: dir, Err: cause(err)}
	}

	return nil
}
