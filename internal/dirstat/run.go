package dirstat

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// startProgressReporter invokes hook(directories, links) on each tick until ctx is done.
// The returned channel is closed once the reporter has stopped; no hook call
// happens after that.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(int64, int64), interval time.Duration) <-chan struct{} {
	done := make(chan struct{})

	if hook == nil {
		close(done)

		return done
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.progress())
			case <-ctx.Done():
				return
			}
		}
	}()

	return done
}

// Run walks opt.Path and returns its directory statistics.
//
// Without opt.Recursive only opt.Path itself is listed. With it, every
// reachable subdirectory is listed once; symbolic links are never followed.
// Directories and entries that cannot be read are logged to opt.Log, collected
// in Result.Errors and skipped. Only a failure to list opt.Path itself is
// returned as an error, as an *OpenError.
//
// The walk can be cancelled via ctx. Progress updates are sent to
// progressHook if provided.
func Run(ctx context.Context, opt Options, progressHook func(int64, int64)) (*Result, error) {
	if opt.Path == "" {
		opt.Path = "."
	}

	// Strips trailing separators; keeps "/" and ".".
	opt.Path = filepath.Clean(opt.Path)

	collector := newCollector(opt.Log)

	ctx, cancel := context.WithCancel(ctx)

	reporterDone := startProgressReporter(ctx, collector, progressHook, opt.ProgressInterval)

	defer func() {
		cancel()
		<-reporterDone
	}()

	collector.log.Debugf("walking %s (recursive=%t, parallel=%t)", opt.Path, opt.Recursive, opt.Parallel)

	start := time.Now()

	var err error

	if opt.Recursive && opt.Parallel {
		err = walkParallel(ctx, collector, opt.Path, opt.Workers)
	} else {
		w := &walker{collector: collector, recursive: opt.Recursive}
		_, err = w.walk(ctx, opt.Path)
	}

	if err != nil {
		return nil, err
	}

	result := collector.finalize(opt.Path, opt.Recursive)

	result.Elapsed = time.Since(start)

	return result, nil
}

// walker is the sequential, depth-first walker.
type walker struct {
	collector *collector
	recursive bool
}

// walk lists dir and, when recursive, its subdirectories.
// The report of dir is emitted after those of its descendants.
func (w *walker) walk(ctx context.Context, dir string) (Report, error) {
	w.collector.log.Debugf("entering %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{}, &OpenError{Path: dir, Err: cause(err)}
	}

	report := Report{Path: dir}

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		name := de.Name()
		if name == "." || name == ".." {
			continue
		}

		path := filepath.Join(dir, name)

		// Always use Lstat to avoid following symlinks
		info, err := os.Lstat(path)
		if err != nil {
			w.collector.addError(&StatError{Path: path, Err: cause(err)})

			continue
		}

		switch mode := info.Mode(); {
		case mode.IsRegular():
			report.FileLinks++
			report.FileSpace += info.Size()
			w.collector.record(path, info)
		case mode.IsDir():
			report.Subdirs++
			report.SubdirSpace += info.Size()

			if !w.recursive {
				continue
			}

			if _, err := w.walk(ctx, path); err != nil {
				if ctx.Err() != nil {
					return Report{}, ctx.Err()
				}

				w.collector.addError(err)
			}
		default:
			w.collector.log.WithField("path", path).Debugf("skipping %s", mode.Type())
		}
	}

	w.collector.finish(report)

	return report, nil
}
