package dirstat

import (
	"errors"
	"io"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/idelchi/linkstat/internal/ledger"
)

// Report holds the statistics of a single directory.
type Report struct {
	// Path is the directory path.
	Path string `json:"path"`
	// FileLinks is the number of regular-file entries in the directory.
	FileLinks int64 `json:"file_links"`
	// FileSpace is the combined size of those entries.
	FileSpace int64 `json:"file_space"`
	// Subdirs is the number of immediate subdirectories.
	Subdirs int64 `json:"subdirs"`
	// SubdirSpace is the combined size of the subdirectory entries themselves,
	// as reported by stat. It is not the size of their contents.
	SubdirSpace int64 `json:"subdir_space"`
}

// Totals holds counters accumulated over the whole walk.
type Totals struct {
	// Directories is the number of directories successfully listed.
	Directories int64 `json:"directories"`
	// Links is the number of regular-file entries, hard-linked duplicates included.
	Links int64 `json:"links"`
}

// Result is the outcome of a walk.
type Result struct {
	// Root is the cleaned start path.
	Root string `json:"root"`
	// Recursive indicates whether subdirectories were walked.
	Recursive bool `json:"recursive"`
	// Reports contains one entry per listed directory.
	Reports []Report `json:"directories"`
	// Totals are the walk-wide counters.
	Totals Totals `json:"totals"`
	// Summary holds the distinct and externally linked file totals.
	Summary ledger.Summary `json:"summary"`
	// ErrorCount is the number of non-fatal errors encountered.
	ErrorCount int64 `json:"error_count"`
	// Errors holds the non-fatal errors, in the order they occurred.
	Errors []error `json:"-"`
	// Ledger is the final inode ledger.
	Ledger *ledger.Ledger `json:"-"`
	// Elapsed is the total time taken by the walk.
	Elapsed time.Duration `json:"elapsed"`
}

// Options configures the walk and CLI behavior.
type Options struct {
	// Path is the directory to analyze.
	Path string
	// Recursive enables walking into subdirectories.
	Recursive bool
	// Parallel walks subdirectories concurrently. Only used when Recursive is set.
	Parallel bool
	// Workers is the number of parallel walkers (0 = fastwalk default).
	Workers int
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Log receives errors and debug traces. Nil discards them.
	Log logrus.FieldLogger
	// Debug indicates whether debug output is enabled.
	Debug bool
	// Human indicates whether sizes are printed in human-readable form.
	Human bool
	// Output represents output format (table or json).
	Output string
}

// collector owns the ledger and the walk counters.
// All mutations are serialized by mu, which lets the parallel walker share it.
type collector struct {
	mu        sync.Mutex
	log       logrus.FieldLogger
	ledger    *ledger.Ledger
	totals    Totals
	reports   []Report
	errors    []error
	synthetic uint64

	// Used by the parallel walker only.
	dirs   map[string]*Report
	failed map[string]struct{}
}

// newCollector creates a collector logging to log.
func newCollector(log logrus.FieldLogger) *collector {
	if log == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		log = discard
	}

	return &collector{
		log:    log,
		ledger: ledger.New(),
		dirs:   make(map[string]*Report),
		failed: make(map[string]struct{}),
	}
}

// record enters a regular file into the ledger.
func (c *collector) record(path string, info fs.FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recordLocked(path, info)
}

func (c *collector) recordLocked(path string, info fs.FileInfo) {
	inode, links, ok := fileID(info)
	if !ok {
		c.synthetic++
		inode, links = c.synthetic, 1
	}

	if c.ledger.Record(info.Size(), links, inode) {
		c.log.WithField("path", path).Debugf("inode %d already counted", inode)
	}
}

// finish accounts for a fully listed directory.
func (c *collector) finish(r Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totals.Directories++
	c.totals.Links += r.FileLinks
	c.reports = append(c.reports, r)
}

// addError records and logs a non-fatal error.
func (c *collector) addError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors = append(c.errors, err)

	var (
		openErr *OpenError
		statErr *StatError
	)

	switch {
	case errors.As(err, &openErr):
		c.log.WithField("path", openErr.Path).WithError(openErr.Err).Error("cannot open directory")
	case errors.As(err, &statErr):
		c.log.WithField("path", statErr.Path).WithError(statErr.Err).Error("cannot stat entry")
	default:
		c.log.WithError(err).Error("walk error")
	}
}

// progress returns the counters accumulated so far.
func (c *collector) progress() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.totals.Directories, c.totals.Links
}

// dir returns the report for path, creating it on first use.
func (c *collector) dir(path string) *Report {
	r, ok := c.dirs[path]
	if !ok {
		r = &Report{Path: path}
		c.dirs[path] = r
		c.totals.Directories++
	}

	return r
}

// addSeen registers a directory reached by the parallel walker.
func (c *collector) addSeen(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dir(path)
}

// addEntry attributes an entry to its parent directory in the parallel walker.
func (c *collector) addEntry(parent, path string, info fs.FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.dir(parent)

	switch mode := info.Mode(); {
	case mode.IsRegular():
		r.FileLinks++
		r.FileSpace += info.Size()
		c.totals.Links++
		c.recordLocked(path, info)
	case mode.IsDir():
		r.Subdirs++
		r.SubdirSpace += info.Size()
		c.dir(path)
	}
}

// fail marks a directory of the parallel walker as unreadable.
func (c *collector) fail(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed[path] = struct{}{}
}

// flush turns the parallel walker's directory map into reports, sorted by path,
// and recomputes the totals from them.
func (c *collector) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totals = Totals{}

	for path, r := range c.dirs {
		if _, failed := c.failed[path]; failed {
			continue
		}

		c.totals.Directories++
		c.totals.Links += r.FileLinks
		c.reports = append(c.reports, *r)
	}

	sort.Slice(c.reports, func(i, j int) bool {
		return c.reports[i].Path < c.reports[j].Path
	})
}

// finalize produces the Result from the collected data.
func (c *collector) finalize(root string, recursive bool) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &Result{
		Root:       root,
		Recursive:  recursive,
		Reports:    c.reports,
		Totals:     c.totals,
		Summary:    c.ledger.Summarize(),
		ErrorCount: int64(len(c.errors)),
		Errors:     c.errors,
		Ledger:     c.ledger,
	}
}
