package dirstat_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/linkstat/internal/dirstat"
)

// writeFile creates a file of size bytes, creating parent directories as needed.
func writeFile(t *testing.T, path string, size int) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

// dirSize returns the stat size of a directory entry.
func dirSize(t *testing.T, path string) int64 {
	t.Helper()

	info, err := os.Lstat(path)
	require.NoError(t, err)

	return info.Size()
}

// reportFor returns the report for path.
func reportFor(t *testing.T, result *dirstat.Result, path string) dirstat.Report {
	t.Helper()

	for _, r := range result.Reports {
		if r.Path == path {
			return r
		}
	}

	require.Failf(t, "missing report", "no report for %q", path)

	return dirstat.Report{}
}

// basicTree builds root/{a.txt(10), sub/{b.txt(20)}}.
func basicTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), 10)
	writeFile(t, filepath.Join(root, "sub", "b.txt"), 20)

	return root
}

func TestRunNonRecursive(t *testing.T) {
	root := basicTree(t)

	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: root}, nil)
	require.NoError(t, err)

	require.Len(t, result.Reports, 1)
	assert.Equal(t, dirstat.Report{
		Path:        root,
		FileLinks:   1,
		FileSpace:   10,
		Subdirs:     1,
		SubdirSpace: dirSize(t, filepath.Join(root, "sub")),
	}, result.Reports[0])

	assert.Equal(t, dirstat.Totals{Directories: 1, Links: 1}, result.Totals)
	assert.Equal(t, int64(1), result.Summary.Files)
	assert.Equal(t, int64(10), result.Summary.Bytes)
	assert.Zero(t, result.ErrorCount)
}

func TestRunRecursive(t *testing.T) {
	root := basicTree(t)

	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: root, Recursive: true}, nil)
	require.NoError(t, err)

	require.Len(t, result.Reports, 2)

	// Descendants are reported before their parent.
	assert.Equal(t, filepath.Join(root, "sub"), result.Reports[0].Path)
	assert.Equal(t, root, result.Reports[1].Path)

	sub := reportFor(t, result, filepath.Join(root, "sub"))
	assert.Equal(t, int64(1), sub.FileLinks)
	assert.Equal(t, int64(20), sub.FileSpace)
	assert.Zero(t, sub.Subdirs)

	assert.Equal(t, dirstat.Totals{Directories: 2, Links: 2}, result.Totals)
	assert.Equal(t, int64(2), result.Summary.Files)
	assert.Equal(t, int64(30), result.Summary.Bytes)
	assert.Zero(t, result.Summary.ExternalFiles)
	assert.Zero(t, result.Summary.ExternalBytes)
}

func TestRunVisitsEveryDirectoryOnce(t *testing.T) {
	root := t.TempDir()

	dirs := []string{
		"a",
		"a/b",
		"a/b/c",
		"d",
		"d/e",
		"f",
	}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
		writeFile(t, filepath.Join(root, d, "file"), 1)
	}

	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: root, Recursive: true}, nil)
	require.NoError(t, err)

	paths := make([]string, 0, len(result.Reports))
	for _, r := range result.Reports {
		paths = append(paths, r.Path)
	}

	want := []string{root}
	for _, d := range dirs {
		want = append(want, filepath.Join(root, filepath.FromSlash(d)))
	}

	assert.ElementsMatch(t, want, paths)
	assert.Equal(t, int64(len(want)), result.Totals.Directories)
	assert.Equal(t, int64(len(dirs)), result.Totals.Links)
}

func TestRunEmptyDirectory(t *testing.T) {
	root := t.TempDir()

	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: root, Recursive: true}, nil)
	require.NoError(t, err)

	require.Len(t, result.Reports, 1)
	assert.Equal(t, dirstat.Report{Path: root}, result.Reports[0])
	assert.Equal(t, dirstat.Totals{Directories: 1}, result.Totals)
	assert.Zero(t, result.Summary.Files)
}

func TestRunStripsTrailingSeparators(t *testing.T) {
	root := basicTree(t)

	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: root + "///", Recursive: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, root, result.Root)
	reportFor(t, result, root)
	reportFor(t, result, filepath.Join(root, "sub"))
}

func TestRunFilesystemRoot(t *testing.T) {
	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: "/"}, nil)
	require.NoError(t, err)

	require.Len(t, result.Reports, 1)
	assert.Equal(t, "/", result.Reports[0].Path)
	assert.Equal(t, int64(1), result.Totals.Directories)
}

func TestRunDefaultsToCurrentDirectory(t *testing.T) {
	root := basicTree(t)
	t.Chdir(root)

	result, err := dirstat.Run(context.Background(), dirstat.Options{Recursive: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, ".", result.Root)
	reportFor(t, result, ".")
	reportFor(t, result, "sub")
	assert.Equal(t, dirstat.Totals{Directories: 2, Links: 2}, result.Totals)
}

func TestRunRootErrors(t *testing.T) {
	root := basicTree(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "missing", path: filepath.Join(root, "missing")},
		{name: "not a directory", path: filepath.Join(root, "a.txt")},
	}

	for _, tt := range tests {
		for _, parallel := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s parallel=%t", tt.name, parallel), func(t *testing.T) {
				opt := dirstat.Options{Path: tt.path, Recursive: true, Parallel: parallel}

				result, err := dirstat.Run(context.Background(), opt, nil)
				require.Error(t, err)
				assert.Nil(t, result)

				var openErr *dirstat.OpenError
				require.ErrorAs(t, err, &openErr)
				assert.Equal(t, tt.path, openErr.Path)
			})
		}
	}
}

func TestRunSkipsUnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := basicTree(t)
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "hidden.txt"), 100)
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	for _, parallel := range []bool{false, true} {
		opt := dirstat.Options{Path: root, Recursive: true, Parallel: parallel}

		result, err := dirstat.Run(context.Background(), opt, nil)
		require.NoError(t, err)

		assert.Equal(t, dirstat.Totals{Directories: 2, Links: 2}, result.Totals)
		assert.Equal(t, int64(2), reportFor(t, result, root).Subdirs)
		assert.Equal(t, int64(30), result.Summary.Bytes)

		require.Equal(t, int64(1), result.ErrorCount)

		var openErr *dirstat.OpenError
		require.ErrorAs(t, result.Errors[0], &openErr)
		assert.Equal(t, locked, openErr.Path)
	}
}

func TestRunIgnoresSymlinks(t *testing.T) {
	root := basicTree(t)

	require.NoError(t, os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "file-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "dir-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken-link")))

	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: root, Recursive: true}, nil)
	require.NoError(t, err)

	top := reportFor(t, result, root)
	assert.Equal(t, int64(1), top.FileLinks)
	assert.Equal(t, int64(1), top.Subdirs)
	assert.Equal(t, dirstat.Totals{Directories: 2, Links: 2}, result.Totals)
	assert.Zero(t, result.ErrorCount)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()

	for _, f := range []string{"a", "b/c", "b/d/e", "b/d/f", "g/h/i/j", "k/l"} {
		writeFile(t, filepath.Join(root, filepath.FromSlash(f)), len(f)*7)
	}

	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	sequential, err := dirstat.Run(context.Background(), dirstat.Options{Path: root, Recursive: true}, nil)
	require.NoError(t, err)

	parallel, err := dirstat.Run(
		context.Background(),
		dirstat.Options{Path: root, Recursive: true, Parallel: true, Workers: 4},
		nil,
	)
	require.NoError(t, err)

	sort.Slice(sequential.Reports, func(i, j int) bool {
		return sequential.Reports[i].Path < sequential.Reports[j].Path
	})

	assert.Equal(t, sequential.Reports, parallel.Reports)
	assert.Equal(t, sequential.Totals, parallel.Totals)
	assert.Equal(t, sequential.Summary, parallel.Summary)
}

func TestRunParallelIgnoredWhenNotRecursive(t *testing.T) {
	root := basicTree(t)

	result, err := dirstat.Run(context.Background(), dirstat.Options{Path: root, Parallel: true}, nil)
	require.NoError(t, err)

	require.Len(t, result.Reports, 1)
	assert.Equal(t, dirstat.Totals{Directories: 1, Links: 1}, result.Totals)
}

func TestRunCancelled(t *testing.T) {
	root := basicTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := dirstat.Run(ctx, dirstat.Options{Path: root, Recursive: true}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunProgressStopsBeforeReturn(t *testing.T) {
	root := basicTree(t)

	var calls atomic.Int64

	hook := func(int64, int64) {
		calls.Add(1)
	}

	opt := dirstat.Options{Path: root, Recursive: true, ProgressInterval: time.Microsecond}

	for range 20 {
		_, err := dirstat.Run(context.Background(), opt, hook)
		require.NoError(t, err)

		after := calls.Load()

		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, after, calls.Load())
	}
}
