// Package dirstat computes per-directory and tree-wide statistics.
//
// It walks a directory, optionally recursively, counting regular files and
// immediate subdirectories per directory. Regular files are recorded in an
// inode ledger so that hard-linked duplicates are counted once and files
// with hard links outside the walked tree can be reported.
package dirstat
