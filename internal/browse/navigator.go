// Package browse walks the per-host <date>/<device-cell>/<serial> folder
// layout down to the thermal CSV of one unit.
package browse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

var (
	// ErrPathAccess means a directory could not be listed.
	ErrPathAccess = errors.New("path access error")
	// ErrFileNotFound means the thermal CSV is not where the selection points.
	ErrFileNotFound = errors.New("file not found")
)

// FileNotFoundError carries the fully resolved path that was tried.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("expected file not found at: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return ErrFileNotFound }

// Opener maps a host root directory to a filesystem.
type Opener func(root string) fs.FS

// Navigator resolves host selections against the directory layout.
type Navigator struct {
	baseTemplate  string
	thermalSubdir string
	fileName      string
	open          Opener
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithOpener replaces os.DirFS, mainly for tests.
func WithOpener(open Opener) Option {
	return func(n *Navigator) { n.open = open }
}

// NewNavigator builds a navigator. baseTemplate must contain "{host}".
func NewNavigator(baseTemplate, thermalSubdir, fileName string, opts ...Option) *Navigator {
	n := &Navigator{
		baseTemplate:  baseTemplate,
		thermalSubdir: thermalSubdir,
		fileName:      fileName,
		open:          os.DirFS,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// BaseDir returns the root directory for a host.
func (n *Navigator) BaseDir(host string) string {
	return strings.ReplaceAll(n.baseTemplate, "{host}", strings.TrimSpace(host))
}

// relative path inside the host filesystem
func (n *Navigator) targetRel(sel Selection) string {
	return path.Join(sel.Date, sel.Device, sel.Serial, n.thermalSubdir, n.fileName)
}

// TargetFile is the absolute-looking path shown to the operator.
func (n *Navigator) TargetFile(host string, sel Selection) string {
	return strings.TrimRight(n.BaseDir(host), "/") + "/" + n.targetRel(sel)
}

// ListSubfolders lists the directories directly below parts under the host root.
func (n *Navigator) ListSubfolders(host string, parts ...string) ([]string, error) {
	fsys := n.open(n.BaseDir(host))
	dir := "."
	if len(parts) > 0 {
		dir = path.Join(parts...)
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPathAccess, path.Join(n.BaseDir(host), dir), err)
	}
	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

// OpenTarget opens the thermal CSV for a complete selection.
func (n *Navigator) OpenTarget(host string, sel Selection) (fs.File, fs.FileInfo, error) {
	fsys := n.open(n.BaseDir(host))
	f, err := fsys.Open(n.targetRel(sel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &FileNotFoundError{Path: n.TargetFile(host, sel)}
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrPathAccess, n.TargetFile(host, sel), err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrPathAccess, n.TargetFile(host, sel), err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, &FileNotFoundError{Path: n.TargetFile(host, sel)}
	}
	return f, info, nil
}

func sortedDesc(in []string) []string {
	out := append([]string(nil), in...)
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

func sortedAsc(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
