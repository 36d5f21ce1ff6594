// Package assets manages the flat directory of files that documents refer to
// by name (PDFs, images). Record metadata lives in storage; bytes live here.
package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const tmpPrefix = ".scriptorium-tmp-"

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ErrInvalidName is returned for names that are empty, hidden or not a plain
// file name.
var ErrInvalidName = errors.New("assets: invalid file name")

// FileInfo describes one stored asset.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Dir is an asset directory on the local file system.
type Dir struct {
	root string // absolute path
}

// NewDir creates the directory if needed and returns a Dir rooted there.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("assets: mkdir: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string {
	return d.root
}

// Path validates name and returns its absolute location. Names must be plain
// file names: no separators, no traversal, no leading dot.
func (d *Dir) Path(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	abs := filepath.Join(d.root, cleaned)
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return abs, nil
}

// Exists reports whether a regular file called name is stored.
func (d *Dir) Exists(name string) bool {
	abs, err := d.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Save atomically writes r to name: tmp file, fsync, rename. It returns the
// number of bytes written.
func (d *Dir) Save(name string, r io.Reader) (int64, error) {
	abs, err := d.Path(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(d.root, tmpPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("assets: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("assets: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("assets: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("assets: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return 0, fmt.Errorf("assets: rename: %w", err)
	}
	success = true
	return n, nil
}

// SaveUnique sanitizes name and saves r under it. When the name is taken the
// file is stored as a random UUID with the same extension instead. It returns
// the final name and the number of bytes written.
func (d *Dir) SaveUnique(name string, r io.Reader) (string, int64, error) {
	name = Sanitize(name)
	if d.Exists(name) {
		name = uuid.New().String() + strings.ToLower(filepath.Ext(name))
	}
	n, err := d.Save(name, r)
	if err != nil {
		return "", 0, err
	}
	return name, n, nil
}

// Sanitize strips directories, leading dots and unsafe characters from name.
func Sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeNameRe.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return uuid.New().String()
	}
	return name
}

// List returns the stored files sorted by name.
func (d *Dir) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("assets: list: %w", err)
	}
	out := []FileInfo{}
	for _, e := range entries {
		if !e.Type().IsRegular() || isTemp(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("assets: stat %s: %w", e.Name(), err)
		}
		out = append(out, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, tmpPrefix)
}
