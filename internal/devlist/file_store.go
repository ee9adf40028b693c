package devlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mr-tron/base58"

	"github.com/stepamak/pump-tracker/internal/domain"
)

// List file names, one per kind.
const (
	AllowFileName = "whitelist_dev.txt"
	DenyFileName  = "blacklist_dev.txt"

	fileHeader = "# one dev address per line"
	appDirName = "pump-tracker"
)

// FileName returns the list file name for kind.
func FileName(kind domain.ListKind) string {
	if kind == domain.ListDeny {
		return DenyFileName
	}
	return AllowFileName
}

// DefaultDirs returns the executable directory followed by the user config
// directory. Directories that cannot be resolved are omitted.
func DefaultDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cfg, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(cfg, appDirName))
	}
	return dirs
}

// FileStore reads list files from several directories and appends to the
// first writable one.
type FileStore struct {
	dirs []string
}

// NewFileStore creates a store over dirs, in priority order.
// An empty dirs uses DefaultDirs.
func NewFileStore(dirs []string) *FileStore {
	if len(dirs) == 0 {
		dirs = DefaultDirs()
	}
	return &FileStore{dirs: append([]string(nil), dirs...)}
}

// Dirs returns the directories in priority order.
func (s *FileStore) Dirs() []string {
	return append([]string(nil), s.dirs...)
}

// Paths returns the candidate file paths for kind.
func (s *FileStore) Paths(kind domain.ListKind) []string {
	paths := make([]string, len(s.dirs))
	for i, d := range s.dirs {
		paths[i] = filepath.Join(d, FileName(kind))
	}
	return paths
}

// Read returns the union of kind's entries across all directories, in
// first-seen order. Missing files are skipped; other read failures are
// aggregated and returned together with whatever was read.
func (s *FileStore) Read(kind domain.ListKind) ([]string, error) {
	var (
		out  []string
		seen = make(map[string]struct{})
		errs *multierror.Error
	)
	for _, p := range s.Paths(kind) {
		entries, err := readFile(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = multierror.Append(errs, err)
			}
			continue
		}
		for _, e := range entries {
			if _, dup := seen[e]; !dup {
				seen[e] = struct{}{}
				out = append(out, e)
			}
		}
	}
	return out, errs.ErrorOrNil()
}

// Add appends address to kind's file in the first directory that accepts
// the write, creating the file with a header when needed. Existing entries
// are not duplicated. It returns the path used and whether a line was written.
func (s *FileStore) Add(kind domain.ListKind, address string) (string, bool, error) {
	address = strings.TrimSpace(address)
	if address == "" || strings.ContainsAny(address, "#\r\n") {
		return "", false, fmt.Errorf("invalid dev address %q", address)
	}

	var errs *multierror.Error
	for _, p := range s.Paths(kind) {
		added, err := appendUnique(p, address)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		return p, added, nil
	}
	if errs == nil {
		return "", false, errors.New("no dev list directory configured")
	}
	return "", false, errs.ErrorOrNil()
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := ParseList(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

// ParseList reads one address per line. Lines are trimmed, blank lines and
// comment lines are skipped, and text after '#' is dropped.
func ParseList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func appendUnique(path, address string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create dir for %s: %w", path, err)
	}

	existing, err := readFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	for _, e := range existing {
		if e == address {
			return false, nil
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	var b strings.Builder
	switch {
	case info.Size() == 0:
		b.WriteString(fileHeader + "\n")
	case !endsWithNewline(f, info.Size()):
		b.WriteString("\n")
	}
	b.WriteString(address + "\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func endsWithNewline(f *os.File, size int64) bool {
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, size-1); err != nil {
		return true
	}
	return buf[0] == '\n'
}

// ValidAddress reports whether s decodes as a 32-byte base58 public key.
func ValidAddress(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}
