package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"phonestorage/internal/pkg/clock"
)

const (
	DefaultBaseDir = "./uploads"
	maxNameLength  = 200

	// MaxCleanupDays bounds the age cutoff accepted by Cleanup.
	MaxCleanupDays = 3650
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Store keeps uploaded files on local disk, one directory per token.
// Disk state is authoritative: nothing here caches listings.
type Store struct {
	baseDir string
	maxSize int64
	clock   clock.Clock
	log     zerolog.Logger
}

func NewStore(baseDir string, maxSize int64, clk clock.Clock, log zerolog.Logger) (*Store, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if clk == nil {
		clk = clock.Real()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root %s: %w", baseDir, err)
	}
	return &Store{
		baseDir: baseDir,
		maxSize: maxSize,
		clock:   clk,
		log:     log.With().Str("component", "upload_store").Logger(),
	}, nil
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) MaxSize() int64 { return s.maxSize }

// ValidToken reports whether token is usable as a directory name.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

func (s *Store) dir(token string) (string, error) {
	if !ValidToken(token) {
		return "", ErrInvalidToken
	}
	return filepath.Join(s.baseDir, token), nil
}

// SanitizeFilename reduces a client-supplied name to a bare, safe file name.
// Path components are dropped, whitespace becomes "_", anything outside
// [A-Za-z0-9._-] is removed and leading/trailing dots and underscores are
// trimmed. The result may be empty.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "/" || name == "." {
		return ""
	}
	name = strings.Join(strings.Fields(name), "_")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			return r
		}
		return -1
	}, name)
	name = strings.Trim(name, "._")

	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}

// Save writes r to the token directory under the sanitized filename,
// replacing any existing file of that name.
func (s *Store) Save(token, filename string, r io.Reader) (FileDescriptor, error) {
	dir, err := s.dir(token)
	if err != nil {
		return FileDescriptor{}, err
	}
	name := SanitizeFilename(filename)
	if name == "" {
		return FileDescriptor{}, ErrEmptySelection
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileDescriptor{}, fmt.Errorf("create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmp.Name())
	}()

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("write file: %w", err)
	}
	if s.maxSize > 0 && written > s.maxSize {
		return FileDescriptor{}, ErrFileTooLarge
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return FileDescriptor{}, fmt.Errorf("store file: %w", err)
	}

	s.log.Info().Str("token", token).Str("file", name).Int64("size", written).Msg("file stored")

	return FileDescriptor{
		Name:     name,
		Size:     written,
		Type:     Classify(name),
		Path:     name,
		Modified: s.clock.Now(),
	}, nil
}

// List returns the regular files directly inside the token directory,
// sorted by name. A missing or unreadable directory yields an empty list.
func (s *Store) List(token string) ([]FileDescriptor, error) {
	dir, err := s.dir(token)
	if err != nil {
		return nil, err
	}

	files := make([]FileDescriptor, 0)
	entries, err := s.readDir(dir)
	if err != nil {
		return files, nil
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || isTempName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileDescriptor{
			Name:     e.Name(),
			Size:     info.Size(),
			Type:     Classify(e.Name()),
			Path:     e.Name(),
			Modified: info.ModTime().UTC(),
		})
	}
	return files, nil
}

// Structure returns the simulated storage tree for the token: files and
// sub-folders of the top level.
func (s *Store) Structure(token string) (Tree, error) {
	tree := Tree{Name: "Storage", Type: "folder", Contents: make([]Node, 0)}
	dir, err := s.dir(token)
	if err != nil {
		return tree, err
	}

	entries, err := s.readDir(dir)
	if err != nil {
		return tree, nil
	}
	for _, e := range entries {
		switch {
		case e.IsDir():
			tree.Contents = append(tree.Contents, Node{Name: e.Name(), Type: "folder", Path: e.Name()})
		case e.Type().IsRegular() && !isTempName(e.Name()):
			info, err := e.Info()
			if err != nil {
				continue
			}
			tree.Contents = append(tree.Contents, Node{Name: e.Name(), Type: "file", Size: info.Size(), Path: e.Name()})
		}
	}
	return tree, nil
}

// Stats walks the whole token subtree.
func (s *Store) Stats(token string) (Stats, error) {
	var st Stats
	dir, err := s.dir(token)
	if err != nil {
		return st, err
	}

	if _, err := os.Stat(dir); err == nil {
		walkErr := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.Type().IsRegular() || isTempName(d.Name()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			st.TotalFiles++
			st.TotalSize += info.Size()
			return nil
		})
		if walkErr != nil {
			s.log.Warn().Err(walkErr).Str("token", token).Msg("storage stats walk failed")
		}
	}

	st.TotalSizeMB = math.Round(float64(st.TotalSize)/(1024*1024)*100) / 100
	st.TotalSizeHuman = humanize.IBytes(uint64(st.TotalSize))
	return st, nil
}

// MediaCounts counts photos and videos among the top-level files. The total
// size covers every regular file, media or not.
func (s *Store) MediaCounts(token string) MediaCounts {
	var mc MediaCounts
	files, err := s.List(token)
	if err != nil {
		return mc
	}
	for _, f := range files {
		mc.TotalSize += f.Size
		switch f.Type {
		case MediaImage:
			mc.Photos++
		case MediaVideo:
			mc.Videos++
		}
	}
	return mc
}

// Gallery lists media files only, optionally restricted to one media type.
// Paths point at the /uploads route.
func (s *Store) Gallery(token string, only MediaType) ([]FileDescriptor, error) {
	files, err := s.List(token)
	if err != nil {
		return nil, err
	}
	gallery := make([]FileDescriptor, 0, len(files))
	for _, f := range files {
		if f.Type == MediaOther {
			continue
		}
		if only != "" && f.Type != only {
			continue
		}
		f.Path = "/uploads/" + token + "/" + f.Name
		gallery = append(gallery, f)
	}
	return gallery, nil
}

// Open resolves filename strictly inside the token directory and returns the
// absolute path of a regular file. Anything that escapes the directory, is
// missing, or is not a regular file is ErrNotFound.
func (s *Store) Open(token, filename string) (string, FileDescriptor, error) {
	dir, err := s.dir(token)
	if err != nil {
		return "", FileDescriptor{}, ErrNotFound
	}
	filename = strings.TrimPrefix(strings.ReplaceAll(filename, "\\", "/"), "/")
	if filename == "" || isTempName(path.Base(filename)) {
		return "", FileDescriptor{}, ErrNotFound
	}

	full := filepath.Join(dir, filepath.FromSlash(filename))
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", FileDescriptor{}, ErrNotFound
	}

	info, err := os.Lstat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", FileDescriptor{}, ErrNotFound
	}

	return full, FileDescriptor{
		Name:     info.Name(),
		Size:     info.Size(),
		Type:     Classify(info.Name()),
		Path:     filepath.ToSlash(rel),
		Modified: info.ModTime().UTC(),
	}, nil
}

// Cleanup removes whole token directories whose modification time is older
// than the given number of days, clamped to [0, MaxCleanupDays]. Failures are
// logged and skipped.
func (s *Store) Cleanup(days int) int {
	days = min(max(days, 0), MaxCleanupDays)
	cutoff := s.clock.Now().AddDate(0, 0, -days)

	entries, err := s.readDir(s.baseDir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		dir := filepath.Join(s.baseDir, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("could not remove upload directory")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Int("days", days).Msg("old upload directories cleaned")
	}
	return removed
}

func (s *Store) readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Str("dir", dir).Msg("error reading directory")
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".upload-")
}
