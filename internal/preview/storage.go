package preview

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

const maxExtLen = 5

// ErrUnknownRef is returned for files the storage does not hold.
var ErrUnknownRef = errors.New("unknown preview reference")

// Storage keeps prefetched thumbnails on disk, named by content hash and
// reference counted across the messages pointing at them.
type Storage struct {
	fs  afero.Fs
	dir string

	mu   sync.Mutex
	refs map[string]int

	log *zerolog.Logger
}

// New prepares dir on fs. Anything left from a previous run is removed,
// since the reference counts only live in memory.
func New(fs afero.Fs, dir string, logger *zerolog.Logger) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("preview storage: dir is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if err := fs.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("preview storage: clear %s: %w", dir, err)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("preview storage: create %s: %w", dir, err)
	}
	return &Storage{
		fs:   fs,
		dir:  dir,
		refs: make(map[string]int),
		log:  logger,
	}, nil
}

// Store writes data unless an identical thumbnail is already held and
// returns its reference. Every call takes one reference.
func (s *Storage) Store(data []byte, ext string) (string, error) {
	sum := blake3.Sum256(data)
	name := hex.EncodeToString(sum[:]) + cleanExt(ext)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs[name] == 0 {
		if err := afero.WriteFile(s.fs, s.path(name), data, 0o644); err != nil {
			return "", fmt.Errorf("store preview %s: %w", name, err)
		}
	}
	s.refs[name]++
	return name, nil
}

// Dereference drops one reference and removes the file with the last one.
func (s *Storage) Dereference(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.refs[ref]
	if !ok {
		s.log.Debug().Str("ref", ref).Msg("dereference of unknown preview")
		return
	}
	if n > 1 {
		s.refs[ref] = n - 1
		return
	}
	delete(s.refs, ref)
	if err := s.fs.Remove(s.path(ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("ref", ref).Msg("remove preview")
	}
}

// Refs returns how many messages hold ref.
func (s *Storage) Refs(ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[ref]
}

// Open returns the stored file for ref.
func (s *Storage) Open(ref string) (afero.File, error) {
	if strings.ContainsAny(ref, `/\`) || s.Refs(ref) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	return s.fs.Open(s.path(ref))
}

func (s *Storage) path(name string) string {
	return path.Join(s.dir, name)
}

// cleanExt keeps short alphanumeric extensions and drops anything else.
func cleanExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}
