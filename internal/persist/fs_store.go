package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/l1jgo/simcore/internal/core/table"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"
	"gopkg.in/yaml.v3"
)

const manifestFile = "manifest.yaml"

// FSStore keeps each snapshot in its own directory: a manifest plus one file
// per column named <table>.<column>.bin. Every file is written to a temporary
// name and renamed into place, and the manifest goes last, so a snapshot
// without a manifest is incomplete and never loaded.
type FSStore struct {
	fs  billy.Filesystem
	log *zap.Logger
}

var _ Store = (*FSStore)(nil)

func NewFSStore(fs billy.Filesystem, log *zap.Logger) *FSStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FSStore{fs: fs, log: log}
}

// NewDirStore returns a store rooted at dir on the local disk.
func NewDirStore(dir string, log *zap.Logger) *FSStore {
	return NewFSStore(osfs.New(dir), log)
}

func blockPath(name, tbl, col string) string {
	return path.Join(name, tbl+"."+col+".bin")
}

func (s *FSStore) Save(ctx context.Context, name string, tables []table.Named) error {
	if err := s.fs.MkdirAll(name, 0o755); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	// Drop the old manifest first so a crash mid-save leaves no snapshot
	// rather than a mix of old and new blocks.
	if err := s.fs.Remove(path.Join(name, manifestFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("save %s: %w", name, err)
	}
	bytes := 0
	for _, nt := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := nt.Table.Blocks(func(blk table.Block) error {
			bytes += len(blk.Data)
			return s.writeFile(name, blockPath(name, nt.Name, blk.Label), blk.Data)
		})
		if err != nil {
			return fmt.Errorf("save %s: table %s: %w", name, nt.Name, err)
		}
	}
	data, err := yaml.Marshal(newManifest(name, tables))
	if err != nil {
		return fmt.Errorf("save %s: manifest: %w", name, err)
	}
	if err := s.writeFile(name, path.Join(name, manifestFile), data); err != nil {
		return fmt.Errorf("save %s: manifest: %w", name, err)
	}
	s.log.Debug("snapshot written", zap.String("name", name), zap.Int("tables", len(tables)), zap.Int("bytes", bytes))
	return nil
}

func (s *FSStore) writeFile(dir, dst string, data []byte) error {
	temp, err := s.fs.TempFile(dir, path.Base(dst))
	if err != nil {
		return err
	}
	_, err = temp.Write(data)
	err = multierr.Append(err, temp.Close())
	if err != nil {
		return multierr.Append(err, s.fs.Remove(temp.Name()))
	}
	return s.fs.Rename(temp.Name(), dst)
}

// Manifest reads the manifest of a saved snapshot.
func (s *FSStore) Manifest(name string) (*Manifest, error) {
	f, err := s.fs.Open(path.Join(name, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", name, ErrNoSnapshot)
		}
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: manifest: %w", name, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("load %s: manifest: %w", name, err)
	}
	return &m, nil
}

func (s *FSStore) Load(ctx context.Context, name string, tables []table.Named) error {
	m, err := s.Manifest(name)
	if err != nil {
		return err
	}
	err = restore(m, tables, func(tbl string, blk table.Block) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.readFile(blockPath(name, tbl, blk.Label), blk.Data)
	})
	if err != nil {
		return err
	}
	s.log.Debug("snapshot loaded", zap.String("name", name), zap.Time("saved_at", m.SavedAt))
	return nil
}

// readFile fills buf with the file's contents, which must be exactly
// len(buf) bytes long.
func (s *FSStore) readFile(p string, buf []byte) (err error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	var extra [1]byte
	if n, _ := f.Read(extra[:]); n != 0 {
		return fmt.Errorf("%s: longer than %d bytes", p, len(buf))
	}
	return nil
}
