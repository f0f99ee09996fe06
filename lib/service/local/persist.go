package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/ValentinKolb/dNT/lib/service"
)

// Flush writes a snapshot of all entries to the persist file.
// Without a persist file Flush does nothing.
func (s *Service) Flush() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.flush()
}

func (s *Service) flush() error {
	if s.persistFile == "" {
		return nil
	}
	if !s.db.SupportsFeature(db.FeatureSave) {
		return service.NewError(service.RetCUnsupportedOperation, "Save operation is not supported")
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	// write to a temp file in the same directory so the rename is atomic
	tmp, err := os.CreateTemp(filepath.Dir(s.persistFile), filepath.Base(s.persistFile)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.db.Save(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.persistFile); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	Logger.Debugf("flushed entries to %s", s.persistFile)
	return nil
}

// load restores the persist file if it exists.
func (s *Service) load() error {
	if s.persistFile == "" {
		return nil
	}

	f, err := os.Open(s.persistFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if !s.db.SupportsFeature(db.FeatureLoad) {
		return service.NewError(service.RetCUnsupportedOperation, "Load operation is not supported")
	}
	if err := s.db.Load(f); err != nil {
		return fmt.Errorf("loading snapshot %s: %w", s.persistFile, err)
	}

	Logger.Infof("loaded %d entries from %s", s.db.GetInfo().Entries, s.persistFile)
	return nil
}
