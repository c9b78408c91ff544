package settings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	settingsDir     = "/ecg"
	calibrationFile = "/ecg/calibration.bin"
	tempSuffix      = ".tmp"
)

// ErrNotFound is returned when no calibration has been saved yet.
var ErrNotFound = errors.New("settings: not found")

// Store keeps the calibration record on a LittleFS volume.
type Store struct {
	fs      *littlefs.LFS
	dev     tinyfs.BlockDevice
	log     *zap.Logger
	mounted bool
}

// Open mounts the filesystem on dev. When the mount fails and format is
// set, the device is formatted and mounted again.
func Open(dev tinyfs.BlockDevice, format bool, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	lfs := littlefs.New(dev)
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	if err := lfs.Mount(); err != nil {
		if !format {
			return nil, fmt.Errorf("settings: mount: %w", err)
		}
		log.Warn("settings volume unreadable, formatting", zap.Error(err))
		if err := lfs.Format(); err != nil {
			return nil, fmt.Errorf("settings: format: %w", err)
		}
		if err := lfs.Mount(); err != nil {
			return nil, fmt.Errorf("settings: mount after format: %w", err)
		}
	}

	s := &Store{fs: lfs, dev: dev, log: log, mounted: true}
	// Leftover from a write interrupted before its rename.
	_ = s.fs.Remove(calibrationFile + tempSuffix)
	return s, nil
}

// Close unmounts the filesystem.
func (s *Store) Close() error {
	if !s.mounted {
		return nil
	}
	s.mounted = false
	return s.fs.Unmount()
}

// Load reads the stored calibration.
func (s *Store) Load() (Calibration, error) {
	var c Calibration
	f, err := s.fs.Open(calibrationFile)
	if err != nil {
		if isNotExist(err) {
			return c, ErrNotFound
		}
		return c, fmt.Errorf("settings: open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, CalibrationSize)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("settings: read: %w", err)
	}
	if err := c.UnmarshalBinary(buf[:n]); err != nil {
		return c, err
	}
	if c.Version != CurrentVersion {
		return c, fmt.Errorf("%w: stored %d, want %d", ErrVersionMismatch, c.Version, CurrentVersion)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// LoadOrDefault returns the stored calibration, or the factory defaults
// when nothing usable is stored.
func (s *Store) LoadOrDefault() Calibration {
	c, err := s.Load()
	if err == nil {
		return c
	}
	if errors.Is(err, ErrNotFound) {
		s.log.Info("no stored calibration, using defaults")
	} else {
		s.log.Warn("stored calibration rejected, using defaults", zap.Error(err))
	}
	return Default()
}

// Save writes c atomically: a temporary file is written, synced and then
// renamed over the previous record.
func (s *Store) Save(c Calibration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.fs.Mkdir(settingsDir, 0o755); err != nil && !isExist(err) {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	c.Version = CurrentVersion
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.atomicWrite(calibrationFile, data); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	s.log.Debug("calibration saved", zap.Int("bytes", len(data)))
	return nil
}

// Erase removes the stored calibration.
func (s *Store) Erase() error {
	if err := s.fs.Remove(calibrationFile); err != nil && !isNotExist(err) {
		return fmt.Errorf("settings: erase: %w", err)
	}
	return nil
}

func (s *Store) atomicWrite(path string, data []byte) error {
	tmp := path + tempSuffix
	_ = s.fs.Remove(tmp)

	f, err := s.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			_ = s.fs.Remove(tmp)
			return err
		}
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}

	// LittleFS rename does not replace an existing entry.
	_ = s.fs.Remove(path)
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

// LittleFS errors do not always satisfy os.IsExist / os.IsNotExist.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	return os.IsExist(err) || strings.Contains(err.Error(), "already exists")
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	return os.IsNotExist(err) || strings.Contains(err.Error(), "No directory entry")
}
