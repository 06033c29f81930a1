// Package storage spools uploaded statements to disk, optionally encrypted
// with age, for the duration of an analysis.
package storage

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filippo.io/age"
	"github.com/google/uuid"
)

const (
	// ageHeader is the prefix of Age-encrypted files
	ageHeader = "age-encryption.org"

	// spoolDir holds uploads under the base directory
	spoolDir = "spool"

	// minPassphraseLen is the shortest accepted spool passphrase
	minPassphraseLen = 8

	// scryptWorkFactor trades unlock time for strength; spool files live
	// for seconds so the age default (18) is more than needed
	scryptWorkFactor = 15
)

var (
	// ErrPassphraseTooShort is returned by EnableEncryption
	ErrPassphraseTooShort = fmt.Errorf("passphrase must be at least %d characters", minPassphraseLen)

	// ErrLocked is returned when reading an encrypted file without a key
	ErrLocked = errors.New("file is encrypted but storage is locked")

	// ErrOutsideSpool is returned for paths outside the spool directory
	ErrOutsideSpool = errors.New("path is outside the spool directory")
)

// Storage provides transparent encrypted/unencrypted file access
type Storage struct {
	baseDir   string
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	now       func() time.Time
	mu        sync.RWMutex
}

// New creates a new Storage rooted at baseDir and makes sure the spool
// directory exists
func New(baseDir string) (*Storage, error) {
	s := &Storage{
		baseDir: baseDir,
		now:     time.Now,
	}
	if err := os.MkdirAll(s.SpoolDir(), 0700); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return s, nil
}

// BaseDir returns the base directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// SpoolDir returns the directory uploads are written to
func (s *Storage) SpoolDir() string {
	return filepath.Join(s.baseDir, spoolDir)
}

// IsEncrypted returns true once EnableEncryption has succeeded
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recipient != nil
}

// EnableEncryption encrypts every file written from now on with passphrase
func (s *Storage) EnableEncryption(passphrase string) error {
	if len(passphrase) < minPassphraseLen {
		return ErrPassphraseTooShort
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.recipient = recipient
	return nil
}

// Lock clears the encryption key from memory
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// Spool stores an upload under a unique name and returns its path.
// The name keeps the original extension so the parser can sniff it.
func (s *Storage) Spool(name string, data []byte) (string, error) {
	path := filepath.Join(s.SpoolDir(), s.spoolName(name, data))
	if err := s.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to spool %s: %w", filepath.Base(name), err)
	}
	return path, nil
}

// spoolName builds <yyyymmdd_hhmmss>_<sha256 prefix>_<uuid>.<ext>
func (s *Storage) spoolName(name string, data []byte) string {
	sum := sha256.Sum256(data)
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("%s_%s_%s%s",
		s.now().Format("20060102_150405"),
		hex.EncodeToString(sum[:])[:10],
		uuid.NewString(),
		ext,
	)
}

// ReadFile reads a spooled file, decrypting it when it carries the age
// header
func (s *Storage) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	identity := s.identity
	s.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(ageHeader))
	if !isAgeEncrypted(head) {
		return io.ReadAll(br)
	}
	if identity == nil {
		return nil, ErrLocked
	}
	r, err := age.Decrypt(br, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", filepath.Base(path), err)
	}
	return io.ReadAll(r)
}

// WriteFile writes data atomically, sealing it for the spool recipient when
// encryption is on
func (s *Storage) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	recipient := s.recipient
	s.mu.RUnlock()

	return atomicWrite(path, perm, func(w io.Writer) error {
		if recipient == nil {
			_, err := w.Write(data)
			return err
		}
		enc, err := age.Encrypt(w, recipient)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		return enc.Close()
	})
}

// Remove deletes a spooled file. Paths outside the spool are refused.
func (s *Storage) Remove(path string) error {
	rel, err := filepath.Rel(s.SpoolDir(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ErrOutsideSpool
	}
	return os.Remove(path)
}

// Sweep removes spool files older than maxAge and returns how many went.
// Leftover temp files from interrupted writes are swept too.
func (s *Storage) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.SpoolDir())
	if err != nil {
		return 0, fmt.Errorf("failed to list spool: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.SpoolDir(), e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// atomicWrite streams fill into a temp file next to path, then renames it
// into place. The temp file is removed on failure.
func atomicWrite(path string, perm os.FileMode, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// isAgeEncrypted checks if data starts with the Age encryption header
func isAgeEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}
