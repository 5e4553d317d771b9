// Package file contains a [domain.Ledger] that keeps every key in its own file
// inside a directory. Writes go to a temporary file that is synced and then
// renamed over the previous value, so a crash leaves either the old or the new
// value on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dolmen-go/contextio"
)

const (
	// Ext is the extension of value files.
	Ext = ".json"
	// TempSuffix marks a value that was being written.
	TempSuffix = "~"

	// DefaultDirMode is used when creating the ledger directory.
	DefaultDirMode os.FileMode = 0o755
	// DefaultFileMode is used when creating value files.
	DefaultFileMode os.FileMode = 0o644
)

var (
	osSpecificEnsureDir = func(o osOps, dir string, mode os.FileMode) error {
		return o.MkdirAll(dir, mode)
	}
	osSpecificSync = func(f *os.File, _ bool) error {
		return f.Sync()
	}
)

// ErrFlushToStorage is returned when a file or directory cannot be synced.
type ErrFlushToStorage struct {
	Name string
	Err  error
}

// Error implements [error].
func (e ErrFlushToStorage) Error() string {
	return fmt.Sprintf("flushing %q to storage: %s", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e ErrFlushToStorage) Unwrap() error {
	return e.Err
}

// Ledger implements [domain.Ledger] over a directory.
type Ledger struct {
	dir      string
	dirMode  os.FileMode
	fileMode os.FileMode
	os       osOps
	mu       sync.RWMutex
}

// NewLedger opens the ledger kept in dir, creating the directory if needed.
func NewLedger(dir string, options ...Option) (*Ledger, error) {
	if dir == "" {
		return nil, errors.New("file ledger: empty directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		dir:      abs,
		dirMode:  DefaultDirMode,
		fileMode: DefaultFileMode,
		os:       &osImpl{},
	}
	for _, option := range options {
		option(l)
	}
	if err := osSpecificEnsureDir(l.os, l.dir, l.dirMode); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	return l, nil
}

// Dir returns the absolute path of the ledger directory.
func (l *Ledger) Dir() string {
	return l.dir
}

// Get implements [domain.Ledger].
func (l *Ledger) Get(ctx context.Context, key string) ([]byte, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}
	// recovering an interrupted write may rename files
	l.mu.Lock()
	defer l.mu.Unlock()

	filename := l.filename(key)
	if err := l.ensureIntegrity(filename); err != nil {
		return nil, false, err
	}

	f, err := l.os.OpenFile(filename, os.O_RDONLY, l.fileMode)
	if err != nil {
		if l.os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	b, err := io.ReadAll(contextio.NewReader(ctx, f))
	if err != nil {
		return nil, false, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, true, nil
}

// Set implements [domain.Ledger].
func (l *Ledger) Set(ctx context.Context, key string, value []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.crashSafeWrite(ctx, l.filename(key), value)
}

// Delete implements [domain.Ledger].
func (l *Ledger) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	filename := l.filename(key)
	for _, name := range [...]string{filename, filename + TempSuffix} {
		if err := l.os.Remove(name); err != nil && !l.os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Keys implements [domain.Ledger].
func (l *Ledger) Keys(ctx context.Context, prefix string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries, err := l.os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Ext) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, Ext))
		if err != nil {
			// not written by this ledger
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close implements [domain.Ledger].
func (l *Ledger) Close() error {
	return nil
}

func (l *Ledger) filename(key string) string {
	return filepath.Join(l.dir, url.PathEscape(key)+Ext)
}

// ensureIntegrity restores a temporary file left by an interrupted write when
// the value file itself is missing.
func (l *Ledger) ensureIntegrity(filename string) error {
	exists, err := l.exists(filename)
	if err != nil || exists {
		return err
	}
	tempExists, err := l.exists(filename + TempSuffix)
	if err != nil || !tempExists {
		return err
	}
	return l.os.Rename(filename+TempSuffix, filename)
}

func (l *Ledger) crashSafeWrite(ctx context.Context, filename string, value []byte) error {
	tempFilename := filename + TempSuffix

	if err := l.flushToStorage(l.dir, true); err != nil {
		return err
	}

	exists, err := l.exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := l.flushToStorage(filename, false); err != nil {
			return err
		}
	}

	if err := l.writeFile(ctx, tempFilename, value); err != nil {
		return err
	}

	if err := l.flushToStorage(tempFilename, false); err != nil {
		return err
	}

	if err := l.os.Rename(tempFilename, filename); err != nil {
		return err
	}

	return l.flushToStorage(l.dir, true)
}

func (l *Ledger) writeFile(ctx context.Context, filename string, value []byte) error {
	f, err := l.os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.fileMode)
	if err != nil {
		return err
	}
	if _, err := contextio.NewWriter(ctx, f).Write(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *Ledger) flushToStorage(name string, isDir bool) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}

	f, err := l.os.OpenFile(name, flags, l.fileMode)
	if err != nil {
		return ErrFlushToStorage{Name: name, Err: err}
	}

	if err := osSpecificSync(f, isDir); err != nil {
		f.Close()
		return ErrFlushToStorage{Name: name, Err: err}
	}

	if err := f.Close(); err != nil {
		return ErrFlushToStorage{Name: name, Err: err}
	}
	return nil
}

func (l *Ledger) exists(name string) (bool, error) {
	if _, err := l.os.Stat(name); err != nil {
		if l.os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
