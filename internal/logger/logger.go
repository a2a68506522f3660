package logger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

var debug atomic.Bool

// Rotator is an io.Writer that keeps a log file under MaxSize by moving it
// to numbered backups.
type Rotator struct {
	Filename   string
	MaxSize    int64 // Bytes
	MaxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotator opens (or creates) filename for appending.
func NewRotator(filename string, maxSizeMB int64, maxBackups int) (*Rotator, error) {
	r := &Rotator{
		Filename:   filename,
		MaxSize:    maxSizeMB * 1024 * 1024,
		MaxBackups: maxBackups,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

// Setup routes the standard logger to stdout and a rotating file, and sets
// the level used by Debugf. It returns the rotator so callers can Close it.
// When the file cannot be opened, logging stays on stdout only.
func Setup(filename string, maxSizeMB int64, maxBackups int, level string) *Rotator {
	return setup(filename, maxSizeMB, maxBackups, level, os.Stdout)
}

// SetupFileOnly is Setup without the stdout copy, for commands whose stdout
// is their result. Without a usable file, logs go to stderr.
func SetupFileOnly(filename string, maxSizeMB int64, maxBackups int, level string) *Rotator {
	return setup(filename, maxSizeMB, maxBackups, level, nil)
}

func setup(filename string, maxSizeMB int64, maxBackups int, level string, console io.Writer) *Rotator {
	SetLevel(level)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rotator, err := NewRotator(filename, maxSizeMB, maxBackups)
	if err != nil {
		if console == nil {
			console = os.Stderr
		}
		log.SetOutput(console)
		log.Printf("Failed to open log file, logging to console only: %v", err)
		return nil
	}

	if console == nil {
		log.SetOutput(rotator)
		return rotator
	}
	// MultiWriter writes to both the console and the rotator
	log.SetOutput(io.MultiWriter(console, rotator))
	return rotator
}

// SetLevel enables Debugf output when level is DEBUG.
func SetLevel(level string) {
	debug.Store(strings.EqualFold(level, "DEBUG"))
}

// Debugf logs only when the level is DEBUG.
func Debugf(format string, args ...interface{}) {
	if debug.Load() {
		log.Output(2, "[DEBUG] "+fmt.Sprintf(format, args...))
	}
}

// open appends to the current file, creating it when missing.
func (r *Rotator) open() error {
	f, err := os.OpenFile(r.Filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.file = f
	r.size = info.Size()
	return nil
}

// Write appends p, rotating first when p would push the file past MaxSize.
// A line is never split across files.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}

	if r.MaxSize > 0 && r.size > 0 && r.size+int64(len(p)) > r.MaxSize {
		if err := r.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Log rotation failed: %v\n", err)
			if r.file == nil {
				return 0, err
			}
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close closes the current file.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Rotator) backup(i int) string {
	return r.Filename + "." + strconv.Itoa(i)
}

// rotate shifts log.N-1 -> log.N down to log -> log.1 and starts an empty
// file. The oldest backup is overwritten.
func (r *Rotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	for i := r.MaxBackups - 1; i >= 1; i-- {
		err := os.Rename(r.backup(i), r.backup(i+1))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if r.MaxBackups > 0 {
		if err := os.Rename(r.Filename, r.backup(1)); err != nil {
			return err
		}
	} else if err := os.Truncate(r.Filename, 0); err != nil {
		return err
	}
	return r.open()
}
