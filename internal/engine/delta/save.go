package delta

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dshills/deltabin/internal/engine/content"
)

// saveStrategy is how a document is written back to its file.
type saveStrategy int

const (
	// saveNone: the document still equals the file.
	saveNone saveStrategy = iota
	// saveInPlace: every file segment sits at its original offset, so only
	// owned segments are written and the file is truncated to length.
	saveInPlace
	// saveRewrite: the document is streamed to a temporary file in the same
	// directory which then replaces the original.
	saveRewrite
)

func (s saveStrategy) String() string {
	switch s {
	case saveNone:
		return "none"
	case saveInPlace:
		return "in-place"
	default:
		return "rewrite"
	}
}

// planSave picks the cheapest safe strategy for d over a file of size bytes.
func planSave(d *Document, size int64) saveStrategy {
	if d.length == size {
		if len(d.segments) == 0 {
			return saveNone
		}
		if len(d.segments) == 1 && d.segments[0].isSource() && d.segments[0].offset == 0 {
			return saveNone
		}
	}
	var start int64
	for _, s := range d.segments {
		if s.isSource() && s.offset != start {
			return saveRewrite
		}
		start += s.length
	}
	return saveInPlace
}

// SaveDocument writes d back to its file source. On success the document is
// consolidated into a single segment referencing the saved file.
func (r *Repository) SaveDocument(d *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.repo != r {
		return ErrForeignDocument
	}
	if d.disposed {
		return content.ErrDisposed
	}
	fs := d.source
	if fs == nil {
		return ErrNotAttached
	}
	if err := r.checkSourceLocked(fs); err != nil {
		return err
	}
	if !fs.Writable() {
		return fmt.Errorf("save %s: %w", fs.path, content.ErrReadOnly)
	}

	strategy := planSave(d, fs.Size())
	log := r.logger.WithFields(map[string]any{"source": fs.id, "strategy": strategy.String()})
	if strategy == saveNone {
		r.countSave(strategy, nil)
		log.Debug("save %s: unchanged", fs.path)
		return nil
	}

	// Other documents reading this file must not see it change under them.
	for _, b := range r.borrowersLocked(fs, d) {
		if err := b.materialize(); err != nil {
			return fmt.Errorf("save %s: %w", fs.path, err)
		}
	}
	for _, o := range r.sharingPathLocked(fs) {
		if err := o.copySourceSegments(); err != nil {
			return fmt.Errorf("save %s: %w", fs.path, err)
		}
	}

	began := time.Now()
	fs.setSaving(true)
	var written int64
	var err error
	if strategy == saveInPlace {
		written, err = r.saveInPlace(d, fs)
	} else {
		written, err = r.saveRewrite(d, fs)
	}
	fs.setSaving(false)

	r.countSave(strategy, err)
	if r.metrics != nil {
		r.metrics.saveDuration.WithLabelValues(strategy.String()).Observe(time.Since(began).Seconds())
		r.metrics.bytesWritten.Add(float64(written))
	}
	if err != nil {
		log.Error("save %s failed: %v", fs.path, err)
		return fmt.Errorf("save %s: %w", fs.path, err)
	}

	d.resetToSource(d.length)
	log.Info("saved %s: %d bytes written in %s", fs.path, written, time.Since(began).Round(time.Millisecond))
	return nil
}

func (r *Repository) countSave(strategy saveStrategy, err error) {
	if r.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.metrics.saves.WithLabelValues(strategy.String(), result).Inc()
}

// saveInPlace writes owned segments at their offsets and truncates.
func (r *Repository) saveInPlace(d *Document, fs *FileSource) (int64, error) {
	var written, start int64
	for _, s := range d.segments {
		if !s.isSource() {
			n, err := fs.file.WriteAt(s.data, start)
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
		start += s.length
	}
	if d.length < fs.Size() {
		if err := fs.file.Truncate(d.length); err != nil {
			return written, err
		}
	}
	if err := fs.file.Sync(); err != nil {
		return written, err
	}
	if r.verify {
		digest := xxhash.New()
		if _, err := d.WriteTo(digest); err != nil {
			return written, err
		}
		if err := r.verifyFile(fs, d.length, digest.Sum64()); err != nil {
			return written, err
		}
	}
	return written, fs.refreshStat()
}

// saveRewrite streams d into a temporary sibling and renames it over the
// original. The original stays readable until the rename.
func (r *Repository) saveRewrite(d *Document, fs *FileSource) (int64, error) {
	dir, base := filepath.Split(fs.path)
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	fail := func(err error) (int64, error) {
		tmp.Close()
		os.Remove(tmpName)
		return 0, err
	}

	digest := xxhash.New()
	var w io.Writer = tmp
	if r.verify {
		w = io.MultiWriter(tmp, digest)
	}
	written, err := d.WriteTo(w)
	if err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if info, err := os.Stat(fs.path); err == nil {
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			return fail(err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, err
	}

	locked := fs.locked
	if err := fs.closeHandle(); err != nil {
		os.Remove(tmpName)
		return 0, err
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		if rerr := fs.reopen(locked); rerr != nil {
			r.logger.Error("reopen %s after failed rename: %v", fs.path, rerr)
		}
		return 0, err
	}
	if err := fs.reopen(locked); err != nil {
		return written, fmt.Errorf("reopen after save: %w", err)
	}
	if r.verify {
		if err := r.verifyFile(fs, written, digest.Sum64()); err != nil {
			return written, err
		}
	}
	return written, nil
}

// verifyFile compares the file's checksum over [0, length) with want.
func (r *Repository) verifyFile(fs *FileSource, length int64, want uint64) error {
	got, err := fs.BlockChecksum(0, length)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: checksum %016x, want %016x", ErrVerifyFailed, got, want)
	}
	return nil
}
