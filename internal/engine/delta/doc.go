// Package delta implements the file-backed, copy-on-write content store.
//
// A Document is an ordered list of segments. Each segment either references
// a byte range of the document's FileSource or owns a run of inserted
// bytes. Edits split, re-slice and drop segments; the file is never written
// until the document is saved.
//
// # Repository
//
// The Repository owns every open FileSource and creates documents:
//
//	repo := delta.NewRepository(delta.WithLogger(log))
//	fs, err := repo.OpenFileSource("image.bin", delta.ReadWrite)
//	doc, err := repo.CreateFileDocument(fs)
//
//	doc.Insert(0, []byte{0xCA, 0xFE})
//	err = repo.SaveDocument(doc)
//
//	doc.Dispose()
//	repo.DetachFileSource(fs)
//	repo.CloseFileSource(fs)
//
// A FileSource has at most one owning document. Other documents may still
// read from it (a document handed over during reopen keeps doing so until it
// is disposed); closing the source is refused while any of them is alive.
// DetachFileSource copies file segments into memory so those documents stay
// valid.
//
// # Saving
//
// Saving picks the cheapest safe strategy. When every file segment still
// sits at its original offset, only the owned segments are written in place
// and the file is truncated to the new length. Otherwise the document is
// streamed into a temporary file next to the original which is then renamed
// over it, so ranges still referenced by the document are never overwritten
// while they are being read. Either way the document afterwards consists of
// a single segment covering the saved file.
//
// # Change Detection
//
// A FileSource remembers the size and modification time observed at open
// and after each save. HasChanged compares them with the file on disk, and
// an optional Watcher reports external changes through fsnotify.
//
// # Resources
//
// Writable sources take an advisory flock on unix systems. Metrics are
// exported through Prometheus collectors when WithMetrics is given.
package delta
