// Package paged implements the flat in-memory content store.
//
// A Buffer keeps its bytes in a list of pages. Each page holds at most
// PageSize bytes. Inserting into a full page splits it, so an edit touches
// a bounded number of bytes regardless of the buffer size. Removals trim
// pages and merge small neighbors back together.
//
// Buffer implements content.Data with Kind() == content.KindFlat. It owns
// its bytes outright and has no file association; saving streams the pages
// to a sink.
//
// # Usage
//
//	buf := paged.New()
//	buf.Insert(0, []byte("hello"))
//	buf.Remove(1, 3)
//
//	loaded, err := paged.Load(reader)
package paged
