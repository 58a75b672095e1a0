// Package search finds text and byte patterns in a content store and
// replaces them through the undo stack.
//
// # Modes
//
// TEXT mode decodes the content one character at a time with the
// configured charset, comparing literally or lower-cased. The scan moves
// one byte per step in either direction, so a match may begin at any
// offset. A match's length is the encoded size of the characters it
// consumed.
//
// BINARY mode compares raw bytes and always scans forward.
//
// # Matches
//
// A search produces a MatchSet of at most MaxMatches entries with the
// first one selected. Replace consumes the current match and shifts the
// rest so they keep pointing at the same bytes:
//
//	e := search.NewEngine(search.WithCharset(cs))
//	res, err := e.Find(data, search.TextCondition("AB", true), search.Parameters{MultipleMatches: true}, caret)
//	if err != nil {
//	    return err
//	}
//	if res.Found > 0 {
//	    _, _, err = e.Replace(stack, data, search.TextCondition("Z", true))
//	}
package search
