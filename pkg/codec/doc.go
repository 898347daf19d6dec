// Package codec reads and writes the slotdb table file.
//
// # File Format
//
// All integers are big-endian. The file starts with a header:
//
//	[Magic(4)][DataOffset(4)][FieldCount(2)]
//	FieldCount x [NameLength(2)][Name(NameLength)][Width(2)]
//
// The record section starts at DataOffset and is a sequence of fixed-size
// slots, one per record number:
//
//	[Status(2)][Field 0 (Width 0)]...[Field N-1 (Width N-1)]
//
// Status is ValidFlag for a live record and DeletedFlag for a deleted one;
// any other value makes the file corrupt. Record number n lives at
//
//	DataOffset + n*(2 + sum(Width))
//
// # Field Text
//
// Field text is ISO 8859-1. On write it is padded on the right with NUL bytes
// to the field width; string text longer than the width is truncated to
// exactly the width. On read, trailing NUL and space bytes are removed, so a
// string's own trailing spaces do not survive a round trip. The truncation is
// lossy on purpose: the width is a hard limit of the format. Values of the
// other field types must fit their width, since a cut number, currency or
// date could not be parsed back.
//
// # Concurrency
//
// A TableFile guards the file with a read-write lock. LoadAll holds the read
// lock for the whole scan; Open, WriteRecord and ShutDown take the write lock.
// After ShutDown, writes are silently dropped so requests that are still in
// flight during an orderly shutdown fail quietly.
package codec
