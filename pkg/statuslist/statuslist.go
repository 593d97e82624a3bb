// Package statuslist implements the W3C Bitstring Status List: a bit-packed,
// GZIP-compressed bitstring of per-credential status entries, published as
// the `credentialSubject.encodedList` of a BitstringStatusListCredential.
//
// This is the sibling of the IETF draft-ietf-oauth-status-list format
// (github.com/dc4eu/vc pkg/tsl): that format packs one status per byte and
// compresses with DEFLATE; the W3C format packs `StatusSize` bits per entry
// (default 1) and compresses with GZIP. The bit-packing and compression
// differ; the "compress a bitstring, base64url it, wrap it in a credential"
// shape is the same, which is what's carried over here.
package statuslist

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
)

// MinimumSizeBits is the smallest bitstring the specification allows — a
// list must have room for at least this many entries (padded with zeros)
// so a single list can't be correlated down to an individual credential.
const MinimumSizeBits = 131072

// Purpose is the reason a bit in the list is being tracked.
type Purpose string

const (
	PurposeRevocation Purpose = "revocation"
	PurposeSuspension Purpose = "suspension"
	PurposeMessage    Purpose = "message"
)

// Entry is a single credential's place in a status list: which list, which
// bit offset within it, and how many bits make up its status value.
type Entry struct {
	Purpose    Purpose `json:"purpose"`
	ListIndex  int     `json:"list_index"`
	Value      uint8   `json:"value"`
	StatusSize int     `json:"status_size"`
}

// List is a bit-packed status list of a single purpose. StatusSize bits are
// reserved per entry (1 for simple revoked/not-revoked, more for a
// multi-valued status like message codes), the list is padded to at least
// MinimumSizeBits, and entries are packed big-endian-first within each
// byte — bit 0 of entry 0 occupies the most significant unused bit.
type List struct {
	purpose    Purpose
	statusSize int
	bits       []byte
	numEntries int
}

// New creates an all-zero List able to hold numEntries entries of
// statusSize bits each, padded up to MinimumSizeBits.
func New(purpose Purpose, statusSize, numEntries int) (*List, error) {
	if statusSize < 1 || statusSize > 8 {
		return nil, fmt.Errorf("statuslist: status_size must be 1-8, got %d", statusSize)
	}
	totalBits := numEntries * statusSize
	if totalBits < MinimumSizeBits {
		totalBits = MinimumSizeBits
	}
	return &List{
		purpose:    purpose,
		statusSize: statusSize,
		bits:       make([]byte, (totalBits+7)/8),
		numEntries: numEntries,
	}, nil
}

// Set writes value (masked to statusSize bits) at the given entry index.
func (l *List) Set(index int, value uint8) error {
	bitOffset := index * l.statusSize
	if bitOffset+l.statusSize > len(l.bits)*8 {
		return fmt.Errorf("statuslist: index %d out of range", index)
	}
	mask := uint8(1<<l.statusSize) - 1
	value &= mask

	for b := 0; b < l.statusSize; b++ {
		bit := bitOffset + b
		byteIdx := bit / 8
		bitInByte := 7 - uint(bit%8)
		valBit := (value >> uint(l.statusSize-1-b)) & 1
		if valBit == 1 {
			l.bits[byteIdx] |= 1 << bitInByte
		} else {
			l.bits[byteIdx] &^= 1 << bitInByte
		}
	}
	return nil
}

// Get reads the status value at the given entry index.
func (l *List) Get(index int) (uint8, error) {
	bitOffset := index * l.statusSize
	if bitOffset+l.statusSize > len(l.bits)*8 {
		return 0, fmt.Errorf("statuslist: index %d out of range", index)
	}

	var value uint8
	for b := 0; b < l.statusSize; b++ {
		bit := bitOffset + b
		byteIdx := bit / 8
		bitInByte := 7 - uint(bit%8)
		valBit := (l.bits[byteIdx] >> bitInByte) & 1
		value = value<<1 | valBit
	}
	return value, nil
}

// EncodedList GZIP-compresses the bitstring and base64url-encodes it (no
// padding), producing the value that goes in the status list credential's
// `credentialSubject.encodedList`.
func (l *List) EncodedList() (string, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(l.bits); err != nil {
		return "", fmt.Errorf("statuslist: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("statuslist: compress: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses an encodedList value back into a List with the given
// purpose and status size.
func Decode(purpose Purpose, statusSize int, encoded string) (*List, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("statuslist: decode base64: %w", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("statuslist: decompress: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("statuslist: decompress: %w", err)
	}

	return &List{
		purpose:    purpose,
		statusSize: statusSize,
		bits:       buf.Bytes(),
		numEntries: (len(buf.Bytes()) * 8) / statusSize,
	}, nil
}

// Purpose returns the list's tracked purpose.
func (l *List) Purpose() Purpose { return l.purpose }

// StatusSize returns the number of bits reserved per entry.
func (l *List) StatusSize() int { return l.statusSize }

// Capacity returns the number of entries the list's bit length can address.
func (l *List) Capacity() int {
	return (len(l.bits) * 8) / l.statusSize
}
