package resources

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"path/filepath"
)

type sourceKind int

const (
	sourceFile sourceKind = iota
	sourceBytes
	sourcePixels
)

// Source names where a resource comes from. Two sources with the same
// fingerprint load the same cache entry.
type Source struct {
	kind   sourceKind
	name   string
	data   []byte
	w, h   int
	digest string
}

// File is a resource read from path on first load.
func File(path string) Source {
	clean := filepath.Clean(path)
	return Source{kind: sourceFile, name: clean, digest: "file:" + clean}
}

// Bytes is an encoded resource held in memory. Name is only used in errors.
func Bytes(name string, data []byte) Source {
	sum := sha256.Sum256(data)
	return Source{kind: sourceBytes, name: name, data: data, digest: "sha256:" + hex.EncodeToString(sum[:])}
}

// Pixels is a raw RGBA8 image of w×h pixels.
func Pixels(w, h int, pix []byte) Source {
	hs := sha256.New()
	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[:8], uint64(w))
	binary.LittleEndian.PutUint64(dims[8:], uint64(h))
	hs.Write(dims[:])
	hs.Write(pix)
	return Source{kind: sourcePixels, name: "pixels", data: pix, w: w, h: h, digest: "rgba:" + hex.EncodeToString(hs.Sum(nil))}
}

// Fingerprint is the deduplication key of s.
func (s Source) Fingerprint() string { return s.digest }

func (s Source) String() string { return s.name }
