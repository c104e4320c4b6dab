// Package digest implements the content digest pipeline used to detect
// file content divergence during replication. It mirrors the algorithm
// catalog and INIT/UPDATE/FINAL state machine of the "pc" tool's
// digest.c, adapted to Go's standard hash.Hash interface.
package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Algorithm identifies a supported (or recognized-but-unsupported) content
// digest algorithm.
type Algorithm uint8

const (
	// None indicates that no digest should be computed.
	None Algorithm = iota
	// Adler32 is the zlib Adler-32 checksum.
	Adler32
	// CRC32 is the IEEE CRC-32 checksum.
	CRC32
	// MD5 is the MD5 message digest.
	MD5
	// Skein256 is the Skein-256 digest. No suitable Go implementation exists
	// anywhere in the example pack or its transitive dependencies, so this
	// algorithm is recognized (it has a name and a type code) but always
	// reports ErrUnsupported from Init.
	Skein256
	// Skein1024 is the Skein-1024 digest, unsupported for the same reason as
	// Skein256.
	Skein1024
	// SHA256 is SHA-256.
	SHA256
	// SHA512 is SHA-512.
	SHA512
	// SHA3_256 is SHA3-256.
	SHA3_256
	// SHA3_512 is SHA3-512.
	SHA3_512
)

// ErrUnsupported indicates that an algorithm is recognized but has no
// build-time implementation available.
var ErrUnsupported = errors.New("digest algorithm unsupported")

// names maps algorithms to their canonical string form, matching
// original_source/pc.c's digest_type2str table.
var names = [...]string{
	None:      "none",
	Adler32:   "adler32",
	CRC32:     "crc32",
	MD5:       "md5",
	Skein256:  "skein256",
	Skein1024: "skein1024",
	SHA256:    "sha256",
	SHA512:    "sha512",
	SHA3_256:  "sha3-256",
	SHA3_512:  "sha3-512",
}

// String returns the canonical name of the algorithm.
func (a Algorithm) String() string {
	if int(a) < len(names) {
		return names[a]
	}
	return "unknown"
}

// aliases maps additional recognized spellings to their canonical algorithm,
// matching original_source/digest.c's digest_str2type, which accepts a
// hyphenated form (and, for the SHA-2 family, a "SHA2-" form) alongside each
// algorithm's bare name.
var aliases = map[string]Algorithm{
	"adler-32":   Adler32,
	"crc-32":     CRC32,
	"md-5":       MD5,
	"skein-256":  Skein256,
	"skein-1024": Skein1024,
	"sha-256":    SHA256,
	"sha2-256":   SHA256,
	"sha-512":    SHA512,
	"sha2-512":   SHA512,
}

// ParseAlgorithm converts an algorithm name to its Algorithm value,
// mirroring original_source/digest.c's digest_str2type: matching is
// case-insensitive (digest_str2type uses strcasecmp throughout) and accepts
// the alias spellings listed there in addition to each algorithm's
// canonical name.
func ParseAlgorithm(name string) (Algorithm, error) {
	lower := strings.ToLower(name)
	for i, n := range names {
		if n == lower {
			return Algorithm(i), nil
		}
	}
	if a, ok := aliases[lower]; ok {
		return a, nil
	}
	return None, errors.Errorf("unrecognized digest algorithm: %s", name)
}

// Names returns the canonical names of every recognized algorithm, in
// catalog order, for use in CLI help output.
func Names() []string {
	result := make([]string, len(names))
	copy(result, names[:])
	return result
}

// State represents a digest's lifecycle state, mirroring
// original_source/digest.h's DIGEST_STATE enumeration.
type State uint8

const (
	// StateNone indicates an uninitialized digest.
	StateNone State = iota
	// StateInit indicates a digest that has been initialized but not yet fed
	// any data.
	StateInit
	// StateUpdate indicates a digest that has consumed at least one chunk of
	// data.
	StateUpdate
	// StateFinal indicates a digest whose result has been finalized.
	StateFinal
)

// Digest computes a content digest using one of the supported algorithms. Its
// zero value is not ready for use; call Init first. A Digest moves through
// StateNone -> StateInit -> StateUpdate -> StateFinal and cannot be reused
// after reaching StateFinal.
type Digest struct {
	algorithm Algorithm
	state     State
	hash      hash.Hash
}

// Init initializes the digest for the given algorithm. It returns
// ErrUnsupported if the algorithm is recognized but has no implementation
// available in this build.
func Init(algorithm Algorithm) (*Digest, error) {
	var h hash.Hash
	switch algorithm {
	case None:
		// No underlying hash; Update and Final are no-ops.
	case Adler32:
		h = adler32.New()
	case CRC32:
		h = crc32.NewIEEE()
	case MD5:
		h = md5.New()
	case SHA256:
		h = sha256.New()
	case SHA512:
		h = sha512.New()
	case SHA3_256:
		h = sha3.New256()
	case SHA3_512:
		h = sha3.New512()
	case Skein256, Skein1024:
		return nil, ErrUnsupported
	default:
		return nil, errors.Errorf("invalid digest algorithm: %d", algorithm)
	}
	return &Digest{algorithm: algorithm, state: StateInit, hash: h}, nil
}

// Type returns the digest's algorithm, mirroring digest_typeof.
func (d *Digest) Type() Algorithm {
	return d.algorithm
}

// StateOf returns the digest's current lifecycle state, mirroring
// digest_stateof.
func (d *Digest) StateOf() State {
	return d.state
}

// Update feeds data into the digest. It panics if called after Final; this
// mirrors the original tool's contract that digest_update is only ever
// called between digest_init and digest_final in well-formed callers.
func (d *Digest) Update(data []byte) {
	if d.state == StateFinal {
		panic("digest: Update called after Final")
	}
	if d.hash != nil {
		d.hash.Write(data)
	}
	d.state = StateUpdate
}

// Final returns the finalized digest bytes. For Algorithm None it returns a
// nil, zero-length result. Calling Final more than once returns the same
// result each time.
func (d *Digest) Final() []byte {
	d.state = StateFinal
	if d.hash == nil {
		return nil
	}
	return d.hash.Sum(nil)
}
