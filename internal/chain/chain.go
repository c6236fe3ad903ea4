// Package chain implements the hash/reduce walks rainbow tables are built
// from. A chain starts at a seed plaintext and alternates MD5 with a
// column-dependent reduction back into the plaintext space; only the seed
// and the terminal digest are ever stored.
package chain

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Alphabet is the output alphabet of the reduction function. Reduced
// plaintexts are always drawn from it; seeds themselves are unconstrained.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Bounds on the plaintext length a space will accept.
const (
	MinPassLength = 1
	MaxPassLength = 32
)

// Knuth MMIX LCG constants, used to spread the folded digest across every
// plaintext position.
const (
	lcgMul = 6364136223846793005
	lcgAdd = 1442695040888963407
)

// Space describes one family of chains: plaintexts of a fixed byte length
// walked for a fixed number of hash steps.
type Space struct {
	passLength  int
	chainLength int
}

// NewSpace validates the chain parameters and returns the space they
// describe.
func NewSpace(passLength, chainLength int) (Space, error) {
	if passLength < MinPassLength || passLength > MaxPassLength {
		return Space{}, fmt.Errorf("pass length %d out of range [%d, %d]", passLength, MinPassLength, MaxPassLength)
	}
	if chainLength < 1 {
		return Space{}, fmt.Errorf("chain length %d must be at least 1", chainLength)
	}
	return Space{passLength: passLength, chainLength: chainLength}, nil
}

// PassLength returns the plaintext length in bytes.
func (s Space) PassLength() int { return s.passLength }

// ChainLength returns the number of hash steps per chain.
func (s Space) ChainLength() int { return s.chainLength }

// Reduce maps a digest back into the plaintext space for the given column,
// writing PassLength bytes into dst. The digest is folded to 64 bits
// little-endian and offset by the column index, so every column reduces
// differently; a multiplicative step per position keeps high positions
// varied for long plaintexts.
func (s Space) Reduce(column int, digest [md5.Size]byte, dst []byte) {
	x := binary.LittleEndian.Uint64(digest[0:8]) ^ binary.LittleEndian.Uint64(digest[8:16])
	x += uint64(column)
	for i := 0; i < s.passLength; i++ {
		x = x*lcgMul + lcgAdd
		dst[i] = Alphabet[(x>>33)%uint64(len(Alphabet))]
	}
}

// Terminal walks a full chain from seed and returns the terminal digest:
// ChainLength MD5 applications separated by ChainLength-1 reductions.
func (s Space) Terminal(seed []byte) [md5.Size]byte {
	buf := make([]byte, s.passLength)
	pass := seed
	var d [md5.Size]byte
	for i := 0; i < s.chainLength; i++ {
		d = md5.Sum(pass)
		if i == s.chainLength-1 {
			break
		}
		s.Reduce(i, d, buf)
		pass = buf
	}
	return d
}

// Project rolls a digest observed at the given column forward to the
// terminal digest its chain would end with. Projecting from the last
// column is the identity.
func (s Space) Project(column int, digest [md5.Size]byte) [md5.Size]byte {
	buf := make([]byte, s.passLength)
	d := digest
	for i := column; i < s.chainLength-1; i++ {
		s.Reduce(i, d, buf)
		d = md5.Sum(buf)
	}
	return d
}

// WalkFind re-walks a chain from its seed and returns a copy of the
// password whose digest equals want, if the chain contains one. Misses are
// expected: terminal collisions between merged chains produce false
// alarms, and the caller simply keeps scanning.
func (s Space) WalkFind(seed []byte, want [md5.Size]byte) ([]byte, bool) {
	buf := make([]byte, s.passLength)
	pass := seed
	for i := 0; i < s.chainLength; i++ {
		d := md5.Sum(pass)
		if d == want {
			out := make([]byte, len(pass))
			copy(out, pass)
			return out, true
		}
		if i == s.chainLength-1 {
			break
		}
		s.Reduce(i, d, buf)
		pass = buf
	}
	return nil, false
}
