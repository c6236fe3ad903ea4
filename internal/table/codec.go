package table

import (
	"bufio"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"rainbow/internal/chain"
)

// File layout, all integers little-endian:
//
//	magic       4 bytes  "RBT1"
//	version     uint16
//	passLength  uint16
//	chainLength uint32
//	chainCount  uint64
//	chains      chainCount records of passLength+16 bytes
const (
	fileMagic   = "RBT1"
	fileVersion = 1
	headerSize  = 4 + 2 + 2 + 4 + 8
)

// maxChainCount bounds the allocation a header can demand. Corrupt files
// must fail before exhausting memory.
const maxChainCount = 1 << 31

// ErrNotTable marks files that do not carry the table magic or carry it
// with an unknown version. Directory scans skip such files.
var ErrNotTable = errors.New("not a rainbow table file")

// Header describes a table file without its chain records.
type Header struct {
	Version     uint16
	PassLength  int
	ChainLength int
	ChainCount  int
}

// Write streams the table in file format to w.
func (t *Table) Write(w io.Writer) error {
	var hdr [headerSize]byte
	copy(hdr[0:4], fileMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], fileVersion)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(t.space.PassLength()))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(t.space.ChainLength()))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(len(t.entries)))

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, e := range t.entries {
		if _, err := bw.Write(e.pass); err != nil {
			return fmt.Errorf("failed to write chain %d: %w", i, err)
		}
		if _, err := bw.Write(e.terminal[:]); err != nil {
			return fmt.Errorf("failed to write chain %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadHeader reads and validates a table file header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, fmt.Errorf("failed to read header: %w", err)
	}
	if string(raw[0:4]) != fileMagic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrNotTable, raw[0:4])
	}

	hdr := Header{
		Version:     binary.LittleEndian.Uint16(raw[4:6]),
		PassLength:  int(binary.LittleEndian.Uint16(raw[6:8])),
		ChainLength: int(binary.LittleEndian.Uint32(raw[8:12])),
	}
	count := binary.LittleEndian.Uint64(raw[12:20])

	if hdr.Version != fileVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrNotTable, hdr.Version)
	}
	if _, err := chain.NewSpace(hdr.PassLength, hdr.ChainLength); err != nil {
		return Header{}, fmt.Errorf("invalid header: %w", err)
	}
	if count > maxChainCount {
		return Header{}, fmt.Errorf("invalid header: chain count %d too large", count)
	}
	hdr.ChainCount = int(count)
	return hdr, nil
}

// Read loads a complete table from r.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	hdr, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	space, err := chain.NewSpace(hdr.PassLength, hdr.ChainLength)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	t := &Table{
		space:      space,
		entries:    make([]entry, hdr.ChainCount),
		byTerminal: make(map[[md5.Size]byte][]int, hdr.ChainCount),
	}
	rec := make([]byte, hdr.PassLength+md5.Size)
	for i := 0; i < hdr.ChainCount; i++ {
		if _, err := io.ReadFull(br, rec); err != nil {
			return nil, fmt.Errorf("failed to read chain %d of %d: %w", i, hdr.ChainCount, err)
		}
		e := entry{pass: make([]byte, hdr.PassLength)}
		copy(e.pass, rec[:hdr.PassLength])
		copy(e.terminal[:], rec[hdr.PassLength:])
		t.entries[i] = e
		t.byTerminal[e.terminal] = append(t.byTerminal[e.terminal], i)
	}
	return t, nil
}
