// Package wordlist implements fixed-length filtering of password candidate
// lists. Rainbow chains encode plaintexts of a single fixed size, so the
// seed lists fed to table generation must contain only candidates of that
// exact length; this package is the filter that produces them.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultPath is the candidate list read when no override is configured.
// Resolved relative to the working directory.
const DefaultPath = "passwords.txt"

// maxLineBytes bounds a single candidate line. Password dumps occasionally
// carry multi-kilobyte junk lines; anything beyond this is not a plausible
// plaintext.
const maxLineBytes = 1 << 20

// ErrInvalidTarget reports a target length that is missing or not a base-10
// integer.
var ErrInvalidTarget = errors.New("invalid target length")

// ParseTarget interprets arg as the target plaintext length. Positive,
// negative and zero are all syntactically acceptable; anything that does
// not parse as a base-10 integer wraps ErrInvalidTarget.
func ParseTarget(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTarget, arg)
	}
	return n, nil
}

// Filter copies to w every line of r whose stripped length equals target.
// Length is counted in Unicode code points, not bytes. Leading and trailing
// whitespace (including the line terminator) is removed before both the
// comparison and the write; each match is emitted in input order followed
// by a single newline. One pass, no reordering, no deduplication. Returns
// the number of lines emitted.
func Filter(r io.Reader, target int, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	matched := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if utf8.RuneCountInString(line) != target {
			continue
		}
		if _, err := bw.WriteString(line); err != nil {
			return matched, fmt.Errorf("failed to write match: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return matched, fmt.Errorf("failed to write match: %w", err)
		}
		matched++
	}
	if err := sc.Err(); err != nil {
		// Keep whatever was already matched visible before failing loudly.
		_ = bw.Flush()
		return matched, fmt.Errorf("failed to read wordlist: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return matched, fmt.Errorf("failed to write match: %w", err)
	}
	return matched, nil
}

// FilterFile opens path and streams matching lines to w. The handle is
// released on every return path. Open and read failures propagate to the
// caller unrecovered; callers deliberately do not soften a missing
// wordlist into a silent no-op.
func FilterFile(path string, target int, w io.Writer) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open wordlist: %w", err)
	}
	defer f.Close()
	return Filter(f, target, w)
}

// Collect gathers into a slice every line of r whose stripped length equals
// target, in input order. Same matching rules as Filter.
func Collect(r io.Reader, target int) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if utf8.RuneCountInString(line) != target {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("failed to read wordlist: %w", err)
	}
	return out, nil
}

// CollectFile opens path and collects matching lines.
func CollectFile(path string, target int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wordlist: %w", err)
	}
	defer f.Close()
	return Collect(f, target)
}

// Count returns the total number of lines in r, stripped or not. Used for
// status reporting only.
func Count(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("failed to read wordlist: %w", err)
	}
	return n, nil
}

// CountFile opens path and counts its lines.
func CountFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open wordlist: %w", err)
	}
	defer f.Close()
	return Count(f)
}
