// Package seeds embeds the stock plaintext lists used as chain start
// points by table generation. Both lists are outputs of the wordlist
// filter: every entry in passwords-05.txt strips to exactly five
// characters, every entry in passwords-06.txt to six.
package seeds

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed passwords-05.txt
var passwords05 string

//go:embed passwords-06.txt
var passwords06 string

// Lengths returns the plaintext lengths with an embedded seed list.
func Lengths() []int {
	return []int{5, 6}
}

// ByLength returns the embedded seed list for plaintexts of n bytes, in
// list order. Lengths without stock seeds are rejected at this boundary;
// table generation itself handles any length.
func ByLength(n int) ([]string, error) {
	switch n {
	case 5:
		return strings.Fields(passwords05), nil
	case 6:
		return strings.Fields(passwords06), nil
	default:
		return nil, fmt.Errorf("only plaintext lengths of 5 or 6 bytes are supported currently for demonstration")
	}
}
