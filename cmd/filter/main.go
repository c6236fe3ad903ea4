// Command filter prints the lines of passwords.txt whose stripped length
// equals the single integer argument. It is the standalone counterpart of
// "rainbow filter", kept to the original one-argument interface: the
// wordlist path is fixed and resolved against the working directory.
package main

import (
	"fmt"
	"io"
	"os"

	"rainbow/internal/wordlist"
)

const usage = "Usage: filter <PLAINTEXT_LENGTH>"

func run(args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(out, usage)
		return 1
	}
	target, err := wordlist.ParseTarget(args[1])
	if err != nil {
		fmt.Fprintln(out, usage)
		return 1
	}

	// A missing or unreadable wordlist fails loudly with the underlying
	// error. Only the argument contract gets the soft usage treatment.
	if _, err := wordlist.FilterFile(wordlist.DefaultPath, target, out); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
