// Command openke serves and queries OpenKE knowledge-graph embeddings.
package main

import (
	"fmt"
	"os"

	"github.com/lzw429/OpenKE-Embedding-Service/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	if err := cli.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
