/*
Command cosign collects signatures for transactions that need more than one
signer.

A proposal is created from an unsigned transaction file. Signatures are then
added with a local signing key, or imported from files produced by the
co-signers with "cosign cosign". Once enough signatures were collected the
proposal is submitted to the node.

  $ cosign propose --threshold 2 update.json
  $ cosign sign 1 --seed-file operator.seed
  $ cosign import 1 alice.json
  $ cosign submit 1
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}
