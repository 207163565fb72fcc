// Command talkctl is the Talkboard command-line client. It signs in against
// the identity provider, keeps the credentials in a user-only file and talks to
// the forum API directly.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
