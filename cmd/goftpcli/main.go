// Command goftpcli is a demo command-line client exercising the goftp
// library: connect, login, and run one FTP operation per invocation.
package main

import "github.com/coldwire/goftp/cmd/goftpcli/cmd"

func main() {
	cmd.Execute()
}
