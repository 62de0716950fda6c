// Command ftpsheep builds a managed-runtime web project and deploys its
// publish output to a remote file server over FTP, FTPS, or SFTP.
package main

import (
	"os"

	"github.com/ftpsheep/ftpsheep/internal/cli"
)

// Version can be set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	cli.Version = Version
	err := cli.Execute()
	os.Exit(int(cli.ExitCode(err)))
}
