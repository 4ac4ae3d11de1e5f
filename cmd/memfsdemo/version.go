package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// These constants follow the teacher's pkg/mutagen/version.go numbering
// scheme; the wire version-exchange half of that file has no counterpart
// here since this demo has no remote agent to negotiate a protocol with.
const (
	versionMajor = 0
	versionMinor = 1
	versionPatch = 0
)

var version = fmt.Sprintf("%d.%d.%d", versionMajor, versionMinor, versionPatch)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(command *cobra.Command, arguments []string) {
		fmt.Println(version)
	},
}
