package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Stamped by the stavefile through -ldflags -X.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quill version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), versionBanner(version, commit, date))
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

// versionBanner renders one line such as
// "quill v1.2.0 (abc1234, 2025-01-02) go1.25.5 linux/amd64". A binary built
// without ldflags falls back to the module version from its build info.
func versionBanner(v, c, d string) string {
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	if len(d) >= len("2006-01-02") {
		d = d[:len("2006-01-02")]
	}
	return fmt.Sprintf("quill %s (%s, %s) %s %s/%s", v, c, d, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
