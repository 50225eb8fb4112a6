package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X formpilot/internal/cli.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		writeVersion(cmd.OutOrStdout(), currentBuild(), versionShort)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

type buildInfo struct {
	version, commit, date, goVersion string
	modified                         bool
}

// currentBuild falls back to the VCS stamp the go tool embeds when the
// binary was built without ldflags.
func currentBuild() buildInfo {
	b := buildInfo{version: Version, commit: GitCommit, date: BuildDate, goVersion: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.commit == "unknown" {
				b.commit = s.Value
			}
		case "vcs.time":
			if b.date == "unknown" {
				b.date = s.Value
			}
		case "vcs.modified":
			b.modified = s.Value == "true"
		}
	}
	return b
}

func writeVersion(w io.Writer, b buildInfo, short bool) {
	if short {
		fmt.Fprintln(w, b.version)
		return
	}
	commit := b.commit
	if b.modified {
		commit += " (modified)"
	}
	fmt.Fprintf(w, "formpilot %s\ncommit:  %s\nbuilt:   %s\ngo:      %s\n", b.version, commit, b.date, b.goVersion)
}
