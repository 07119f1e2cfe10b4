package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type buildInfo struct {
	version, commit, date string
}

// resolveBuildInfo fills what ldflags left unset from the module build info
// recorded by `go install` and `go build` inside a checkout.
func resolveBuildInfo(read func() (*debug.BuildInfo, bool)) buildInfo {
	bi := buildInfo{version: version, commit: commit, date: date}
	info, ok := read()
	if !ok {
		return bi
	}
	if bi.version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		bi.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if bi.commit == "unknown" {
				bi.commit = s.Value
			}
		case "vcs.time":
			if bi.date == "unknown" {
				bi.date = s.Value
			}
		}
	}
	return bi
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			bi := resolveBuildInfo(debug.ReadBuildInfo)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "nautback %s\ncommit: %s\nbuilt:  %s\ngo:     %s\nos:     %s/%s\n",
				bi.version, bi.commit, bi.date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
