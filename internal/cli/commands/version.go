package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapqa/pkg/adapter"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the LeapQA version, the Go runtime and the source types compiled in.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "LeapQA v%s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

			sources := adapter.ListAdapters()
			if len(sources) == 0 {
				sources = []string{"none"}
			}
			_, _ = fmt.Fprintf(w, "Sources: %s\n", strings.Join(sources, ", "))
		},
	}
}
