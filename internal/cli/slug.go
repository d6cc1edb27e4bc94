package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/ownai-workshop/internal/slug"
)

func init() {
	cmd := &cobra.Command{
		Use:   "slug <text...>",
		Short: "Print the URL slug for a name",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), slug.Slugify(strings.Join(args, " ")))
		},
	}
	RootCmd.AddCommand(cmd)
}
