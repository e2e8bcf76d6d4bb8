package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"syncrepo/pkg/version"
)

// addVersionCommand registers the version subcommand.
// The --short flag allows users to retrieve a concise version string.
func addVersionCommand(rootCommand *cobra.Command) {
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Display the version of syncrepo",
		Long:  `Display the current version information of the syncrepo CLI tool.`,
		RunE: func(command *cobra.Command, arguments []string) error {
			short, err := command.Flags().GetBool("short")
			if err != nil {
				return fmt.Errorf("error reading flags: %w", err)
			}

			v := version.Get()
			if short {
				fmt.Println(v.Version)
			} else {
				fmt.Println(v.String())
			}
			return nil
		},
	}

	versionCommand.Flags().BoolP("short", "s", false, "Print the version number only")
	rootCommand.AddCommand(versionCommand)
}
