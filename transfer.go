package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPutCmd uploads local files into a remote directory in concurrent
// batches.
func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-file>... <remote-dir>",
		Short: "Upload local files into a remote directory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			localPaths := args[:len(args)-1]
			remoteDir := args[len(args)-1]

			if err := client.Upload(cmd.Context(), localPaths, remoteDir); err != nil {
				return err
			}

			fmt.Printf("Uploaded %d file(s) to %s\n", len(localPaths), displayDir(remoteDir))

			return nil
		},
	}
}

// newGetCmd downloads a remote directory's files into a local directory in
// concurrent batches.
func newGetCmd() *cobra.Command {
	var flagOnly string

	cmd := &cobra.Command{
		Use:   "get <remote-dir> <local-dir>",
		Short: "Download a remote directory's files into a local directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			if err := client.Download(cmd.Context(), args[0], args[1], flagOnly); err != nil {
				return err
			}

			if flagOnly != "" {
				fmt.Printf("Downloaded %s to %s\n", flagOnly, args[1])
			} else {
				fmt.Printf("Downloaded %s to %s\n", displayDir(args[0]), args[1])
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flagOnly, "only", "", "download only the named file")

	return cmd
}

// displayDir renders the drive root as something readable.
func displayDir(remoteDir string) string {
	if remoteDir == "" {
		return "/"
	}

	return remoteDir
}
