package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// newLsCmd lists the contents of a remote directory.
func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [remote-dir]",
		Short: "List files and folders in a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			remoteDir := ""
			if len(args) == 1 {
				remoteDir = args[0]
			}

			files, folders, err := client.List(cmd.Context(), remoteDir)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(files)+len(folders))

			for _, name := range sortedKeys(folders) {
				rows = append(rows, []string{name, "folder", folders[name]})
			}

			for _, name := range sortedKeys(files) {
				rows = append(rows, []string{name, "file", files[name]})
			}

			printTable(os.Stdout, []string{"NAME", "TYPE", "ID"}, rows)

			return nil
		},
	}
}

// newMkdirCmd creates a remote folder.
func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <remote-path>",
		Short: "Create a remote folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			parent, name := splitRemotePath(args[0])

			if err := client.MakeDir(cmd.Context(), parent, name); err != nil {
				return err
			}

			fmt.Printf("Created %s\n", args[0])

			return nil
		},
	}
}

// newMvCmd moves a single remote file into another remote directory.
func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <remote-file> <dest-dir>",
		Short: "Move a remote file into another remote directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			srcDir, name := splitRemotePath(args[0])

			return client.MoveFile(cmd.Context(), args[1], srcDir, name)
		},
	}
}

// newMvallCmd moves an entire remote folder under another remote directory.
func newMvallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mvall <src-dir> <dest-dir>",
		Short: "Move a remote folder and its contents into another remote directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			return client.MoveAll(cmd.Context(), args[1], args[0])
		},
	}
}

// newWhoamiCmd shows the authenticated user's drive.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user's drive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			drive, err := client.Whoami(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Drive:   %s (%s)\n", drive.Name, drive.DriveType)
			fmt.Printf("Owner:   %s\n", drive.OwnerName)
			fmt.Printf("Quota:   %s of %s used\n",
				formatSize(drive.QuotaUsed), formatSize(drive.QuotaTotal))

			return nil
		},
	}
}

// sortedKeys returns the map's keys in lexical order for stable output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
