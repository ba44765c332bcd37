package main

import (
	"fmt"
	"io"
	"os"

	"codepad/internal/app"
	"codepad/internal/workspace"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// target resolves args[0] to a file, or the active file when args is empty.
func target(a *app.App, args []string) (workspace.FileRecord, error) {
	if len(args) == 0 {
		return a.Repo.Active(), nil
	}
	return a.Repo.Resolve(args[0])
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func fileCommands() []*cobra.Command {
	var lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List files in the working set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				snap := a.Repo.Status()
				active := a.Repo.Active().ID

				marks := make(map[string]string)
				for _, f := range snap.Modified {
					marks[f.ID] = color.YellowString("M")
				}
				for _, f := range snap.Untracked {
					marks[f.ID] = color.RedString("U")
				}
				for _, f := range snap.Staged {
					marks[f.ID] = color.GreenString("S")
				}

				for _, f := range a.Repo.Files() {
					cursor := " "
					if f.ID == active {
						cursor = "*"
					}
					mark, ok := marks[f.ID]
					if !ok {
						mark = " "
					}
					fmt.Printf("%s %s %s  %s\n", cursor, mark, color.New(color.Faint).Sprint(shortID(f.ID)), f.Name)
				}
				return nil
			})
		},
	}

	var newCmd = &cobra.Command{
		Use:   "new [name]",
		Short: "Create a file and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return withApp(func(a *app.App) error {
				f, err := a.Repo.CreateFile(name)
				if err != nil {
					return err
				}
				fmt.Printf("Created %s (%s)\n", f.Name, f.ID)
				return nil
			})
		},
	}

	var renameCmd = &cobra.Command{
		Use:   "rename <file> <name>",
		Short: "Rename a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				f, err := a.Repo.Resolve(args[0])
				if err != nil {
					return err
				}
				return a.Repo.RenameFile(f.ID, args[1])
			})
		},
	}

	var editCmd = &cobra.Command{
		Use:   "edit [file]",
		Short: "Replace a file's content",
		Long:  `Replaces the content of the file (the active file by default) with --content, or with standard input when the flag is absent.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := cmd.Flags().GetString("content")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("content") {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				content = string(data)
			}

			return withApp(func(a *app.App) error {
				f, err := target(a, args)
				if err != nil {
					return err
				}
				return a.Repo.EditFile(f.ID, content)
			})
		},
	}
	editCmd.Flags().StringP("content", "c", "", "New content")

	var catCmd = &cobra.Command{
		Use:   "cat [file]",
		Short: "Print a file's content",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				f, err := target(a, args)
				if err != nil {
					return err
				}
				fmt.Print(f.Content)
				return nil
			})
		},
	}

	var rmCmd = &cobra.Command{
		Use:   "rm <file>",
		Short: "Delete a file from the working set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				f, err := a.Repo.Resolve(args[0])
				if err != nil {
					return err
				}
				return a.Repo.DeleteFile(f.ID)
			})
		},
	}

	var selectCmd = &cobra.Command{
		Use:   "select <file>",
		Short: "Make a file active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				f, err := a.Repo.Resolve(args[0])
				if err != nil {
					return err
				}
				return a.Repo.SelectFile(f.ID)
			})
		},
	}

	return []*cobra.Command{lsCmd, newCmd, renameCmd, editCmd, catCmd, rmCmd, selectCmd}
}
