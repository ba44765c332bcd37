package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"codepad/internal/app"
	"codepad/internal/workspace"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func gitCommands() []*cobra.Command {
	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				snap := a.Repo.Status()

				green := color.New(color.FgGreen).SprintFunc()
				red := color.New(color.FgRed).SprintFunc()
				yellow := color.New(color.FgYellow).SprintFunc()

				if len(snap.Modified)+len(snap.Untracked) == 0 {
					fmt.Println("No changes detected (working tree clean)")
					return nil
				}

				printSection := func(title string, files []workspace.FileRecord, paint func(a ...interface{}) string) {
					if len(files) == 0 {
						return
					}
					fmt.Printf("\n%s:\n", title)
					for _, f := range files {
						fmt.Printf("  %s\n", paint(f.Name))
					}
				}

				printSection("Changes to be committed", snap.Staged, green)
				printSection("Changes not staged for commit", snap.Pending, yellow)
				printSection("Untracked files", snap.Untracked, red)
				return nil
			})
		},
	}

	var stageCmd = &cobra.Command{
		Use:   "stage [files...]",
		Short: "Stage changed files for the next commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if !all && len(args) == 0 {
				return fmt.Errorf("specify files to stage or use --all")
			}

			return withApp(func(a *app.App) error {
				if all {
					staged, err := a.Repo.StageAll()
					if err != nil {
						return err
					}
					fmt.Printf("Staged %d file(s)\n", len(staged))
					return nil
				}

				for _, ref := range args {
					f, err := a.Repo.Resolve(ref)
					if err != nil {
						return err
					}
					added, err := a.Repo.Stage(f.ID)
					if err != nil {
						return err
					}
					if !added {
						fmt.Printf("Nothing to stage for %s\n", f.Name)
					}
				}
				return nil
			})
		},
	}
	stageCmd.Flags().BoolP("all", "a", false, "Stage every changed file")

	var unstageCmd = &cobra.Command{
		Use:   "unstage <files...>",
		Short: "Remove files from the staging area",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				for _, ref := range args {
					f, err := a.Repo.Resolve(ref)
					if err != nil {
						return err
					}
					if _, err := a.Repo.Unstage(f.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	var commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Record staged changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")

			return withApp(func(a *app.App) error {
				pending, err := a.Repo.Commit(message)
				if err != nil {
					return err
				}
				return pending.Wait(cmd.Context())
			})
		},
	}
	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	commitCmd.MarkFlagRequired("message")

	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show commit history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				hash := color.New(color.FgYellow).SprintFunc()
				for _, c := range a.Repo.Log() {
					fmt.Printf("%s %s\n", hash("commit "+c.Hash()), c.Message())
					fmt.Printf("  Author: %s\n", c.Author())
					fmt.Printf("  Date:   %s\n", c.Timestamp().Format(time.RFC1123))
					fmt.Printf("  Files:  %d\n\n", len(c.Files()))
				}
				return nil
			})
		},
	}

	var showCmd = &cobra.Command{
		Use:   "show <commit>",
		Short: "Show a commit and its file snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, _ := cmd.Flags().GetBool("objects")
			return withApp(func(a *app.App) error {
				c, err := a.Repo.Show(args[0])
				if err != nil {
					return err
				}
				color.New(color.FgYellow).Printf("commit %s\n", c.Hash())
				if c.Parent() != "" {
					fmt.Printf("Parent: %s\n", c.Parent())
				}
				fmt.Printf("Author: %s\n", c.Author())
				fmt.Printf("Date:   %s\n\n    %s\n\n", c.Timestamp().Format(time.RFC1123), c.Message())
				if !objects {
					for _, f := range c.Files() {
						fmt.Printf("  %s  %s\n", shortID(f.ID), f.Name)
					}
					return nil
				}

				list, err := a.Repo.Objects(c.Hash())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "  ID\tNAME\tBLOB\tSIZE\tCOMPRESSED")
				for _, o := range list {
					if !o.Stored {
						fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t-\n", shortID(o.ID), o.Name, o.Blob[:12], color.RedString("missing"))
						continue
					}
					fmt.Fprintf(w, "  %s\t%s\t%s\t%d\t%t\n", shortID(o.ID), o.Name, o.Blob[:12], o.Size, o.Compressed)
				}
				return w.Flush()
			})
		},
	}
	showCmd.Flags().Bool("objects", false, "List the stored blob behind each file")

	var diffCmd = &cobra.Command{
		Use:   "diff [files...]",
		Short: "Show changes between the last commit and the working set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				var files []workspace.FileRecord
				if len(args) == 0 {
					snap := a.Repo.Status()
					files = append(snap.Modified, snap.Untracked...)
				}
				for _, ref := range args {
					f, err := a.Repo.Resolve(ref)
					if err != nil {
						return err
					}
					files = append(files, f)
				}

				for _, f := range files {
					result, err := a.Repo.Diff(f.ID)
					if err != nil {
						return err
					}
					if result.Empty() {
						continue
					}
					fmt.Printf("\ndiff a/%s b/%s\n", f.Name, f.Name)
					printColoredDiff(result.Format())
				}
				return nil
			})
		},
	}

	var pushCmd = &cobra.Command{
		Use:   "push",
		Short: "Push commits to the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				return a.Remote.Push(cmd.Context())
			})
		},
	}

	var pullCmd = &cobra.Command{
		Use:   "pull",
		Short: "Pull commits from the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				return a.Remote.Pull(cmd.Context())
			})
		},
	}

	return []*cobra.Command{statusCmd, stageCmd, unstageCmd, commitCmd, logCmd, showCmd, diffCmd, pushCmd, pullCmd}
}
