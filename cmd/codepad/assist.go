package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"codepad/internal/app"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// fileAction builds a command that runs fn against a file (the active one by
// default) and prints its result.
func fileAction(use, short string, fn func(ctx context.Context, a *app.App, id string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				f, err := target(a, args)
				if err != nil {
					return err
				}
				out, err := fn(cmd.Context(), a, f.ID)
				if err != nil {
					return err
				}
				if out != "" {
					fmt.Println(out)
				}
				return nil
			})
		},
	}
}

func assistCommands() []*cobra.Command {
	runCmd := fileAction("run", "Simulate running a file", func(ctx context.Context, a *app.App, id string) (string, error) {
		// output already went to the log
		_, err := a.Repo.Run(ctx, id)
		return "", err
	})

	explainCmd := fileAction("explain", "Explain what a file does", func(ctx context.Context, a *app.App, id string) (string, error) {
		return a.Repo.Explain(ctx, id)
	})

	var apply bool
	fixCmd := fileAction("fix", "Suggest a corrected version of a file", func(ctx context.Context, a *app.App, id string) (string, error) {
		code, err := a.Repo.Fix(ctx, id, apply)
		if err != nil || apply {
			return "", err
		}
		return code, nil
	})
	fixCmd.Flags().BoolVar(&apply, "apply", false, "Replace the file's content with the fix")

	formatCmd := fileAction("format", "Format a file in place", func(ctx context.Context, a *app.App, id string) (string, error) {
		_, err := a.Repo.Format(ctx, id)
		return "", err
	})

	completeCmd := fileAction("complete", "Suggest a continuation for a file", func(ctx context.Context, a *app.App, id string) (string, error) {
		return a.Repo.Complete(ctx, id)
	})

	var keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "List keyboard shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, _ := cmd.Flags().GetBool("defaults")
			return withApp(func(a *app.App) error {
				if defaults {
					a.Repo.ResetBindings()
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tACTION\tKEYS\tLABEL")
				for _, b := range a.Repo.Bindings() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Action, b.Keys, b.Label)
				}
				return w.Flush()
			})
		},
	}

	keysCmd.Flags().Bool("defaults", false, "Show the default shortcuts instead of the configured ones")

	return []*cobra.Command{runCmd, explainCmd, fixCmd, formatCmd, completeCmd, keysCmd, extCommand()}
}

func extCommand() *cobra.Command {
	var extCmd = &cobra.Command{
		Use:   "ext",
		Short: "Manage editor extensions",
	}

	var lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List available extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tVERSION\tSTATUS")
				for _, e := range a.Repo.Extensions() {
					status := "available"
					if e.Installed {
						status = color.GreenString("installed")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Version, status)
				}
				return w.Flush()
			})
		},
	}

	set := func(use, short string, installed bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <extension>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(func(a *app.App) error {
					e, err := a.Repo.SetExtension(args[0], installed)
					if err != nil {
						return err
					}
					verb := "Uninstalled"
					if e.Installed {
						verb = "Installed"
					}
					fmt.Printf("%s %s v%s\n", verb, e.Name, e.Version)
					return nil
				})
			},
		}
	}

	extCmd.AddCommand(lsCmd,
		set("install", "Install an extension", true),
		set("uninstall", "Uninstall an extension", false))
	return extCmd
}
