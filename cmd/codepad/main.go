// cmd/codepad/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"codepad/internal/app"
	"codepad/internal/config"
	"codepad/internal/terminal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

var (
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "codepad",
	Short: "Codepad is a scratch editor with built-in version control",
	Long: `Codepad keeps a small set of named source files, tracks their changes
against the last commit and records snapshots in a linear history. State is
kept in a local database so every command sees the previous one's work.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".codepad/db", "Database directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log internals to stderr")

	rootCmd.AddCommand(fileCommands()...)
	rootCmd.AddCommand(gitCommands()...)
	rootCmd.AddCommand(assistCommands()...)
}

// openApp loads configuration and opens the repository stored at --db.
// Log entries are printed to stdout as they happen.
func openApp() (*app.App, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Database.Path = dbPath

	a, err := app.Open(app.Options{
		Config: cfg,
		Logger: logger,
		Sink:   terminal.Writer(os.Stdout),
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return a, nil
}

// withApp runs fn against an open repository and closes it afterwards.
func withApp(fn func(a *app.App) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func printColoredDiff(diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for _, line := range lines {
		if len(line) == 0 {
			fmt.Println()
			continue
		}

		switch {
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
