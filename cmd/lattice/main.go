package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jward/lattice"
	"github.com/spf13/cobra"
)

var (
	flagDataDir string
	flagRoot    string
	flagFormat  string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "lattice",
	Short:         "Project-scoped code-context engine",
	Long:          "Lattice indexes a codebase into a structural graph with tree-sitter, keeps it fresh incrementally, and answers bounded-context queries for capsules, skeletons, and resume digests.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "registry data directory (default: ~/.lattice)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "project root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(capsuleCmd)
	rootCmd.AddCommand(skeletonCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
}

// newLogger builds the CLI's logger: warnings to stderr unless --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newRegistry builds the registry from the --data-dir flag.
func newRegistry() *lattice.Registry {
	var opts []lattice.RegistryOption
	if flagDataDir != "" {
		opts = append(opts, lattice.WithDataDir(flagDataDir))
	}
	opts = append(opts, lattice.WithRegistryLogger(newLogger()))
	return lattice.NewRegistry(opts...)
}

// resolveRoot returns the absolute project root from --root or the cwd.
func resolveRoot() (string, error) {
	root := flagRoot
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting cwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %q: %w", root, err)
	}
	return abs, nil
}

// openProject opens the registered project for the resolved root.
func openProject() (*lattice.Project, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}
	return newRegistry().OpenRoot(root, lattice.WithLogger(newLogger()))
}
