package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jward/lattice"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [path]",
	Short: "Register a project root",
	Long:  "Creates an isolated index partition for the given directory. Registering the same root again is a no-op and never touches existing index data.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			flagRoot = args[0]
		}
		root, err := resolveRoot()
		if err != nil {
			return err
		}
		id, err := newRegistry().Register(root)
		if err != nil {
			return err
		}
		return outputResult(map[string]string{"project_id": id, "root": root},
			func() { fmt.Printf("%s\t%s\n", id, root) })
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List registered projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := newRegistry().Projects()
		if err != nil {
			return err
		}
		return outputResult(infos, func() { formatProjectsText(os.Stdout, infos) })
	},
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project's source files",
	Long:  "Walks the project root, parses every supported source file, and commits the structural graph. Unchanged files are skipped; per-file parse failures are recorded and indexing continues.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			flagRoot = args[0]
		}
		root, err := resolveRoot()
		if err != nil {
			return err
		}
		registry := newRegistry()
		id, err := registry.Register(root)
		if err != nil {
			return err
		}
		project, err := registry.Open(id, lattice.WithLogger(newLogger()))
		if err != nil {
			return err
		}
		defer project.Close()

		start := time.Now()
		indexErr := project.IndexDirectory(cmd.Context())
		status, err := project.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d files, %d nodes, %d edges)\n",
			root, time.Since(start).Round(time.Millisecond),
			status.IndexedFiles, status.Nodes, status.Edges)
		return indexErr
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a project and reindex on change",
	Long:  "Performs a full index, then watches the project root and incrementally reindexes changed files until interrupted.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			flagRoot = args[0]
		}
		root, err := resolveRoot()
		if err != nil {
			return err
		}
		registry := newRegistry()
		id, err := registry.Register(root)
		if err != nil {
			return err
		}
		project, err := registry.Open(id, lattice.WithLogger(newLogger()))
		if err != nil {
			return err
		}
		defer project.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := project.IndexDirectory(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: initial index: %s\n", err)
		}
		fmt.Fprintf(os.Stderr, "Watching %s (ctrl-c to stop)\n", root)
		if err := project.Watch(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var flagDepth int

var capsuleCmd = &cobra.Command{
	Use:   "capsule <node-id>",
	Short: "Show the bounded context around a node",
	Long:  "Prints a node's signature plus its dependencies and dependents out to --depth edges, with any linked observations.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := openProject()
		if err != nil {
			return err
		}
		defer project.Close()

		view, err := project.Capsule(args[0], flagDepth)
		if err != nil {
			return err
		}
		return outputResult(view, func() { fmt.Print(view.Markdown()) })
	},
}

var skeletonCmd = &cobra.Command{
	Use:   "skeleton <file>",
	Short: "Show a file's signature outline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := openProject()
		if err != nil {
			return err
		}
		defer project.Close()

		sk, err := project.Skeleton(args[0])
		if err != nil {
			return err
		}
		return outputResult(sk, func() { fmt.Print(sk.Render()) })
	},
}

var (
	flagSource string
	flagTags   string
	flagNode   string
)

var observeCmd = &cobra.Command{
	Use:   "observe <content>",
	Short: "Append an observation to the project log",
	Long:  "Records an immutable, timestamped note. Observations are append-only and surface in capsules (via --node) and resume digests.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := openProject()
		if err != nil {
			return err
		}
		defer project.Close()

		var tags []string
		if flagTags != "" {
			for _, t := range strings.Split(flagTags, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}
		o, err := project.Observe(args[0], flagSource, tags, flagNode)
		if err != nil {
			return err
		}
		return outputResult(o, func() { fmt.Printf("recorded observation %d\n", o.ID) })
	},
}

var (
	flagHours  int
	flagBudget int
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Print a budgeted digest of recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := openProject()
		if err != nil {
			return err
		}
		defer project.Close()

		digest, err := project.Resume(time.Duration(flagHours)*time.Hour, flagBudget)
		if err != nil {
			return err
		}
		return outputResult(map[string]string{"digest": digest}, func() { fmt.Println(digest) })
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index counts and health",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := openProject()
		if err != nil {
			return err
		}
		defer project.Close()

		status, err := project.Status()
		if err != nil {
			return err
		}
		return outputResult(status, func() { formatStatusText(os.Stdout, status) })
	},
}

func init() {
	capsuleCmd.Flags().IntVar(&flagDepth, "depth", 1, "traversal depth in edges (minimum 1)")
	observeCmd.Flags().StringVar(&flagSource, "source", "user", "observation source: user|claude|git|hook")
	observeCmd.Flags().StringVar(&flagTags, "tags", "", "comma-separated tags")
	observeCmd.Flags().StringVar(&flagNode, "node", "", "node id to link the observation to")
	resumeCmd.Flags().IntVar(&flagHours, "hours", 24, "activity window in hours")
	resumeCmd.Flags().IntVar(&flagBudget, "budget", lattice.DefaultResumeBudget, "maximum digest size in characters")
}
