// Command `nextconf` is a small inspection CLI for nextconf config
// directories.
//
// The core library has no command-line surface of its own; this tool is an
// external wrapper that looks at a config directory without needing the
// owning application's type registrations.
//
// Usage:
//
//	nextconf inspect <dir>   - List config files with their stored schema versions
//	nextconf version         - Show version information
//
// Examples:
//
//	nextconf inspect ~/.myapp
//	nextconf inspect /etc/myapp
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lc/nextconf/internal/buildinfo"
	"github.com/lc/nextconf/pkg/codec"
	"github.com/lc/nextconf/pkg/store"
)

// row is one inspected config file.
type row struct {
	file    string
	format  string
	version string
	keys    int
}

func main() {
	root := &cobra.Command{
		Use:   "nextconf",
		Short: "Inspect nextconf config directories",
		Long: `nextconf inspects directories of versioned config files managed by the
nextconf library, showing each file's format and stored schema version.`,
	}

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	// ---- inspect command ----
	inspectCmd := &cobra.Command{
		Use:     "inspect <dir>",
		Short:   "List config files in a directory with their stored versions",
		Example: "nextconf inspect ~/.myapp",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rows, err := inspectDir(args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				color.Yellow("No config files found in %s.", args[0])
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"File", "Format", "Version", "Top-Level Keys"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			)
			table.SetBorder(false)

			for _, r := range rows {
				table.Append([]string{r.file, r.format, r.version, fmt.Sprintf("%d", r.keys)})
			}

			color.New(color.Bold).Printf("CONFIG FILES IN %s:\n", args[0])
			table.Render()
			return nil
		},
	}

	root.AddCommand(inspectCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// inspectDir parses every recognized config file in dir concurrently and
// returns one row per file, sorted by name.
func inspectDir(dir string) ([]row, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var (
		mu   sync.Mutex
		rows []row
	)
	var g errgroup.Group
	for _, ent := range ents {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		c, ok := codec.ForPath(name)
		if !ok {
			continue
		}

		g.Go(func() error {
			r, err := inspectFile(filepath.Join(dir, name), c)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			r.file = name
			mu.Lock()
			rows = append(rows, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].file < rows[j].file })
	return rows, nil
}

func inspectFile(path string, c codec.Codec) (row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return row{}, err
	}
	doc, err := c.Unmarshal(data)
	if err != nil {
		return row{}, fmt.Errorf("parsing: %w", err)
	}

	r := row{format: c.Name(), version: "none"}
	m, ok := doc.AsMap()
	if !ok {
		return row{}, fmt.Errorf("document is a %s, expected a map", doc.Kind())
	}
	r.keys = len(m)
	if v, ok := m[store.VersionField]; ok {
		if u, ok := v.AsUint(); ok {
			r.version = fmt.Sprintf("%d", u)
		} else {
			r.version = "invalid"
		}
		r.keys-- // don't count the reserved field
	}
	return r, nil
}
