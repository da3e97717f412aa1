// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/yae-build/yae/internal/modregistry"
	"github.com/yae-build/yae/pkg/yaemod"
)

func newModulesCommand(app *App) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "modules [module...]",
		Short: "List modules, dependents first",
		Long: `List the project's modules in reverse topological order: every module
appears before the modules it depends on. With arguments only the named
modules and their dependencies are listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runModules(cmd.Context(), app, args, markdown))
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the list as a table")
	return cmd
}

func runModules(ctx context.Context, app *App, targets []string, markdown bool) error {
	graph, err := app.loadGraph(ctx)
	if err != nil {
		return err
	}
	order, err := graph.Registry.ReverseTopologicalSort(targets...)
	if err != nil {
		return err
	}

	if markdown {
		out, err := renderModulesTable(graph.Registry, order)
		if err != nil {
			return err
		}
		_, err = io.WriteString(app.stdout, out)
		return err
	}

	for _, name := range order {
		m, _ := graph.Registry.Find(name)
		line := NameStyle.Render(m.Name) + " " + SubtitleStyle.Render("("+m.Kind.String()+")")
		if deps := m.AllDependencies(); len(deps) > 0 {
			line += " -> " + strings.Join(deps, ", ")
		}
		fmt.Fprintln(app.stdout, line)
	}
	return nil
}

// modulesMarkdown returns the module table as markdown.
func modulesMarkdown(registry *modregistry.Registry, order []string) string {
	var sb strings.Builder
	sb.WriteString("| Module | Type | Public | Private | Source |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, name := range order {
		m, _ := registry.Find(name)
		source := "local"
		if m.Kind == yaemod.KindExternalClone {
			source = m.Clone.URL + " @ " + m.Clone.Revision
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			m.Name, m.Kind, cell(m.PublicDependencies), cell(m.PrivateDependencies), source)
	}
	return sb.String()
}

func cell(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func renderModulesTable(registry *modregistry.Registry, order []string) (string, error) {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return "", err
	}
	return renderer.Render(modulesMarkdown(registry, order))
}
