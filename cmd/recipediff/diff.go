package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alchemorsel/recipediff/internal/domain/diff"
	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type diffOptions struct {
	alignment string
	html      bool
	escape    bool
	class     string
}

func newDiffCmd() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff OLD.json NEW.json",
		Short: "Show what NEW adds to OLD",
		Long: `Compare two recipe documents. Added text is highlighted in the terminal,
or wrapped in <span class="diff-added"> with --html.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.alignment, "alignment", "greedy", "List alignment: greedy or lcs")
	cmd.Flags().BoolVar(&opts.html, "html", false, "Print the new recipe as JSON with HTML markers")
	cmd.Flags().BoolVar(&opts.escape, "escape", false, "Treat recipe text as plain text and escape it (with --html)")
	cmd.Flags().StringVar(&opts.class, "class", diff.DefaultAddedClass, "CSS class of added spans (with --html)")
	return cmd
}

func runDiff(out io.Writer, oldPath, newPath string, opts *diffOptions) error {
	alignment, err := diff.ParseAlignment(opts.alignment)
	if err != nil {
		return err
	}

	oldRecipe, err := readRecipe(oldPath)
	if err != nil {
		return err
	}
	newRecipe, err := readRecipe(newPath)
	if err != nil {
		return err
	}
	if newRecipe == nil {
		return fmt.Errorf("%s: new recipe is null", newPath)
	}

	if opts.html {
		engine := diff.NewEngine(
			diff.WithAlignment(alignment),
			diff.WithRenderer(diff.HTMLRenderer{AddedClass: opts.class, Escape: opts.escape}),
		)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(engine.RenderHTML(oldRecipe, newRecipe))
	}

	engine := diff.NewEngine(diff.WithAlignment(alignment), diff.WithRenderer(newTerminalRenderer()))
	d := engine.Compare(oldRecipe, newRecipe)
	printRecipe(out, engine.Render(d, newRecipe))
	if d != nil {
		fmt.Fprintf(out, "\n%d additions\n", d.Additions())
	}
	return nil
}

func readRecipe(path string) (*recipe.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := recipe.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// terminalRenderer highlights added text with ANSI colors, or with
// {+ +} markers when color is disabled
type terminalRenderer struct {
	added *color.Color
}

func newTerminalRenderer() terminalRenderer {
	return terminalRenderer{added: color.New(color.FgGreen, color.Bold)}
}

func (r terminalRenderer) Render(t diff.Text) string {
	var b strings.Builder
	for _, f := range t {
		switch {
		case f.Kind != diff.Added:
			b.WriteString(f.Text)
		case color.NoColor:
			b.WriteString("{+" + f.Text + "+}")
		default:
			b.WriteString(r.added.Sprint(f.Text))
		}
	}
	return b.String()
}

func printRecipe(out io.Writer, r *recipe.Recipe) {
	heading := color.New(color.Bold, color.Underline)

	fmt.Fprintln(out, heading.Sprint(r.Title))
	if r.Description != "" {
		fmt.Fprintf(out, "\n%s\n", r.Description)
	}

	switch list := r.Ingredients.(type) {
	case recipe.GroupedIngredients:
		fmt.Fprintf(out, "\n%s\n", heading.Sprint("Ingredients"))
		for _, g := range list {
			fmt.Fprintf(out, "  %s\n", g.GroupName)
			for _, item := range g.Items {
				fmt.Fprintf(out, "    - %s\n", item)
			}
		}
	case recipe.FlatIngredients:
		fmt.Fprintf(out, "\n%s\n", heading.Sprint("Ingredients"))
		for _, item := range list {
			fmt.Fprintf(out, "  - %s\n", item)
		}
	}

	if len(r.Instructions) > 0 {
		fmt.Fprintf(out, "\n%s\n", heading.Sprint("Instructions"))
		for i, step := range r.Instructions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, step)
		}
	}

	if len(r.Notes) > 0 {
		fmt.Fprintf(out, "\n%s\n", heading.Sprint("Notes"))
		for _, note := range r.Notes {
			fmt.Fprintf(out, "  * %s\n", note)
		}
	}
}
