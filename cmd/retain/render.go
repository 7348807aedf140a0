package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/retain/internal/config"
	"github.com/vango-dev/retain/internal/demo"
	"github.com/vango-dev/retain/internal/errors"
	"github.com/vango-dev/retain/pkg/render"
)

type renderOptions struct {
	items   []string
	output  string
	pretty  bool
	page    bool
	markers bool
}

func renderCmd(g *globalFlags) *cobra.Command {
	var o renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the todo program to static HTML",
		Long: `Render the initial view of the todo program to HTML.

By default only the view markup is written. With --page a complete
document is produced, without the host script, so it can be opened
or hosted as a static snapshot.

Examples:
  retain render --item "buy milk"
  retain render --page --pretty -o index.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, g, o)
		},
	}

	cmd.Flags().StringArrayVar(&o.items, "item", nil, "Seed the list with an item (repeatable)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&o.pretty, "pretty", false, "Indent the output")
	cmd.Flags().BoolVar(&o.page, "page", false, "Render a complete HTML document")
	cmd.Flags().BoolVar(&o.markers, "markers", false, "Mark elements that have listeners with data-on-* attributes")

	return cmd
}

func runRender(cmd *cobra.Command, g *globalFlags, o renderOptions) (err error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if o.output != "" {
		f, ferr := os.Create(o.output)
		if ferr != nil {
			return errors.New("E501").Wrap(ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errors.New("E501").Wrap(cerr)
			}
		}()
		w = f
	}

	r := render.NewRenderer(render.RendererConfig{Pretty: o.pretty, ListenerMarkers: o.markers})
	if err := renderTodo(w, r, cfg, o); err != nil {
		return errors.FromError(err, "E500")
	}
	if o.output != "" {
		success(cmd, "Wrote %s", o.output)
	}
	return nil
}

func renderTodo(w io.Writer, r *render.Renderer, cfg *config.Config, o renderOptions) error {
	m, _ := demo.Init(demo.Flags{Items: o.items})
	view := demo.View(m)
	if !o.page {
		return r.RenderToWriter(w, view)
	}
	return r.RenderPage(w, render.PageData{
		Body:        view,
		Title:       cfg.Server.Title,
		StyleSheets: cfg.Server.StyleSheets,
	})
}
