// Package render serializes vdom trees to HTML.
//
// Rendering is the static counterpart of mounting a tree through a live
// binding: thunks are forced, Tagged wrappers are transparent, attributes
// and styles are written in declaration order and listeners are omitted.
// The output is used for first paint before a remote client attaches, for
// the CLI's render command and for snapshot publishing.
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(node)
//
// # Full Page Rendering
//
//	err := renderer.RenderPage(w, render.PageData{
//	    Title: "Todos",
//	    Body:  node,
//	})
//
// # Publishing
//
// A Publisher renders a tree and uploads it to S3:
//
//	pub, err := render.NewPublisher(s3.NewFromConfig(cfg), "snapshots", render.WithPrefix("site/"))
//	key, err := pub.Publish(ctx, "index", page)
//
// # Security
//
// All text content and attribute values are escaped.
package render
