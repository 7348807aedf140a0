package render

import (
	"fmt"
	"io"

	"github.com/vango-dev/retain/pkg/vdom"
)

// PageData contains all data needed to render a complete HTML document.
type PageData struct {
	// Body is the root node rendered inside the mount element.
	Body *vdom.Node

	// Title is the document title.
	Title string

	// Lang is the language attribute for the html element.
	// Defaults to "en" if not specified.
	Lang string

	// MountID is the id of the element the client attaches to.
	// Defaults to "app".
	MountID string

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// ClientScript is the path of the client that opens the live
	// connection. Omitted when empty, which yields a static snapshot.
	ClientScript string

	// Endpoint is the WebSocket path handed to the client script.
	Endpoint string
}

// RenderPage renders a complete HTML document to the given writer.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	mount := page.MountID
	if mount == "" {
		mount = "app"
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", escapeAttr(lang)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "  <meta charset=\"utf-8\">\n"+
		"  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n"); err != nil {
		return err
	}
	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(page.Title)); err != nil {
			return err
		}
	}
	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, "  <link rel=\"stylesheet\" href=\"%s\">\n", escapeAttr(href)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "</head>\n<body>\n<div id=\"%s\">", escapeAttr(mount)); err != nil {
		return err
	}

	if err := r.RenderToWriter(w, page.Body); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "</div>\n"); err != nil {
		return err
	}
	if page.ClientScript != "" {
		if _, err := fmt.Fprintf(w, "<script src=\"%s\" data-mount=\"%s\" data-endpoint=\"%s\" defer></script>\n",
			escapeAttr(page.ClientScript), escapeAttr(mount), escapeAttr(page.Endpoint)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}
