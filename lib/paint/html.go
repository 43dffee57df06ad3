package paint

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// HTML renders a painted node tree as markup for the initial page load.
//
// Each node becomes a div carrying data-hx-tag and data-hx-* attributes; the
// client renderer hydrates widgets from them. Text is escaped. Variables are
// exposed as data-hx-var-* so the renderer knows which values it may send
// back.
//
//	templ.Handler(paint.HTML(nodes...)).ServeHTTP(w, r)
func HTML(nodes ...*Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, n := range nodes {
			if err := writeNode(w, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeNode(w io.Writer, n *Node) error {
	var sb strings.Builder
	sb.WriteString(`<div data-hx-tag="`)
	sb.WriteString(html.EscapeString(n.Tag))
	sb.WriteString(`"`)

	for _, name := range n.AttrNames() {
		v := n.Attrs[name]
		switch name {
		case "id":
			sb.WriteString(` id="`)
		case "style":
			sb.WriteString(` class="`)
		default:
			sb.WriteString(` data-hx-`)
			sb.WriteString(html.EscapeString(name))
			sb.WriteString(`="`)
		}
		sb.WriteString(html.EscapeString(fmt.Sprint(v)))
		sb.WriteString(`"`)
	}
	for _, name := range sortedKeys(n.Vars) {
		sb.WriteString(` data-hx-var-`)
		sb.WriteString(html.EscapeString(name))
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(fmt.Sprint(n.Vars[name])))
		sb.WriteString(`"`)
	}
	sb.WriteString(`>`)
	sb.WriteString(html.EscapeString(n.Text))

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := writeNode(w, c); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</div>`)
	return err
}

func sortedKeys(m map[string]any) []string {
	n := &Node{Attrs: m}
	return n.AttrNames()
}
