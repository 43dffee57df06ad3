package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/pthm/hxtree"
)

var (
	tagStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	captionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	flagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	branchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the demo component tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := demoFactory(language.AmericanEnglish)(zap.NewNop())
		_, err := cmd.OutOrStdout().Write([]byte(renderTree(app.MainWindow())))
		return err
	},
}

// renderTree draws c and its descendants, one component per line.
func renderTree(c hxtree.Component) string {
	var b strings.Builder
	writeNode(&b, c, "", "")
	return b.String()
}

func writeNode(b *strings.Builder, c hxtree.Component, prefix, branch string) {
	b.WriteString(prefix)
	b.WriteString(branchStyle.Render(branch))
	b.WriteString(describe(c))
	b.WriteByte('\n')

	cc, ok := c.(hxtree.Container)
	if !ok {
		return
	}
	children := cc.Components()
	childPrefix := prefix
	switch branch {
	case "├─ ":
		childPrefix += branchStyle.Render("│  ")
	case "└─ ":
		childPrefix += "   "
	}
	for i, child := range children {
		next := "├─ "
		if i == len(children)-1 {
			next = "└─ "
		}
		writeNode(b, child, childPrefix, next)
	}
}

func describe(c hxtree.Component) string {
	parts := []string{tagStyle.Render(c.TagName())}
	if id := c.ComponentID(); id != "" {
		parts = append(parts, idStyle.Render(id))
	}
	if caption := c.Caption(); caption != "" {
		parts = append(parts, captionStyle.Render(`"`+caption+`"`))
	}
	if style := c.StyleName(); style != "" {
		parts = append(parts, idStyle.Render("."+strings.ReplaceAll(style, " ", ".")))
	}
	var flags []string
	if !c.IsEnabled() {
		flags = append(flags, "disabled")
	}
	if !c.IsVisible() {
		flags = append(flags, "hidden")
	}
	if c.IsReadOnly() {
		flags = append(flags, "readonly")
	}
	if len(flags) > 0 {
		parts = append(parts, flagStyle.Render("["+strings.Join(flags, ",")+"]"))
	}
	return strings.Join(parts, " ")
}
