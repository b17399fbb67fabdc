package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/viewmode"
)

// output is where a command prints its results.
func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// writeNote prints n as show does. List mode numbers every row of the note
// text, title included, so the rows match what move addresses. Text mode
// renders the body by kind.
func writeNote(w io.Writer, n models.Note, view *viewmode.Machine, fullScreen, html bool) error {
	if !fullScreen {
		fmt.Fprintf(w, "%s  [%s]  by %s  %s\n", n.Title, n.Kind, n.Author, strings.Join(n.Tags, ","))
		fmt.Fprintf(w, "updated %s\n\n", n.UpdatedAt.Local().Format(time.DateTime))
	}

	if view.Mode() == viewmode.List {
		_, err := io.WriteString(w, view.Render(n.Text))
		return err
	}

	switch {
	case n.Kind == models.KindList:
		for _, item := range n.List {
			fmt.Fprintf(w, "- %s\n", item)
		}
	case n.Kind == models.KindStructured:
		b, err := yaml.Marshal(n.Data)
		if err != nil {
			return err
		}
		_, _ = w.Write(b)
	case n.Kind == models.KindMarkdown && html:
		fmt.Fprintln(w, n.Markdown)
	case fullScreen:
		fmt.Fprintln(w, n.Text)
	default:
		fmt.Fprintln(w, n.Body)
	}
	return nil
}
