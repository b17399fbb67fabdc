package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/jotter/internal"
	"github.com/starford/jotter/internal/client"
	"github.com/starford/jotter/internal/identity"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/prefs"
	"github.com/starford/jotter/internal/search"
	"github.com/starford/jotter/internal/viewmode"
	pkgconfig "github.com/starford/jotter/pkg/config"
)

// clientEnv is what every client command works with.
type clientEnv struct {
	api   *client.Client
	co    *client.Coordinator
	prefs *prefs.Store
	out   io.Writer
}

func newClientEnv(cmd *cli.Command) (*clientEnv, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("server"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := cmd.String("token"); v != "" {
		cfg.Client.Token = v
	}

	// Failures reach the user through the notifier; keep logs quiet.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	store, err := prefs.Open(afero.NewOsFs(), cfg.Client.PrefsPath)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.Client.BaseURL, cfg.Client.Token)
	notify := client.NotifierFunc(func(msg string) {
		color.New(color.FgRed).Fprintln(os.Stderr, "!", msg)
	})

	return &clientEnv{
		api:   api,
		co:    client.NewCoordinator(api, client.NewCache(api), notify),
		prefs: store,
		out:   output(cmd),
	}, nil
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.Args().Len() < n {
		return fmt.Errorf("usage: jotter %s %s", cmd.Name, cmd.ArgsUsage)
	}
	return nil
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a signed bearer token for jwt auth mode",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "User name to embed", Required: true},
			&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 30 * 24 * time.Hour},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errors.New("auth.secret is not configured")
			}
			tok, err := identity.IssueToken(cfg.Auth.Secret, cmd.String("name"), cmd.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(output(cmd), tok)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List notes, pinned first; filter by owner, tags and fuzzy text",
		ArgsUsage: "[search text]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mine", Usage: "Only your notes"},
			&cli.BoolFlag{Name: "all", Usage: "Everyone's notes"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Require a tag (repeatable)"},
			&cli.BoolFlag{Name: "remember", Usage: "Keep the scope and tags as the default filter"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}

			scope := search.ParseScope(prefs.Get(env.prefs, prefs.NotesFilter))
			switch {
			case cmd.Bool("mine"):
				scope = search.ScopeMine
			case cmd.Bool("all"):
				scope = search.ScopeAll
			}
			tags := prefs.Get(env.prefs, prefs.SelectedTags)
			if cmd.IsSet("tag") {
				tags = cmd.StringSlice("tag")
			}
			if cmd.Bool("remember") {
				if err := prefs.Set(env.prefs, prefs.NotesFilter, string(scope)); err != nil {
					return err
				}
				if err := prefs.Set(env.prefs, prefs.SelectedTags, tags); err != nil {
					return err
				}
			}

			notes, err := env.api.Search(ctx, search.Query{
				Scope: scope,
				Tags:  tags,
				Text:  strings.Join(cmd.Args().Slice(), " "),
			})
			if err != nil {
				return err
			}
			printNotes(env.out, notes)
			return nil
		},
	}
}

func printNotes(w io.Writer, notes []models.Note) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range notes {
		pin := " "
		if n.Pinned {
			pin = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			color.YellowString(pin), n.ID, color.CyanString(string(n.Kind)), n.Title, n.Author, strings.Join(n.Tags, ","))
	}
	_ = tw.Flush()
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a note in the current view mode",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "html", Usage: "Print rendered HTML for markdown notes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			n, err := env.co.Cache().Get(ctx, cmd.Args().First())
			if err != nil {
				return err
			}

			return writeNote(env.out, n, viewmode.New(env.prefs), prefs.Get(env.prefs, prefs.FullScreen), cmd.Bool("html"))
		},
	}
}

func saveCommand() *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Create a note, or replace one with --id, from a file or stdin",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Note to update"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Replace tags (repeatable)"},
			&cli.BoolFlag{Name: "pin", Usage: "Pin or unpin the note"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}

			var raw []byte
			if path := cmd.Args().First(); path != "" && path != "-" {
				raw, err = os.ReadFile(path)
			} else {
				raw, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("read note text: %w", err)
			}
			text, d := parseDirectives(strings.TrimRight(string(raw), "\n"), prefs.Get(env.prefs, prefs.CommandPrefix))

			var n models.Note
			if id := cmd.String("id"); id != "" {
				if n, err = env.co.Cache().Get(ctx, id); err != nil {
					return err
				}
			}
			n.Text, n.Title, n.Body = text, "", ""
			if cmd.IsSet("tag") {
				n.Tags = cmd.StringSlice("tag")
			}
			if cmd.IsSet("pin") {
				n.Pinned = cmd.Bool("pin")
			}
			d.apply(&n)

			saved, err := env.co.Save(ctx, n)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.out, saved.ID)
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a note you own",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			n, err := env.co.Delete(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "deleted %s (%s)\n", n.ID, n.Title)
			return nil
		},
	}
}

func pinCommand() *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "Pin a note to the top of listings",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "off", Usage: "Unpin instead"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			n, err := env.api.SetPinned(ctx, cmd.Args().First(), !cmd.Bool("off"))
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "%s pinned=%t\n", n.ID, n.Pinned)
			return nil
		},
	}
}

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Add tags to a note, or remove them with --remove",
		ArgsUsage: "<id> <tag>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remove", Aliases: []string{"r"}, Usage: "Remove the tags"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			args := cmd.Args().Slice()
			id := args[0]
			var n *models.Note
			for _, tag := range args[1:] {
				if cmd.Bool("remove") {
					n, err = env.api.RemoveTag(ctx, id, tag)
				} else {
					n, err = env.api.AddTag(ctx, id, tag)
				}
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(env.out, "%s tags=%s\n", n.ID, strings.Join(n.Tags, ","))
			return nil
		},
	}
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Reorder a line of a note (1-based rows, as shown in list mode)",
		ArgsUsage: "<id> <from> <to>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 3); err != nil {
				return err
			}
			from, err := strconv.Atoi(cmd.Args().Get(1))
			if err != nil {
				return fmt.Errorf("from: %w", err)
			}
			to, err := strconv.Atoi(cmd.Args().Get(2))
			if err != nil {
				return fmt.Errorf("to: %w", err)
			}
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}

			n, err := env.co.Cache().Get(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			rows, err := viewmode.Move(viewmode.Rows(n.Text), from-1, to-1)
			if err != nil {
				return err
			}
			n.Text, n.Title, n.Body = viewmode.Join(rows), "", ""

			if _, err := env.co.Save(ctx, n); err != nil {
				return err
			}
			_, err = io.WriteString(env.out, viewmode.New(env.prefs).Render(n.Text))
			return err
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print note changes as the server announces them",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "author", Usage: "Only changes to this author's notes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			return env.api.Watch(ctx, cmd.String("author"), func(c models.Change) {
				fmt.Fprintf(env.out, "%s  %-7s  %s  by %s\n",
					c.UpdatedAt.Local().Format(time.DateTime), c.Kind, c.ID, c.Author)
			})
		},
	}
}

func modeCommand() *cli.Command {
	return &cli.Command{
		Name:      "mode",
		Usage:     "Show the view mode, or switch between text and list",
		ArgsUsage: "[toggle]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			m := viewmode.New(env.prefs)
			switch cmd.Args().First() {
			case "":
			case "toggle":
				if _, err := m.Toggle(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("usage: jotter mode %s", cmd.ArgsUsage)
			}
			fmt.Fprintln(env.out, m.Mode())
			return nil
		},
	}
}

func prefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change client preferences",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(env.prefs.Dump())
			if err != nil {
				return err
			}
			_, err = env.out.Write(b)
			return err
		},
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Set a preference (" + strings.Join(prefs.Names, ", ") + ")",
				ArgsUsage: "<key> <value>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 2); err != nil {
						return err
					}
					env, err := newClientEnv(cmd)
					if err != nil {
						return err
					}
					return env.prefs.SetString(cmd.Args().Get(0), cmd.Args().Get(1))
				},
			},
			{
				Name:      "reset",
				Usage:     "Restore a preference to its default",
				ArgsUsage: "<key>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1); err != nil {
						return err
					}
					env, err := newClientEnv(cmd)
					if err != nil {
						return err
					}
					return env.prefs.Reset(cmd.Args().First())
				},
			},
		},
	}
}
