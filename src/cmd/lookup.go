package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BioB3/Flight-within-USA-Displayer/src/engine"
)

// printRoutes 不指定出发机场时列出全部航线
func printRoutes(w io.Writer, eng *engine.Engine, origin string) error {
	if origin != "" {
		dests := eng.Destinations(strings.ToUpper(strings.TrimSpace(origin)))
		if len(dests) == 0 {
			return fmt.Errorf("no routes from %s", origin)
		}
		_, err := fmt.Fprintln(w, strings.Join(dests, "\n"))
		return err
	}

	routes := eng.Routes()
	origins := make([]string, 0, len(routes))
	for o := range routes {
		origins = append(origins, o)
	}
	sort.Strings(origins)
	for _, o := range origins {
		if _, err := fmt.Fprintf(w, "%s: %s\n", o, strings.Join(routes[o], " ")); err != nil {
			return err
		}
	}
	return nil
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "List airports, routes and airlines present in the dataset",
	}

	run := func(fn func(w io.Writer, eng *engine.Engine, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.close()

			eng, err := a.loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()
			return fn(cmd.OutOrStdout(), eng, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "routes [origin]",
			Short: "List destinations reachable from each origin",
			Args:  cobra.MaximumNArgs(1),
			RunE: run(func(w io.Writer, eng *engine.Engine, args []string) error {
				origin := ""
				if len(args) == 1 {
					origin = args[0]
				}
				return printRoutes(w, eng, origin)
			}),
		},
		&cobra.Command{
			Use:   "airports",
			Short: "List origin airports",
			Args:  cobra.NoArgs,
			RunE: run(func(w io.Writer, eng *engine.Engine, _ []string) error {
				_, err := fmt.Fprintln(w, strings.Join(eng.Origins(), "\n"))
				return err
			}),
		},
		&cobra.Command{
			Use:   "carriers",
			Short: "List airline ids",
			Args:  cobra.NoArgs,
			RunE: run(func(w io.Writer, eng *engine.Engine, _ []string) error {
				_, err := fmt.Fprintln(w, strings.Join(eng.Carriers(), "\n"))
				return err
			}),
		},
	)
	return cmd
}
