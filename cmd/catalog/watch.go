package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/client"
	"github.com/mesh-intelligence/catalog/internal/eventbus"
)

func newWatchCmd(a *app) *cobra.Command {
	var typeRef string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print entity changes from a catalog server",
		Long: `Watch connects to the server's change feed and prints one line per
created, updated or deleted entity until interrupted. Requires --server or
server.url.`,
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.serverURL == "" {
				return userErrorf("watch needs a server: pass --server or set server.url")
			}
			c, err := client.New(a.serverURL, client.WithLogger(a.logger))
			if err != nil {
				return userError(err)
			}

			var typeID string
			if typeRef != "" {
				et, err := resolveType(ctx, c, typeRef)
				if err != nil {
					return err
				}
				typeID = et.ID
			}

			out := cmd.OutOrStdout()
			return c.Watch(ctx, typeID, func(evt eventbus.Event) error {
				if a.jsonOut {
					data, err := json.Marshal(evt)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, string(data))
					return err
				}
				_, err := fmt.Fprintf(out, "%s  %-15s %s %s\n",
					evt.At.Local().Format(time.TimeOnly), evt.Type, evt.EntityID, evt.Name)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&typeRef, "type", "", "only watch entities of this type (ID or name)")
	return cmd
}
