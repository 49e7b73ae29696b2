package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/techelons/site/internal/client"
)

const (
	defaultServer    = "http://localhost:8080"
	serverEnvKey     = "SITE_SERVER"
	commandTimeout   = 2 * time.Minute
	notAvailableText = "not available"
)

type app struct {
	server string
	client *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "sitectl",
		Short:        "Inspect cached site content and clean up unused files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			server := a.server
			if !cmd.Flags().Changed("server") {
				if env := os.Getenv(serverEnvKey); env != "" {
					server = env
				}
			}
			a.client = client.New(server)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.server, "server", defaultServer, "site backend URL (env "+serverEnvKey+")")

	root.AddCommand(
		a.documentCmd("content", "Print the site content document", a.siteContent),
		a.documentCmd("events", "Print the event data document", a.eventData),
		a.workshopCmd(),
		a.invalidateCmd(),
		a.filesCmd(),
	)
	return root
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

func (a *app) siteContent(ctx context.Context) (map[string]any, error) {
	return a.client.SiteContent(ctx)
}

func (a *app) eventData(ctx context.Context) (map[string]any, error) {
	return a.client.EventData(ctx)
}

func (a *app) documentCmd(use, short string, fetch func(context.Context) (map[string]any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			doc, err := fetch(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func (a *app) workshopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workshop",
		Short: "Print the workshop section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			w, err := a.client.Workshop(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			registration := "closed"
			if w.IsRegistrationOpen {
				registration = "open"
			}
			fmt.Fprintf(out, "%s\n%s\n", w.Title, w.ShortDescription)
			for _, d := range w.Details {
				fmt.Fprintf(out, "  - %s\n", d)
			}
			if w.BannerImage != "" {
				fmt.Fprintf(out, "banner: %s\n", w.BannerImage)
			}
			fmt.Fprintf(out, "registration: %s\n", registration)
			return nil
		},
	}
}

func (a *app) invalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop the server's cached content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := a.client.InvalidateCache(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache invalidated")
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
