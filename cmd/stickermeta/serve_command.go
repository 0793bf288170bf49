package main

import (
	"github.com/deven96/stickermeta/api"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metadata API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.API.Addr
			}
			return api.NewServer(addr, cfg.StickerDefaults(), cfg.API.MaxBodyBytes).Run()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to api.addr)")
	return cmd
}
