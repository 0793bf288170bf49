package main

import (
	"github.com/deven96/stickermeta/config"
	"github.com/deven96/stickermeta/utils"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type commandContext struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func (ctx *commandContext) config() (*config.Config, error) {
	if ctx.cfg != nil {
		return ctx.cfg, nil
	}
	cfg, err := config.Load(ctx.configPath)
	if err != nil {
		return nil, err
	}
	ctx.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "stickermeta",
		Short:         "Read and write WhatsApp sticker pack metadata in WebP files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(utils.GetLogLevel(ctx.logLevel))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file supplying pack defaults")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(newEmbedCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newStripCommand())
	rootCmd.AddCommand(newServeCommand(ctx))
	return rootCmd
}
