package main

import (
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/contentloop/configs"
	"github.com/maheshrc27/contentloop/internal/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	envFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "contentloop",
		Short:         "Evergreen content loops and social publishing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(flags.envFile); err != nil {
				log.Warn().Err(err).Str("file", flags.envFile).Msg("failed to load environment file")
			}
			flags.cfg = config.LoadConfig()
			return logger.Setup(logger.Options{Level: flags.cfg.LogLevel, HumanReadable: flags.cfg.LogHuman})
		},
	}

	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Environment file to load")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newTickCmd(flags))
	cmd.AddCommand(newImportCmd(flags))
	cmd.AddCommand(newTokenCmd(flags))

	return cmd
}
