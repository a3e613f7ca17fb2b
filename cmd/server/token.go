package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/contentloop/pkg/utils"
	"github.com/spf13/cobra"
)

func newTokenCmd(root *rootFlags) *cobra.Command {
	var brandID int64
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a brand",
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.cfg.SecretKey == "" {
				return errors.New("SECRET_KEY is not set")
			}
			token, err := utils.GenerateToken(root.cfg.SecretKey, brandID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&brandID, "brand", 0, "Brand the token is scoped to")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}
