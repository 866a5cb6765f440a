package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/VisitPulse/internal/services"
	"github.com/soaringjerry/VisitPulse/internal/utils"
)

func newResetCmd(c *cli) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every survey response (requires the admin code)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := a.admin.Reset(cmd.Context(), code)
			if se, ok := services.AsServiceError(err); ok {
				return errors.New(utils.T("en", se.Message))
			}
			if err != nil {
				return err
			}
			c.log.Warn("survey responses reset", "deleted", n)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d responses\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "admin access code")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
