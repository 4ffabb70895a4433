package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/recruit-timeline-api/internal/app"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newTokenCmd(rt *runtime) *cobra.Command {
	var (
		user string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *rt.cfg
			if ttl > 0 {
				cfg.JWT.Expiration = ttl
			}
			token, expiresAt, err := app.NewTokenService(&cfg).IssueToken(user, models.UserRole(strings.ToUpper(role)))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tokenOutput{Token: token, ExpiresAt: expiresAt})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "User id placed in the token (required)")
	cmd.Flags().StringVarP(&role, "role", "r", string(models.RoleAdmin), "ADMIN or SUPERADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to JWT_EXPIRATION")
	mustMarkRequired(cmd, "user")
	return cmd
}
