package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/repository"
	"github.com/noah-isme/newsroom-api/internal/service"
)

var (
	flagAdminUsername string
	flagAdminPassword string
	flagAdminName     string
	flagAdminEmail    string
	flagAdminRole     string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Provision an admin account",
	Example: `  newsctl create-admin --username chief --password 's3cret-pass' --name "Chief Editor" --role SUPERADMIN`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openRuntime()
		if err != nil {
			return err
		}
		defer env.Close()

		req := dto.CreateAdminRequest{
			Username: flagAdminUsername,
			Password: flagAdminPassword,
			FullName: flagAdminName,
			Role:     flagAdminRole,
		}
		if flagAdminEmail != "" {
			req.Email = &flagAdminEmail
		}

		svc := service.NewAdminUserService(repository.NewAdminUserRepository(env.db), nil, env.logger)
		user, err := svc.Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (%s).\n", user.Role, user.Username, user.ID)
		return nil
	},
}

var sweepSessionsCmd = &cobra.Command{
	Use:   "sweep-sessions",
	Short: "Delete sessions that can no longer be used",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openRuntime()
		if err != nil {
			return err
		}
		defer env.Close()

		svc := service.NewAuthService(
			repository.NewAdminUserRepository(env.db),
			repository.NewSessionRepository(env.db),
			nil, nil, nil, env.logger,
			service.AuthConfig{
				AccessTokenSecret:  env.cfg.Auth.TokenSecret,
				AccessTokenExpiry:  env.cfg.Auth.AccessTTL,
				RefreshTokenExpiry: env.cfg.Auth.RefreshTTL,
				Issuer:             env.cfg.Auth.Issuer,
			},
		)
		deleted, err := svc.CleanupExpired(cmd.Context())
		if err != nil {
			return err
		}
		if deleted == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No dead sessions.")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d session(s).\n", deleted)
		}
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&flagAdminUsername, "username", "", "login name")
	createAdminCmd.Flags().StringVar(&flagAdminPassword, "password", "", "initial password (min 8 characters)")
	createAdminCmd.Flags().StringVar(&flagAdminName, "name", "", "display name")
	createAdminCmd.Flags().StringVar(&flagAdminEmail, "email", "", "contact email")
	createAdminCmd.Flags().StringVar(&flagAdminRole, "role", "EDITOR", "SUPERADMIN or EDITOR")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
	_ = createAdminCmd.MarkFlagRequired("name")
}
