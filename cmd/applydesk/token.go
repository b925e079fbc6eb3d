package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/config"
	"github.com/jonathan/applydesk/internal/server"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/spf13/cobra"
)

var (
	tokenUserID string
	tokenName   string
	tokenRole   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for an actor",
	Long:  "Sign a JWT with JWT_SECRET for the given user id and role. Intended for operators and local development.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "User id (UUID); a new one is generated when empty")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(types.RoleUser), "Role: user, agent or admin")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	var jwtCfg config.JWTConfig
	if err := env.ParseWithOptions(&jwtCfg, env.Options{Prefix: "JWT_"}); err != nil {
		return fmt.Errorf("parse jwt config: %w", err)
	}
	jwtService, err := server.NewJWTService(&jwtCfg)
	if err != nil {
		return err
	}

	id := uuid.New()
	if tokenUserID != "" {
		if id, err = uuid.Parse(tokenUserID); err != nil {
			return fmt.Errorf("--user must be a UUID: %w", err)
		}
	}
	token, err := jwtService.GenerateToken(types.Actor{ID: id, Name: tokenName, Role: types.Role(tokenRole)})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
