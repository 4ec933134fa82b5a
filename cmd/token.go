/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/petalmail/apiserver/config"
	"github.com/petalmail/apiserver/internal/auth"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect bearer tokens",
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a bearer token with JWT_KEY and print its identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.JWT.Secret == "" {
			return errors.New("JWT_KEY is required")
		}
		return verifyToken(cmd.OutOrStdout(), auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL), args[0])
	},
}

func verifyToken(out io.Writer, tokens *auth.TokenService, token string) error {
	identity, err := tokens.Verify(token)
	if err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(identity)
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)
}
