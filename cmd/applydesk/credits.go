package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/observability"
	"github.com/spf13/cobra"
)

var (
	creditsUserID string
	creditsAmount int
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Inspect and top up credit balances",
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show a user's credit account",
	RunE:  runCreditsBalance,
}

var creditsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant credits to a user (admin token required)",
	RunE:  runCreditsGrant,
}

func init() {
	for _, c := range []*cobra.Command{creditsBalanceCmd, creditsGrantCmd} {
		c.Flags().StringVarP(&creditsUserID, "user", "u", "", "User id (required)")
		_ = c.MarkFlagRequired("user")
		addRemoteFlags(c)
		creditsCmd.AddCommand(c)
	}
	creditsGrantCmd.Flags().IntVarP(&creditsAmount, "amount", "a", 0, "Credits to add (required)")
	_ = creditsGrantCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(creditsCmd)
}

func runCreditsBalance(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRemoteConfig()
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(creditsUserID)
	if err != nil {
		return fmt.Errorf("--user must be a UUID: %w", err)
	}
	acct, err := cfg.client().Balance(cmd.Context(), userID)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), acct, (*observability.Printer).PrintCreditAccount)
}

func runCreditsGrant(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRemoteConfig()
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(creditsUserID)
	if err != nil {
		return fmt.Errorf("--user must be a UUID: %w", err)
	}
	acct, err := cfg.client().GrantCredits(cmd.Context(), userID, creditsAmount)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), acct, (*observability.Printer).PrintCreditAccount)
}
