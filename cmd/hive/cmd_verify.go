package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hive/internal/verification"
)

var (
	verifyContext  []string
	verifyTopK     int
	verifyNoSearch bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Verify a claim and print the JSON response",
	Long: `Builds an evidence corpus from --context items (plus web search results unless
--no-search is given), retrieves the closest passages, answers the claim and
classifies it. The response is printed as JSON. Verification failures are
reported in the response with metadata.error set, not as a command error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringArrayVar(&verifyContext, "context", nil, "Evidence text (repeatable)")
	verifyCmd.Flags().IntVarP(&verifyTopK, "top-k", "k", 0, "Passages to retrieve (default from config)")
	verifyCmd.Flags().BoolVar(&verifyNoSearch, "no-search", false, "Do not search the web for evidence")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.service.VerifyClaim(ctx, verification.Claim{
		Text:    strings.Join(args, " "),
		Context: verifyContext,
		TopK:    verifyTopK,
		Search:  !verifyNoSearch,
	})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
