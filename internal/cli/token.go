package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/partsflow/gatekeeper/internal/config"
	"github.com/partsflow/gatekeeper/internal/token"
)

var (
	tokenConfigPath string
	tokenAddr       string
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)
	tokenCmd.PersistentFlags().StringVar(&tokenConfigPath, "config", "", "Path to config YAML")
	tokenCmd.PersistentFlags().StringVar(&tokenAddr, "addr", "", "Client address the token is bound to")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Admission token operations",
	Long:  "Issue and verify admission tokens with the configured secret.\nUseful for debugging deployments and for seeding trusted clients.",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue an admission token",
	RunE:  runTokenIssue,
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify an admission token",
	Long:  "Checks the token signature against the configured secret and binding\naddress. Exits 0 if valid, 1 if not.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenVerify,
}

func loadCodec() (*token.Codec, error) {
	cfg, _, err := config.Load(tokenConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("no secret configured; set GATEKEEPER_SECRET or secret_key")
	}
	return token.NewCodec([]byte(cfg.SecretKey)), nil
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	codec, err := loadCodec()
	if err != nil {
		return err
	}
	fmt.Println(codec.Issue(tokenAddr))
	return nil
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	codec, err := loadCodec()
	if err != nil {
		return err
	}
	if !codec.Verify(args[0], tokenAddr) {
		fmt.Fprintln(os.Stderr, "INVALID")
		os.Exit(1)
	}
	fmt.Println("OK")
	return nil
}
