package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudwarden/cloudwarden/internal/config"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

var refreshableTypes = map[string]workspace.AccountType{
	"aws":            workspace.AccountTypeAWS,
	"aws-plain-user": workspace.AccountTypeAWSPlainUser,
	"aws-truster":    workspace.AccountTypeAWSTruster,
	"aws-sso":        workspace.AccountTypeAWSSSO,
	"azure":          workspace.AccountTypeAzure,
}

func NewRefreshCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [account-type]",
		Short: "Refresh credentials for active sessions",
		Long: `Refresh credentials for the active sessions of one account family.

With no argument the aws and azure families are refreshed in sequence.
The aws-sso family is only refreshed when named explicitly, because it
may require an interactive browser login.

Account types: ` + strings.Join(refreshableTypeNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var accountType *workspace.AccountType
			if len(args) == 1 {
				t, ok := refreshableTypes[strings.ToLower(args[0])]
				if !ok {
					return fmt.Errorf("unknown account type %q (expected one of %s)",
						args[0], strings.Join(refreshableTypeNames(), ", "))
				}
				accountType = &t
			}

			service, err := cfg.CredentialService()
			if err != nil {
				return err
			}

			if err := service.Refresh(cmd.Context(), accountType); err != nil {
				return err
			}
			cfg.Logger.Info("refresh complete")
			return nil
		},
	}
}

func refreshableTypeNames() []string {
	return []string{"aws", "aws-plain-user", "aws-truster", "aws-sso", "azure"}
}
