package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudwarden/cloudwarden/internal/config"
)

func NewSSOCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sso",
		Short: "Manage AWS SSO access",
		Long: `Configure, log in to and sync from an AWS SSO portal.

The login flow opens the portal verification page in a browser and polls
until the device authorization is approved.`,
	}

	cmd.AddCommand(
		newSSOConfigureCommand(cfg),
		newSSOLoginCommand(cfg),
		newSSOLogoutCommand(cfg),
		newSSOSyncCommand(cfg),
		newSSOStatusCommand(cfg),
	)
	return cmd
}

func newSSOConfigureCommand(cfg *config.Config) *cobra.Command {
	var (
		portalURL string
		region    string
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store the portal URL and region",
		RunE: func(cmd *cobra.Command, args []string) error {
			if portalURL == "" {
				return fmt.Errorf("portal URL is required (use --portal-url)")
			}
			if region == "" {
				return fmt.Errorf("region is required (use --region)")
			}
			manager, err := cfg.SSOManager()
			if err != nil {
				return err
			}
			if err := manager.Configure(portalURL, region); err != nil {
				return err
			}
			cfg.Logger.Info("SSO portal configured")
			return nil
		},
	}

	cmd.Flags().StringVar(&portalURL, "portal-url", "", "AWS SSO start URL")
	cmd.Flags().StringVar(&region, "region", "", "AWS SSO region")
	return cmd
}

func newSSOLoginCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Run the device authorization flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := cfg.SSOManager()
			if err != nil {
				return err
			}
			info, err := manager.Login(cmd.Context())
			if err != nil {
				return err
			}
			cfg.Logger.Info("logged in, access valid until %s",
				info.ExpirationTime.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
}

func newSSOLogoutCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the portal token and drop synced sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := cfg.SSOManager()
			if err != nil {
				return err
			}
			if err := manager.Logout(cmd.Context()); err != nil {
				return err
			}
			cfg.Logger.Info("logged out")
			return nil
		},
	}
}

func newSSOSyncCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync sessions from the SSO directory",
		Long: `Enumerate every account and role visible through the portal and merge
them into the workspace. Sessions already present keep their identity
and state; sessions no longer in the directory are dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			syncer, err := cfg.Syncer()
			if err != nil {
				return err
			}
			count, err := syncer.Sync(cmd.Context())
			if err != nil {
				return err
			}
			cfg.Logger.Info("synced %d sessions from the SSO directory", count)
			return nil
		},
	}
}

func newSSOStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the cached portal access is still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := cfg.SSOManager()
			if err != nil {
				return err
			}
			if manager.IsActive() {
				cfg.Logger.Info("SSO access is active")
			} else {
				cfg.Logger.Info("SSO access is expired or not configured")
			}
			return nil
		},
	}
}
