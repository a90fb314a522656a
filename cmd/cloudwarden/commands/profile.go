package commands

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloudwarden/cloudwarden/internal/config"
	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
)

func NewProfileCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage named profiles",
	}

	cmd.AddCommand(
		newProfileListCommand(cfg),
		newProfileAddCommand(cfg),
		newProfileReassignCommand(cfg),
	)
	return cmd
}

func newProfileListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cfg.Store()
			if err != nil {
				return err
			}
			ws, err := store.Load()
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					cfg.Logger.Info("no workspace yet")
					return nil
				}
				return err
			}
			if len(ws.Profiles) == 0 {
				cfg.Logger.Info("no profiles in workspace")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, p := range ws.Profiles {
				fmt.Fprintf(w, "%s\t%s\n", p.ID, p.Name)
			}
			return w.Flush()
		},
	}
}

func newProfileAddCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			p, err := registry.AddProfile(args[0])
			if err != nil {
				return err
			}
			cfg.Logger.Info("profile %s (%s)", p.Name, p.ID)
			return nil
		},
	}
}

func newProfileReassignCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reassign <from-name> <to-name>",
		Short: "Move every session from one profile to another",
		Long: `Re-point all sessions on the source profile to the target profile,
creating the target if needed. Active sessions being moved are stopped
and the source profile's credentials entry is removed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			store, err := cfg.Store()
			if err != nil {
				return err
			}
			ws, err := store.Load()
			if err != nil {
				return err
			}
			from := ws.ProfileByName(args[0])
			if from == nil {
				return &cwerrors.NotFoundError{Kind: "profile", ID: args[0]}
			}
			to, err := registry.AddProfile(args[1])
			if err != nil {
				return err
			}
			if err := registry.ReplaceAllProfileID(from.ID, to.ID); err != nil {
				return err
			}
			cfg.Logger.Info("sessions moved from %s to %s", args[0], args[1])
			return nil
		},
	}
}
