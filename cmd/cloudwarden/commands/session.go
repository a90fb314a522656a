package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloudwarden/cloudwarden/internal/config"
	"github.com/cloudwarden/cloudwarden/internal/session"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

func NewSessionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage account sessions",
		Long: `List, start and stop the sessions held in the workspace.

Starting an AWS session stops any other session writing to the same
profile; starting an Azure session stops every other Azure session.`,
	}

	cmd.AddCommand(
		newSessionListCommand(cfg),
		newSessionStartCommand(cfg),
		newSessionStopCommand(cfg),
		newSessionSweepCommand(cfg),
		newSessionInvalidateCommand(cfg),
	)
	return cmd
}

func newSessionInvalidateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <session-id>",
		Short: "Drop a session's cached token so the next refresh regenerates it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			sess, err := registry.Get(args[0])
			if err != nil {
				return err
			}
			if err := registry.InvalidateSessionToken(*sess); err != nil {
				return err
			}
			cfg.Logger.Info("cached token for session %s invalidated", args[0])
			return nil
		},
	}
}

func newSessionListCommand(cfg *config.Config) *cobra.Command {
	var (
		trustersOnly bool
		byStopTime   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}

			var sessions []workspace.Session
			if trustersOnly {
				sessions, err = registry.ListTrusterSessions()
			} else {
				sessions, err = registry.List()
			}
			if err != nil {
				return err
			}
			if byStopTime {
				sessions = session.OrderByStopTime(sessions)
			}

			if len(sessions) == 0 {
				cfg.Logger.Info("no sessions in workspace")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tREGION\tSTATE")
			for _, sess := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					sess.ID,
					sess.Account.AccountName,
					sess.Account.Type,
					sess.Account.Region,
					sessionState(sess))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&trustersOnly, "trusters", false, "Only sessions deriving credentials from a parent")
	cmd.Flags().BoolVar(&byStopTime, "by-stop-time", false, "Order by most recently stopped first")
	return cmd
}

func newSessionStartCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			if err := registry.Start(args[0]); err != nil {
				return err
			}
			cfg.Logger.Info("session %s started", args[0])
			return nil
		},
	}
}

func newSessionStopCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [session-id]",
		Short: "Stop a session, or all sessions",
		Long:  `Stop the given session. With no argument every active session is stopped.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				if err := registry.StopAll(); err != nil {
					return err
				}
				cfg.Logger.Info("all sessions stopped")
				return nil
			}
			if err := registry.Stop(args[0]); err != nil {
				return err
			}
			cfg.Logger.Info("session %s stopped", args[0])
			return nil
		},
	}
}

func newSessionSweepCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove truster sessions whose parent is gone",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			removed, err := registry.Sweep()
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				cfg.Logger.Info("no dangling truster sessions")
				return nil
			}
			for _, sess := range removed {
				cfg.Logger.Info("removed dangling truster session %s (%s)",
					sess.ID, sess.Account.AccountName)
			}
			return nil
		},
	}
}

func sessionState(sess workspace.Session) string {
	switch {
	case sess.Active && sess.Loading:
		return "loading"
	case sess.Active:
		return "active"
	default:
		return "inactive"
	}
}
