// File: cmd/sessions.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/observability"
)

func newSessionsCommand() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage stored conversation sessions.",
	}

	var listDomain string
	var listAll bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently active first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			repo, cleanup, err := newRepository(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			status := schemas.SessionActive
			if listAll {
				status = ""
			}
			sessions, err := repo.ListSessions(cmd.Context(), schemas.Domain(listDomain), status)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDOMAIN\tSTATUS\tUPDATED\tSUMMARY")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.Domain, s.Status, s.UpdatedAt.Format("2006-01-02 15:04"), s.Summary)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVarP(&listDomain, "domain", "d", "", "filter by domain")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include deleted sessions")

	deleteCmd := &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Mark a session deleted. The data is retained.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			repo, cleanup, err := newRepository(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := repo.DeleteSession(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			fmt.Printf("Session %s deleted.\n", args[0])
			return nil
		},
	}

	sessionsCmd.AddCommand(listCmd)
	sessionsCmd.AddCommand(deleteCmd)
	return sessionsCmd
}
