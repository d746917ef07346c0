package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var blacklistCmd = &cobra.Command{
	Use:     "blacklist <client-id>",
	Short:   "Flag a client for the configured block duration",
	GroupID: "admin",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeFn, err := openGuard(cmd.Context(), newLogger())
		if err != nil {
			return err
		}
		defer closeFn()

		if err := g.Blacklist(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Blacklisted %s for %s\n", args[0], g.Config().BlockDuration)
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:     "unblock <client-id>",
	Short:   "Lift the blacklist flag of a client",
	GroupID: "admin",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeFn, err := openGuard(cmd.Context(), newLogger())
		if err != nil {
			return err
		}
		defer closeFn()

		if err := g.Unblock(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unblocked %s\n", args[0])
		return nil
	},
}

type clientStatus struct {
	ClientID      string     `json:"client_id"`
	Blacklisted   bool       `json:"blacklisted"`
	BlacklistedAt *time.Time `json:"blacklisted_at,omitempty"`
	Remaining     string     `json:"remaining,omitempty"`
	FirstSeen     time.Time  `json:"first_seen"`
}

var statusCmd = &cobra.Command{
	Use:     "status <client-id>",
	Short:   "Show the reputation of a client",
	GroupID: "admin",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeFn, err := openGuard(cmd.Context(), newLogger())
		if err != nil {
			return err
		}
		defer closeFn()

		st, err := g.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := clientStatus{
			ClientID:    st.Entry.ClientID,
			Blacklisted: st.Entry.Blacklisted,
			FirstSeen:   st.Entry.CreatedAt,
		}
		if st.Entry.Blacklisted {
			at := st.Entry.BlacklistedAt
			out.BlacklistedAt = &at
			out.Remaining = st.Remaining.Round(time.Second).String()
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Fprintf(w, "Client %s\n", out.ClientID)
		fmt.Fprintf(w, "  First seen:  %s\n", out.FirstSeen.Format(time.RFC3339))
		fmt.Fprintf(w, "  Blacklisted: %t\n", out.Blacklisted)
		if out.BlacklistedAt != nil {
			fmt.Fprintf(w, "  Since:       %s\n", out.BlacklistedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "  Remaining:   %s\n", out.Remaining)
		}
		return nil
	},
}
