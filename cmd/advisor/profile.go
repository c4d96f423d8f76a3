package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentoven/advisor-desk/internal/profile"
	"github.com/agentoven/advisor-desk/pkg/models"
	"github.com/agentoven/advisor-desk/pkg/server"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage stored financial profiles",
	}
	cmd.AddCommand(
		newProfileListCmd(),
		newProfileShowCmd(),
		newProfilePromptCmd(),
		newProfileDeleteCmd(),
		newProfileImportCmd(),
	)
	return cmd
}

// withProfiles opens the configured store for the duration of fn.
func withProfiles(ctx context.Context, fn func(profile.Store) error) (err error) {
	store, err := server.OpenProfiles(ctx, cfg.Profiles)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(store)
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd.Context(), func(store profile.Store) error {
				list, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No profiles stored.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "USER ID\tNAME\tUPDATED")
				for _, s := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.UserID, s.Name, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print a profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd.Context(), func(store profile.Store) error {
				p, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			})
		},
	}
}

func newProfilePromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <user-id>",
		Short: "Print the profile block sent to agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd.Context(), func(store profile.Store) error {
				p, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), profile.FormatForPrompt(p))
				return nil
			})
		},
	}
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd.Context(), func(store profile.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Deleted %s", args[0]))
				return nil
			})
		},
	}
}

func newProfileImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Create or replace profiles from a JSON object or array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			list, err := decodeProfiles(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return withProfiles(cmd.Context(), func(store profile.Store) error {
				for _, p := range list {
					saved, err := store.Save(cmd.Context(), p)
					if err != nil {
						return fmt.Errorf("save %q: %w", p.UserID, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Saved %s", saved.UserID))
				}
				return nil
			})
		},
	}
}

// decodeProfiles accepts either a single profile object or an array.
func decodeProfiles(raw []byte) ([]*models.Profile, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if raw[0] == '[' {
		var list []*models.Profile
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return []*models.Profile{&p}, nil
}
