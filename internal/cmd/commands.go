package cmd

import (
	"github.com/allergenscan/backend/internal/taxonomy"
	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look up a product on Open Food Facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadOfflineApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.lookup.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <barcode>",
		Short: "Look up a product and analyze it against the stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadOnlineApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.scan.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

type allergenEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

func newAllergensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allergens",
		Short: "List the selectable allergen categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := taxonomy.Categories()
			out := make([]allergenEntry, 0, len(categories))
			for _, c := range categories {
				out = append(out, allergenEntry{ID: c.ID, DisplayName: c.DisplayName})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

type profileOutput struct {
	Allergens    []string `json:"allergens"`
	DisplayNames []string `json:"displayNames"`
}

func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the stored allergen profile",
	}

	profileCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the stored profile",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return editProfile(cmd, nil)
			},
		},
		&cobra.Command{
			Use:   "add <id>...",
			Short: "Add allergen categories to the profile",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return editProfile(cmd, func(a *app) error {
					for _, id := range args {
						if err := a.profile.Add(cmd.Context(), id); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>...",
			Short: "Remove allergen categories from the profile",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return editProfile(cmd, func(a *app) error {
					for _, id := range args {
						if err := a.profile.Remove(cmd.Context(), id); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
	)

	return profileCmd
}

// editProfile applies edit (if any) and prints the resulting profile
func editProfile(cmd *cobra.Command, edit func(*app) error) error {
	a, err := loadOfflineApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if edit != nil {
		if err := edit(a); err != nil {
			return err
		}
	}

	return printJSON(cmd.OutOrStdout(), profileOutput{
		Allergens:    a.profile.List(),
		DisplayNames: a.profile.DisplayNames(),
	})
}
