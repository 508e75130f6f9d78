package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"todocat/internal/todo"
)

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List known categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				active := store.Filter().Category
				for _, name := range store.Categories() {
					marker := " "
					if name == active {
						marker = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
				}
				return nil
			})
		},
	}
}

func (a *app) filterCmd() *cobra.Command {
	var (
		category string
		status   string
		reset    bool
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show or change the saved filter used by list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				filter := store.Filter()
				changed := false
				if reset {
					filter = todo.DefaultFilter()
					changed = true
				}
				if cmd.Flags().Changed("category") {
					filter.Category = category
					changed = true
				}
				if cmd.Flags().Changed("status") {
					filter.Status = todo.Status(status)
					changed = true
				}
				if changed {
					if err := store.SetFilter(filter); err != nil {
						return err
					}
				}

				current := store.Filter()
				shown := current.Category
				if shown == todo.AnyCategory {
					shown = "(any)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "category: %s\nstatus:   %s\n", shown, current.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category to show; empty for any")
	cmd.Flags().StringVar(&status, "status", "", "all, completed or pending")
	cmd.Flags().BoolVar(&reset, "reset", false, "show every task again")
	return cmd
}
