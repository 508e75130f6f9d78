package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"todocat/internal/model"
	"todocat/internal/todo"
)

func (a *app) addCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				task, err := store.Create(cmd.Context(), strings.Join(args, " "), category)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s] %s\n", todo.ShortID(task.ID), task.Category, task.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category of the task")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		category string
		status   string
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks through the active filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				filter := store.Filter()
				if all {
					filter = todo.DefaultFilter()
				}
				if cmd.Flags().Changed("category") {
					filter.Category = category
				}
				if cmd.Flags().Changed("status") {
					filter.Status = todo.Status(status)
				}
				filter, err := filter.Normalize()
				if err != nil {
					return err
				}
				writeTasks(cmd.OutOrStdout(), todo.Apply(store.List(), filter))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only tasks of this category")
	cmd.Flags().StringVar(&status, "status", "", "all, completed or pending")
	cmd.Flags().BoolVar(&all, "all", false, "ignore the saved filter")
	return cmd
}

func (a *app) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Flip the completed flag of a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				id, err := todo.ResolveID(store.List(), args[0])
				if err != nil {
					return err
				}
				task, err := store.ToggleCompleted(cmd.Context(), id)
				if err != nil {
					return err
				}
				state := "pending"
				if task.Completed {
					state = "completed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", todo.ShortID(task.ID), state)
				return nil
			})
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var title, category string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or category of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch todo.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("category") {
				patch.Category = &category
			}
			if patch.Title == nil && patch.Category == nil {
				return fmt.Errorf("%w: nothing to change, use --title or --category", todo.ErrValidation)
			}
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				id, err := todo.ResolveID(store.List(), args[0])
				if err != nil {
					return err
				}
				task, err := store.Update(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s [%s] %s\n", todo.ShortID(task.ID), task.Category, task.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				id, err := todo.ResolveID(store.List(), args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", todo.ShortID(id))
				return nil
			})
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all tasks without --yes")
			}
			return a.withStore(cmd.Context(), func(store *todo.Store) error {
				n := len(store.List())
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d tasks\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all tasks")
	return cmd
}

func writeTasks(out io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, task := range tasks {
		mark := "[ ]"
		if task.Completed {
			mark = "[x]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", todo.ShortID(task.ID), mark, task.Category, task.Title)
	}
	tw.Flush()
}
