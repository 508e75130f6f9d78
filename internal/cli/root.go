// Package cli implements the todocat command-line client.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"todocat/internal/todo"
)

// app carries the configuration shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
}

// NewRootCommand builds the command tree with a fresh configuration.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "todocat",
		Short: "todocat - a categorized task list",
		Long: `todocat keeps a list of tasks grouped by category.

Without a server it stores everything in a local sqlite file. With a server
configured it mirrors the tasks of the logged-in account.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ~/.config/todocat/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	flags.String("server", "", "REST server URL; empty keeps tasks locally")
	flags.String("token", "", "bearer token for the server")
	flags.String("db", "", "sqlite file for local state")
	flags.String("mode", "confirmed", "mutation mode against the server: confirmed or optimistic")
	for _, key := range []string{"server", "token", "db", "mode"} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	a.v.SetDefault("default_category", todo.DefaultCategory)
	a.v.SetDefault("categories", todo.DefaultCategories)
	a.v.SetDefault("timeout", "10s")
	a.v.SetEnvPrefix("TODOCAT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.toggleCmd(),
		a.editCmd(),
		a.rmCmd(),
		a.clearCmd(),
		a.categoriesCmd(),
		a.filterCmd(),
		a.loginCmd(),
		a.registerCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	root := NewRootCommand()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

func (a *app) loadConfig() error {
	path := a.configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	a.v.SetConfigFile(path)
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// saveSetting persists one key to the config file, keeping what is already there.
func (a *app) saveSetting(key string, value any) error {
	path := a.configPath()
	file := viper.New()
	file.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		file.SetConfigFile(path)
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	file.Set(key, value)
	a.v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".todocat"
	}
	return filepath.Join(dir, "todocat")
}
