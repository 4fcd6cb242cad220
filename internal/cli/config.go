package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-workout/internal/config"
	"github.com/alnah/go-workout/internal/lang"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-workout/config.
Unset keys fall back to environment variables.

Supported settings:
` + keyTable(),
		Example: `  workout config set output-dir ~/Music/workouts
  workout config set language fr
  workout config set cache-url redis://localhost:6379/0
  workout config get output-dir
  workout config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// keyTable renders Keys for help text.
func keyTable() string {
	var b strings.Builder
	for _, k := range config.Keys {
		fmt.Fprintf(&b, "  %-12s %s (env: %s)\n", k.Name, k.Help, k.Env)
	}
	return strings.TrimRight(b.String(), "\n")
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The value is validated first: output-dir must be writable (it is created
if missing), language must be a known ISO 639-1 code, cache-url must be a
redis:// URL and s3-endpoint an http(s) URL.`,
		Example: `  workout config set output-dir ~/Music/workouts
  workout config set s3-bucket my-workouts`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  workout config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable fallbacks.`,
		Example: `  workout config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if _, ok := config.LookupKey(key); !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, config.KeyNames())
	}

	if err := config.ValidateValue(key, value); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}

	// Store normalized forms so later reads need no cleanup.
	switch key {
	case config.KeyOutputDir:
		value = config.ExpandPath(value)
	case config.KeyLanguage:
		value = lang.Normalize(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	k, ok := config.LookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, config.KeyNames())
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		value = env.Getenv(k.Env)
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	for _, k := range config.Keys {
		if _, ok := data[k.Name]; ok {
			continue
		}
		if v := env.Getenv(k.Env); v != "" {
			data[k.Name] = v + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, k := range config.Keys {
			fmt.Fprintf(env.Stdout, "  %s\n", k.Name)
		}
		return nil
	}

	// Keys order, then anything unknown left in the file.
	for _, k := range config.Keys {
		if v, ok := data[k.Name]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", k.Name, v)
			delete(data, k.Name)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(data)) {
		fmt.Fprintf(env.Stdout, "%s=%s\n", k, data[k])
	}
	return nil
}
