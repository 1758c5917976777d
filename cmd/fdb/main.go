package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fdb-go/internal/app"
	"fdb-go/internal/config"
	"fdb-go/internal/fdb"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var verbose bool

// readConfig loads the config file named by the defaults.
func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates an FDBApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "archive", "wipe").
func newApp(operation string) (*app.FDBApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewFDBApp(cfg, operation, verbose)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// unlock prompts for the passphrase when payloads are encrypted.
func unlock(a *app.FDBApp) error {
	if !a.NeedsPassphrase() {
		return nil
	}
	passphrase, err := app.ReadPassphrase("Passphrase: ", false)
	if err != nil {
		return err
	}
	return a.Unlock(passphrase)
}

var rootCmd = &cobra.Command{
	Use:          "fdb",
	Short:        "Field database client",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration, index and keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = uuid.New().String()
		}

		cfg := config.NewConfig(name, defaults["base_dir"])
		cfg.Vaults = []config.VaultConfig{{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(defaults["base_dir"], "vault"),
		}}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		passphrase, err := app.ReadPassphrase("New passphrase: ", true)
		if err != nil {
			return err
		}
		if err := app.Initialize(cfg, passphrase); err != nil {
			return err
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Name:     %s\n", name)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Name:        %s\n", cfg.Name)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s\n", cfg.Database.Type)
		fmt.Printf("Compression: %s\n", cfg.Store.Compression)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:       %s (%s)\n", v.Name, v.Type)
		}
		for i, level := range cfg.Schema.Levels {
			fmt.Printf("Level %d:     %s\n", i, strings.Join(level, ","))
		}

		a, err := app.NewFDBApp(cfg, "config-list", verbose)
		if err != nil {
			fmt.Printf("Fields:      unavailable (%v)\n", err)
			return nil
		}
		defer a.Close()
		n, err := a.FieldCount()
		if err != nil {
			return err
		}
		fmt.Printf("Fields:      %d\n", n)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List axis names in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("keys")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.AxisNames()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var configRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the local index from the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.RestoreIndex(cfg); err != nil {
			return err
		}
		fmt.Println("Index restored.")
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive REQUEST [FILE|-]",
	Short: "Archive a field under a fully specified key",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("archive")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 2 && args[1] != "-" {
			return a.ArchiveFile(args[0], args[1])
		}

		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		return a.Archive(args[0], bytes.NewReader(data), int64(len(data)))
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list [REQUEST]",
	Short: "List archived fields",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location, _ := cmd.Flags().GetBool("location")
		duplicates, _ := cmd.Flags().GetBool("duplicates")
		porcelain, _ := cmd.Flags().GetBool("porcelain")
		allowed, _ := cmd.Flags().GetStringSlice("allowed-axes")

		a, err := newApp("list")
		if err != nil {
			return err
		}
		defer a.Close()

		text := ""
		if len(args) > 0 {
			text = args[0]
		}
		it, err := a.List(text, allowed, duplicates)
		if err != nil {
			return err
		}

		for el, err := range it.All() {
			if err != nil {
				return err
			}
			if porcelain {
				fmt.Println(el.Key.Canonical())
				continue
			}
			line := el.String()
			if location {
				line += " " + el.Location.String()
			}
			if el.Masked {
				line += " (masked)"
			}
			fmt.Println(line)
		}
		return nil
	},
}

// retrieve command
var retrieveCmd = &cobra.Command{
	Use:   "retrieve REQUEST",
	Short: "Write the matching fields to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("retrieve")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}

		out := os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			out = f
		}

		n, err := a.Retrieve(args[0], out)
		if err != nil {
			return err
		}
		if out != os.Stdout {
			fmt.Fprintf(os.Stderr, "Retrieved %d bytes to %s\n", n, output)
		}
		return nil
	},
}

// exists command
var existsCmd = &cobra.Command{
	Use:   "exists REQUEST",
	Short: "Check whether a field is archived; exits 1 if not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("exists")
		if err != nil {
			return err
		}

		ok, err := a.Exists(args[0])
		a.Close()
		if err != nil {
			return err
		}
		if !ok {
			os.Exit(1)
		}
		fmt.Println("exists")
		return nil
	},
}

// wipe command
var wipeCmd = &cobra.Command{
	Use:   "wipe REQUEST",
	Short: "Delete matching fields, masked versions included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doit, _ := cmd.Flags().GetBool("doit")

		a, err := newApp("wipe")
		if err != nil {
			return err
		}
		defer a.Close()

		wiped, err := a.Wipe(args[0], doit)
		if err != nil {
			return err
		}

		for _, el := range wiped {
			fmt.Println(el.String())
		}
		if doit {
			fmt.Printf("Wiped %d field(s)\n", len(wiped))
		} else {
			fmt.Printf("%d field(s) would be wiped; rerun with --doit\n", len(wiped))
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the library version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(fdb.Version())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("name", "", "Store name (default: random UUID)")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configRestoreCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("location", false, "Show object, offset, length and archive time")
	listCmd.Flags().Bool("duplicates", false, "Include masked versions")
	listCmd.Flags().Bool("porcelain", false, "Print one canonical key per line")
	listCmd.Flags().StringSlice("allowed-axes", nil, "Reject requests using other axes")
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(wipeCmd)
	wipeCmd.Flags().Bool("doit", false, "Actually delete; without it only lists")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(versionCmd)
}
