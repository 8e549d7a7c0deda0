package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"notebox/internal/app"
	"notebox/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// activeApp is the app of the running command, consulted by the signal
// handler to decide whether an interrupt would abandon an upload.
var activeApp atomic.Pointer[app.NBApp]

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go handleSignals(sigChan, cancel)

	err := rootCmd.ExecuteContext(ctx)
	signal.Stop(sigChan)
	if err != nil {
		os.Exit(1)
	}
}

// handleSignals cancels the root context. While an upload is in flight the
// first interrupt only warns; a second one cancels.
func handleSignals(sigChan <-chan os.Signal, cancel context.CancelFunc) {
	warned := false
	for range sigChan {
		if a := activeApp.Load(); a != nil && a.InFlight() && !warned {
			warned = true
			fmt.Fprintln(os.Stderr, "\nAn upload is in progress. Interrupting now leaves it to be recovered on the next run.")
			fmt.Fprintln(os.Stderr, "Press Ctrl+C again to cancel it.")
			continue
		}
		cancel()
	}
}

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an NBApp, authenticating first when
// --admin is set. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Upload", "RenameFolder").
func newApp(cmd *cobra.Command, operation string) (*app.NBApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewNBApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	admin, _ := cmd.Flags().GetBool("admin")
	if admin {
		pass, err := readPassphrase("Admin passphrase: ")
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.Authenticate(pass); err != nil {
			a.Close()
			return nil, err
		}
	}

	if notice := a.RecoveryNotice(); notice != "" && cmd.Name() != "recover" && cmd.Name() != "upload" {
		fmt.Fprintln(os.Stderr, notice)
	}

	activeApp.Store(a)
	return a, nil
}

// readPassphrase prompts on a terminal, or reads one line when stdin is piped.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		pass, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(pass), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var rootCmd = &cobra.Command{
	Use:          "notebox",
	Short:        "Shared notes and file catalog",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		clientID := uuid.New().String()
		cfg := config.NewConfig(clientID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Client ID: %s\n", clientID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		fmt.Println("Set admin_passphrase in the config file to enable --admin.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Client ID: %s\n", cfg.ClientID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("User:      %s\n", cfg.UserName)
		fmt.Printf("Catalog:   %s %s\n", cfg.Catalog.Type, cfg.Catalog.DataDir)
		fmt.Printf("Ledger:    %s %s\n", cfg.Ledger.Type, cfg.Ledger.Path)
		fmt.Printf("Endpoint:  %s\n", cfg.Endpoint.URL)
		fmt.Printf("Drive:     %s on %s\n", cfg.Drive.Type, cfg.Drive.Listen)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("admin", false, "Authenticate as admin (prompts for the passphrase)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// folder subcommands
	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderAddCmd)
	folderAddCmd.Flags().String("parent", "", "Parent folder name")
	folderAddCmd.Flags().Bool("open", false, "Allow non-admin uploads")
	folderCmd.AddCommand(folderRenameCmd)
	folderCmd.AddCommand(folderDeleteCmd)
	folderCmd.AddCommand(folderLockCmd)
	folderCmd.AddCommand(folderUnlockCmd)

	// item subcommands
	itemCmd.AddCommand(itemListCmd)
	itemListCmd.Flags().StringP("search", "s", "", "Case-insensitive name filter")
	itemCmd.AddCommand(itemEditCmd)
	itemEditCmd.Flags().String("name", "", "New display name")
	itemEditCmd.Flags().String("link", "", "New link")
	itemEditCmd.Flags().String("desc", "", "New description")
	itemEditCmd.Flags().String("folder", "", "Move to folder")
	itemCmd.AddCommand(itemDeleteCmd)

	// upload flags
	uploadCmd.Flags().String("name", "", "Display name (required)")
	uploadCmd.Flags().String("file", "", "Local file to upload")
	uploadCmd.Flags().String("link", "", "Link to save instead of a file")
	uploadCmd.Flags().String("desc", "", "Description")
	uploadCmd.Flags().String("by", "", "Uploader name (defaults to user_name from config)")
	_ = uploadCmd.MarkFlagRequired("name")
	uploadCmd.MarkFlagsOneRequired("file", "link")

	recoverCmd.Flags().String("file", "", "Re-select the file and resume the upload")
	recoverCmd.Flags().Bool("discard", false, "Discard the interrupted upload")
	recoverCmd.MarkFlagsMutuallyExclusive("file", "discard")

	// drive subcommands
	driveCmd.AddCommand(driveServeCmd)
	driveCmd.AddCommand(driveKeygenCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(driveCmd)
}
