package main

import (
	"fmt"
	"os"
	"path/filepath"

	"medialib/internal/app"
	"medialib/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Delete", "Timeline").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// userID returns the --user flag value, failing if it was not provided.
func userID(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}

var rootCmd = &cobra.Command{
	Use:   "medialib",
	Short: "Personal media library",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init INTERNAL_ROOT",
	Short: "Initialize configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		internalRoot, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving internal root: %w", err)
		}

		cfg := config.NewConfig(internalRoot, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Internal Root: %s\n", internalRoot)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
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
		fmt.Printf("Internal Root:  %s\n", cfg.InternalRoot)
		fmt.Printf("Thumbnails Dir: %s\n", cfg.ThumbnailsDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Database:       %s (%s)\n", cfg.Database.Type, cfg.Database.Path)
		fmt.Printf("Archive:        %s\n", cfg.Archive.Type)
		for user, root := range cfg.DeviceRoots {
			fmt.Printf("Device Root:    %s -> %s\n", user, root)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage archive encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the archive encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := promptPassphrase()
		if err != nil {
			return err
		}

		if err := a.SetupEncryption(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// promptPassphrase reads the passphrase twice from the terminal without echo.
func promptPassphrase() (string, error) {
	fmt.Print("Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	fmt.Print("Confirm passphrase: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passphrases do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return string(first), nil
}

// timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "View the media timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userID(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Timeline")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Timeline(cmd.Context(), user)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No media found.")
			return nil
		}

		for _, e := range entries {
			id := e.AssetID
			if id == "" {
				id = "-"
			}
			fmt.Printf("%-8s  %s  %-36s  %s\n",
				e.Status,
				e.SortDate().Format("2006-01-02 15:04:05"),
				id,
				e.VirtualPath,
			)
		}
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync PATH",
	Short: "Copy a device file into the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userID(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("SyncDeviceFile")
		if err != nil {
			return err
		}
		defer a.Close()

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		result, err := a.SyncDeviceFile(cmd.Context(), absPath, user)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		if result.AlreadyExists {
			fmt.Printf("Already in library: %s\n", result.TargetVirtualPath)
		} else {
			fmt.Printf("Synced to %s\n", result.TargetVirtualPath)
		}
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ASSET_ID...",
	Short: "Move assets to trash",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userID(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteAssets(cmd.Context(), args, user); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}

		fmt.Printf("Trashed %d asset(s)\n", len(args))
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [ASSET_ID...]",
	Short: "Restore assets from trash",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("provide asset ids or --all")
		}

		user, err := userID(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		if all {
			count, err := a.RestoreAll(cmd.Context(), user)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Printf("Restored %d asset(s)\n", count)
			return nil
		}

		if err := a.RestoreAssets(cmd.Context(), args, user); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored %d asset(s)\n", len(args))
		return nil
	},
}

// purge command
var purgeCmd = &cobra.Command{
	Use:   "purge [ASSET_ID...]",
	Short: "Permanently remove trashed assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("provide asset ids or --all")
		}

		user, err := userID(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Purge")
		if err != nil {
			return err
		}
		defer a.Close()

		if all {
			count, err := a.PurgeAll(cmd.Context(), user)
			if err != nil {
				return fmt.Errorf("purge failed: %w", err)
			}
			fmt.Printf("Purged %d asset(s)\n", count)
			return nil
		}

		if err := a.PurgeAssets(cmd.Context(), args, user); err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		fmt.Printf("Purged %d asset(s)\n", len(args))
		return nil
	},
}

// trash command
var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Manage the trash",
}

var trashEmptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Permanently remove everything in your trash",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userID(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("EmptyTrash")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.EmptyTrash(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("emptying trash: %w", err)
		}

		fmt.Printf("Purged %d asset(s)\n", count)
		return nil
	},
}

// share command
var shareCmd = &cobra.Command{
	Use:   "share FOLDER_ID GRANTEE_USER_ID",
	Short: "Grant another user access to a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userID(cmd)
		if err != nil {
			return err
		}

		read, _ := cmd.Flags().GetBool("read")
		write, _ := cmd.Flags().GetBool("write")
		del, _ := cmd.Flags().GetBool("delete")
		manage, _ := cmd.Flags().GetBool("manage")

		a, err := newApp("GrantPermission")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.GrantPermission(args[0], args[1], read, write, del, manage, user); err != nil {
			return fmt.Errorf("share failed: %w", err)
		}

		fmt.Printf("Shared folder %s with user %s\n", args[0], args[1])
		return nil
	},
}

// pending command
var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List recorded move intents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PendingMoves")
		if err != nil {
			return err
		}
		defer a.Close()

		moves, err := a.PendingMoves()
		if err != nil {
			return fmt.Errorf("listing pending moves: %w", err)
		}

		if len(moves) == 0 {
			fmt.Println("No pending moves.")
			return nil
		}

		for _, m := range moves {
			state := "incomplete"
			if m.CompletedAt != nil {
				state = "completed"
			}
			fmt.Printf("%-10s  %-7s  %-36s  %s\n", state, m.Op, m.AssetID, m.VirtualPath)
		}
		return nil
	},
}

// reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Resolve moves interrupted by a crash",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ReconcilePending")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.ReconcilePending(cmd.Context())
		if err != nil {
			return fmt.Errorf("reconcile failed: %w", err)
		}

		fmt.Printf("Reconciled %d pending move(s)\n", count)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("user", "u", "", "User id to act as")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// trash subcommands
	trashCmd.AddCommand(trashEmptyCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().Bool("all", false, "Restore everything in trash")
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().Bool("all", false, "Purge everything in trash")
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(shareCmd)
	shareCmd.Flags().Bool("read", true, "Grant read access")
	shareCmd.Flags().Bool("write", false, "Grant write access")
	shareCmd.Flags().Bool("delete", false, "Grant delete access")
	shareCmd.Flags().Bool("manage", false, "Grant permission management")
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(reconcileCmd)
}
