package app

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"medialib/internal/archive"
	"medialib/internal/config"
	"medialib/internal/database"
	"medialib/internal/encryption"
	"medialib/internal/fs"
	"medialib/internal/library"
	"medialib/internal/model"
)

// App is the application layer between the CLI and the library Service.
// It constructs all dependencies from config, maps user ids to actors,
// and manages the store lifecycle on Close.
type App struct {
	cfg     *config.Config
	store   *database.SQLiteStore
	service *library.Service
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Delete", "Timeline").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if cfg.Database.Type == "sqlite" {
		if err := store.CheckMigrations(); err != nil {
			store.Close()
			return nil, fmt.Errorf("index schema out of date: %w", err)
		}
	}

	arch, err := archive.NewArchiveFromConfig(cfg.Archive)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	resolver := library.NewPathResolver(cfg.InternalRoot, cfg.DeviceRoots)
	svc := library.NewService(
		store,
		fs.NewOSFilesystemManager(),
		fs.NewMediaScanner(cfg.Scanner.Ignore),
		fs.NewSHA256Hasher(),
		resolver,
		arch,
		enc,
		cfg.ThumbnailsDir,
		&slogAdapter{l: logger},
		library.RealClock{},
		library.UUIDGenerator{},
	)

	return &App{
		cfg:     cfg,
		store:   store,
		service: svc,
		logFile: logFile,
	}, nil
}

// Actor builds the actor for a user id, marking configured admins.
func (a *App) Actor(userID string) library.Actor {
	return library.Actor{
		UserID: userID,
		Admin:  slices.Contains(a.cfg.Admins, userID),
	}
}

// Timeline returns the reconciled timeline for a user.
func (a *App) Timeline(ctx context.Context, userID string) ([]*model.TimelineEntry, error) {
	return a.service.Timeline(ctx, a.Actor(userID))
}

// DeleteAssets moves the given assets to the user's trash.
func (a *App) DeleteAssets(ctx context.Context, ids []string, userID string) error {
	return a.service.DeleteAssets(ctx, ids, a.Actor(userID))
}

// RestoreAssets moves the given trashed assets back to their origin.
func (a *App) RestoreAssets(ctx context.Context, ids []string, userID string) error {
	return a.service.RestoreAssets(ctx, ids, a.Actor(userID))
}

// RestoreAll restores everything in the user's trash.
func (a *App) RestoreAll(ctx context.Context, userID string) (int, error) {
	return a.service.RestoreAll(ctx, a.Actor(userID))
}

// PurgeAssets permanently removes the given trashed assets.
func (a *App) PurgeAssets(ctx context.Context, ids []string, userID string) error {
	return a.service.PurgeAssets(ctx, ids, a.Actor(userID))
}

// PurgeAll permanently removes everything in the user's trash.
func (a *App) PurgeAll(ctx context.Context, userID string) (int, error) {
	return a.service.PurgeAll(ctx, a.Actor(userID))
}

// EmptyTrash purges the user's own trash.
func (a *App) EmptyTrash(ctx context.Context, userID string) (int, error) {
	return a.service.EmptyTrash(ctx, a.Actor(userID))
}

// SyncDeviceFile copies a file from the user's device into the library.
func (a *App) SyncDeviceFile(ctx context.Context, devicePath string, userID string) (*library.SyncResult, error) {
	return a.service.SyncDeviceFile(ctx, devicePath, a.Actor(userID))
}

// GrantPermission shares a folder with another user.
func (a *App) GrantPermission(folderID, granteeID string, read, write, del, manage bool, userID string) error {
	return a.service.GrantPermission(a.Actor(userID), folderID, granteeID, read, write, del, manage)
}

// AllowedFolders returns the folder ids the user may read.
func (a *App) AllowedFolders(userID string) ([]string, error) {
	return a.service.AllowedFolders(a.Actor(userID))
}

// PendingMoves lists the recorded move intents, incomplete first.
func (a *App) PendingMoves() ([]*model.PendingMove, error) {
	return a.store.ListPendingMoves()
}

// ReconcilePending completes moves interrupted by a crash.
func (a *App) ReconcilePending(ctx context.Context) (int, error) {
	return a.service.ReconcilePending(ctx)
}

// SetupEncryption generates the archive encryption key pair.
func (a *App) SetupEncryption(passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return enc.Setup(passphrase)
}

// Close closes the store and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
