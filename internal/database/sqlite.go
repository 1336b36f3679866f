package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"medialib/internal/database/migrations"
	"medialib/internal/library"
	"medialib/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// Exported for tools and tests that need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

const assetColumns = `id, file_name, virtual_path, size, digest, kind, width, height,
	captured_at, modified_at, scanned_at, folder_id,
	deleted_at, deleted_from_path, deleted_from_folder_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*model.Asset, error) {
	var a model.Asset
	var kind string
	var deletedAt sql.NullTime
	err := row.Scan(&a.ID, &a.FileName, &a.VirtualPath, &a.Size, &a.Digest, &kind,
		&a.Width, &a.Height, &a.CapturedAt, &a.ModifiedAt, &a.ScannedAt, &a.FolderID,
		&deletedAt, &a.DeletedFromPath, &a.DeletedFromFolderID)
	if err != nil {
		return nil, err
	}
	a.Kind = model.MediaKind(kind)
	if deletedAt.Valid {
		t := deletedAt.Time
		a.DeletedAt = &t
	}
	return &a, nil
}

func collectAssets(rows *sql.Rows) ([]*model.Asset, error) {
	defer rows.Close()
	var assets []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating asset rows: %w", err)
	}
	return assets, nil
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// Asset operations

func (s *SQLiteStore) FindAssetByID(id string) (*model.Asset, error) {
	row := s.db.QueryRow("SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding asset by id: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) FindAssetsByIDs(ids []string) ([]*model.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		"SELECT "+assetColumns+" FROM assets WHERE id IN ("+placeholders(len(ids))+")",
		toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("finding assets by ids: %w", err)
	}
	return collectAssets(rows)
}

func (s *SQLiteStore) FindAssetByDigest(digest string) (*model.Asset, error) {
	row := s.db.QueryRow("SELECT "+assetColumns+" FROM assets WHERE digest = ?", digest)
	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding asset by digest: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) FindAllAssets() ([]*model.Asset, error) {
	rows, err := s.db.Query("SELECT " + assetColumns + " FROM assets")
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return collectAssets(rows)
}

func (s *SQLiteStore) FindAssetsByFolderIDs(folderIDs []string) ([]*model.Asset, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		"SELECT "+assetColumns+" FROM assets WHERE folder_id IN ("+placeholders(len(folderIDs))+")",
		toArgs(folderIDs)...)
	if err != nil {
		return nil, fmt.Errorf("finding assets by folder: %w", err)
	}
	return collectAssets(rows)
}

func (s *SQLiteStore) FindDeletedAssets(pathPrefix string) ([]*model.Asset, error) {
	rows, err := s.db.Query(
		"SELECT "+assetColumns+" FROM assets WHERE deleted_at IS NOT NULL AND deleted_from_path LIKE ? ESCAPE '\\'",
		escapeLike(pathPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("finding deleted assets: %w", err)
	}
	return collectAssets(rows)
}

// escapeLike escapes LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (s *SQLiteStore) CreateAsset(a *model.Asset) error {
	_, err := s.db.Exec(
		`INSERT INTO assets (`+assetColumns+`)
		 VALUES (`+placeholders(15)+`)`,
		a.ID, a.FileName, a.VirtualPath, a.Size, a.Digest, string(a.Kind), a.Width, a.Height,
		a.CapturedAt, a.ModifiedAt, a.ScannedAt, a.FolderID,
		nullableTime(a.DeletedAt), a.DeletedFromPath, a.DeletedFromFolderID)
	if err != nil {
		return fmt.Errorf("creating asset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateAsset(a *model.Asset) error {
	return s.updateAsset(s.db, a)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) updateAsset(e execer, a *model.Asset) error {
	_, err := e.Exec(
		`UPDATE assets SET file_name = ?, virtual_path = ?, size = ?, digest = ?, kind = ?,
		 width = ?, height = ?, captured_at = ?, modified_at = ?, scanned_at = ?, folder_id = ?,
		 deleted_at = ?, deleted_from_path = ?, deleted_from_folder_id = ?
		 WHERE id = ?`,
		a.FileName, a.VirtualPath, a.Size, a.Digest, string(a.Kind),
		a.Width, a.Height, a.CapturedAt, a.ModifiedAt, a.ScannedAt, a.FolderID,
		nullableTime(a.DeletedAt), a.DeletedFromPath, a.DeletedFromFolderID,
		a.ID)
	if err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// PurgeAssets removes the asset rows and their album memberships in a
// single transaction.
func (s *SQLiteStore) PurgeAssets(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	args := toArgs(ids)
	if _, err := tx.Exec("DELETE FROM album_entries WHERE asset_id IN ("+placeholders(len(ids))+")", args...); err != nil {
		return fmt.Errorf("deleting album entries: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM assets WHERE id IN ("+placeholders(len(ids))+")", args...); err != nil {
		return fmt.Errorf("deleting assets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Folder operations

const folderColumns = "id, path, name, parent_id, owner_user_id, created_at"

func scanFolder(row rowScanner) (*model.Folder, error) {
	var f model.Folder
	if err := row.Scan(&f.ID, &f.Path, &f.Name, &f.ParentID, &f.OwnerUserID, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) FindFolderByID(id string) (*model.Folder, error) {
	row := s.db.QueryRow("SELECT "+folderColumns+" FROM folders WHERE id = ?", id)
	f, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding folder by id: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) FindFolderByPath(path string) (*model.Folder, error) {
	row := s.db.QueryRow("SELECT "+folderColumns+" FROM folders WHERE path = ?", path)
	f, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding folder by path: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) FindFoldersByPathPrefix(prefix string) ([]*model.Folder, error) {
	rows, err := s.db.Query(
		"SELECT "+folderColumns+" FROM folders WHERE path = ? OR path LIKE ? ESCAPE '\\'",
		strings.TrimSuffix(prefix, "/"), escapeLike(strings.TrimSuffix(prefix, "/"))+"/%")
	if err != nil {
		return nil, fmt.Errorf("finding folders by path prefix: %w", err)
	}
	defer rows.Close()

	var folders []*model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder row: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating folder rows: %w", err)
	}
	return folders, nil
}

func (s *SQLiteStore) CreateFolder(f *model.Folder) error {
	_, err := s.db.Exec(
		"INSERT INTO folders ("+folderColumns+") VALUES ("+placeholders(6)+")",
		f.ID, f.Path, f.Name, f.ParentID, f.OwnerUserID, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating folder: %w", err)
	}
	return nil
}

// Permission operations

const permissionColumns = "id, folder_id, user_id, granted_by, can_read, can_write, can_delete, can_manage, created_at"

func scanPermission(row rowScanner) (*model.FolderPermission, error) {
	var p model.FolderPermission
	err := row.Scan(&p.ID, &p.FolderID, &p.UserID, &p.GrantedBy,
		&p.CanRead, &p.CanWrite, &p.CanDelete, &p.CanManage, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) FindPermission(userID, folderID string) (*model.FolderPermission, error) {
	row := s.db.QueryRow(
		"SELECT "+permissionColumns+" FROM folder_permissions WHERE user_id = ? AND folder_id = ?",
		userID, folderID)
	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding permission: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) FindPermissionsByUser(userID string) ([]*model.FolderPermission, error) {
	rows, err := s.db.Query(
		"SELECT "+permissionColumns+" FROM folder_permissions WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("finding permissions by user: %w", err)
	}
	defer rows.Close()

	var perms []*model.FolderPermission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning permission row: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating permission rows: %w", err)
	}
	return perms, nil
}

func (s *SQLiteStore) GrantedFolderIDs() (map[string]bool, error) {
	rows, err := s.db.Query("SELECT DISTINCT folder_id FROM folder_permissions")
	if err != nil {
		return nil, fmt.Errorf("listing granted folders: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning folder id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating folder ids: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) UpsertPermission(p *model.FolderPermission) error {
	_, err := s.db.Exec(
		`INSERT INTO folder_permissions (`+permissionColumns+`)
		 VALUES (`+placeholders(9)+`)
		 ON CONFLICT (user_id, folder_id) DO UPDATE SET
		   granted_by = excluded.granted_by,
		   can_read = excluded.can_read,
		   can_write = excluded.can_write,
		   can_delete = excluded.can_delete,
		   can_manage = excluded.can_manage`,
		p.ID, p.FolderID, p.UserID, p.GrantedBy,
		p.CanRead, p.CanWrite, p.CanDelete, p.CanManage, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting permission: %w", err)
	}
	return nil
}

// Album membership operations

func (s *SQLiteStore) AddAlbumEntry(albumID, assetID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO album_entries (album_id, asset_id) VALUES (?, ?)",
		albumID, assetID)
	if err != nil {
		return fmt.Errorf("adding album entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindAlbumIDsForAsset(assetID string) ([]string, error) {
	rows, err := s.db.Query("SELECT album_id FROM album_entries WHERE asset_id = ?", assetID)
	if err != nil {
		return nil, fmt.Errorf("finding albums for asset: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning album id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating album ids: %w", err)
	}
	return ids, nil
}

// Pending move operations

const pendingColumns = `id, asset_id, op, src_path, dest_path, virtual_path, folder_id,
	deleted_at, deleted_from_path, deleted_from_folder_id, created_at, completed_at`

func scanPendingMove(row rowScanner) (*model.PendingMove, error) {
	var m model.PendingMove
	var deletedAt, completedAt sql.NullTime
	err := row.Scan(&m.ID, &m.AssetID, &m.Op, &m.SrcPath, &m.DestPath, &m.VirtualPath, &m.FolderID,
		&deletedAt, &m.DeletedFromPath, &m.DeletedFromFolderID, &m.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}
	return &m, nil
}

func (s *SQLiteStore) CreatePendingMove(m *model.PendingMove) error {
	_, err := s.db.Exec(
		"INSERT INTO pending_moves ("+pendingColumns+") VALUES ("+placeholders(12)+")",
		m.ID, m.AssetID, m.Op, m.SrcPath, m.DestPath, m.VirtualPath, m.FolderID,
		nullableTime(m.DeletedAt), m.DeletedFromPath, m.DeletedFromFolderID, m.CreatedAt,
		nullableTime(m.CompletedAt))
	if err != nil {
		return fmt.Errorf("creating pending move: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeletePendingMove(id string) error {
	if _, err := s.db.Exec("DELETE FROM pending_moves WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting pending move: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPendingMoves() ([]*model.PendingMove, error) {
	rows, err := s.db.Query(
		"SELECT " + pendingColumns + " FROM pending_moves ORDER BY completed_at IS NOT NULL, created_at")
	if err != nil {
		return nil, fmt.Errorf("listing pending moves: %w", err)
	}
	defer rows.Close()

	var moves []*model.PendingMove
	for rows.Next() {
		m, err := scanPendingMove(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pending move row: %w", err)
		}
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending move rows: %w", err)
	}
	return moves, nil
}

// FinalizeMoveBatch marks the given pending moves complete, applies the
// asset updates, and drops album memberships for the given asset ids,
// all in one transaction.
func (s *SQLiteStore) FinalizeMoveBatch(pendingIDs []string, assets []*model.Asset, dropAlbumsFor []string) error {
	if len(pendingIDs) == 0 && len(assets) == 0 && len(dropAlbumsFor) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range pendingIDs {
		if _, err := tx.Exec("UPDATE pending_moves SET completed_at = ? WHERE id = ?", now, id); err != nil {
			return fmt.Errorf("completing pending move %s: %w", id, err)
		}
	}
	for _, a := range assets {
		if err := s.updateAsset(tx, a); err != nil {
			return err
		}
	}
	if len(dropAlbumsFor) > 0 {
		if _, err := tx.Exec(
			"DELETE FROM album_entries WHERE asset_id IN ("+placeholders(len(dropAlbumsFor))+")",
			toArgs(dropAlbumsFor)...); err != nil {
			return fmt.Errorf("dropping album entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate brings the database schema to the latest version.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements the Store interface
var _ library.Store = (*SQLiteStore)(nil)
