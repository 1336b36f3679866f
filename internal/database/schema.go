package database

// Schema is the complete current schema as a single SQL script. It is
// kept in sync with the migration files and exists so tests can stand up
// an in-memory database without running the migration machinery.
const Schema = `
CREATE TABLE folders (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    parent_id TEXT NOT NULL DEFAULT '',
    owner_user_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_folders_parent_id ON folders(parent_id);

CREATE TABLE assets (
    id TEXT PRIMARY KEY,
    file_name TEXT NOT NULL,
    virtual_path TEXT NOT NULL,
    size INTEGER NOT NULL,
    digest TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    captured_at TIMESTAMP NOT NULL,
    modified_at TIMESTAMP NOT NULL,
    scanned_at TIMESTAMP NOT NULL,
    folder_id TEXT NOT NULL REFERENCES folders(id),
    deleted_at TIMESTAMP,
    deleted_from_path TEXT NOT NULL DEFAULT '',
    deleted_from_folder_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_assets_folder_id ON assets(folder_id);
CREATE INDEX idx_assets_deleted_at ON assets(deleted_at);

CREATE TABLE folder_permissions (
    id TEXT PRIMARY KEY,
    folder_id TEXT NOT NULL REFERENCES folders(id),
    user_id TEXT NOT NULL,
    granted_by TEXT NOT NULL,
    can_read BOOLEAN NOT NULL DEFAULT FALSE,
    can_write BOOLEAN NOT NULL DEFAULT FALSE,
    can_delete BOOLEAN NOT NULL DEFAULT FALSE,
    can_manage BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (user_id, folder_id)
);

CREATE TABLE album_entries (
    album_id TEXT NOT NULL,
    asset_id TEXT NOT NULL,
    PRIMARY KEY (album_id, asset_id)
);

CREATE INDEX idx_album_entries_asset_id ON album_entries(asset_id);

CREATE TABLE pending_moves (
    id TEXT PRIMARY KEY,
    asset_id TEXT NOT NULL,
    op TEXT NOT NULL,
    src_path TEXT NOT NULL,
    dest_path TEXT NOT NULL,
    virtual_path TEXT NOT NULL,
    folder_id TEXT NOT NULL,
    deleted_at TIMESTAMP,
    deleted_from_path TEXT NOT NULL DEFAULT '',
    deleted_from_folder_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX idx_pending_moves_asset_id ON pending_moves(asset_id);
`
