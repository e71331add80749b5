package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB соединение с SQLite с потокобезопасным доступом
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// OpenSQLite открывает базу и создаёт таблицы, если их нет
func OpenSQLite(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_path TEXT NOT NULL,
		total_folders INTEGER DEFAULT 0,
		processed_folders INTEGER DEFAULT 0,
		total_images INTEGER DEFAULT 0,
		processed_images INTEGER DEFAULT 0,
		total_detections INTEGER DEFAULT 0,
		started_at INTEGER DEFAULT 0,
		finished_at INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		image_count INTEGER DEFAULT 0,
		total_detections INTEGER DEFAULT 0,
		processed INTEGER DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		metadata TEXT DEFAULT '',
		processed INTEGER DEFAULT 0,
		FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		class_id INTEGER NOT NULL,
		class_name TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		FOREIGN KEY (image_id) REFERENCES images(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_folders_run_id ON folders(run_id);
	CREATE INDEX IF NOT EXISTS idx_images_folder_id ON images(folder_id);
	CREATE INDEX IF NOT EXISTS idx_detections_image_id ON detections(image_id);
	CREATE INDEX IF NOT EXISTS idx_detections_class_name ON detections(class_name);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close закрывает соединение
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn возвращает соединение для репозиториев
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Lock()    { db.mu.Lock() }
func (db *DB) Unlock()  { db.mu.Unlock() }
func (db *DB) RLock()   { db.mu.RLock() }
func (db *DB) RUnlock() { db.mu.RUnlock() }
