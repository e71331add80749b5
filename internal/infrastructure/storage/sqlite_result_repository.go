package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// SQLiteResultRepository хранит завершённые запуски в SQLite
type SQLiteResultRepository struct {
	db     *DB
	logger *slog.Logger
}

// NewSQLiteResultRepository создаёт репозиторий поверх открытой базы
func NewSQLiteResultRepository(db *DB, logger *slog.Logger) *SQLiteResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteResultRepository{db: db, logger: logger}
}

// SaveRun записывает запуск со всеми папками, изображениями и детекциями одной транзакцией
func (r *SQLiteResultRepository) SaveRun(ctx context.Context, run *entity.Run) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	s := run.Stats
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (root_path, total_folders, processed_folders, total_images, processed_images,
			total_detections, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RootPath, s.TotalFolders, s.ProcessedFolders, s.TotalImages, s.ProcessedImages,
		s.TotalDetections, toUnixNano(s.StartedAt), toUnixNano(s.FinishedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	imageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO images (folder_id, position, path, metadata, processed) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer imageStmt.Close()

	detStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detections (image_id, position, class_id, class_name, confidence, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer detStmt.Close()

	for fi, folder := range run.Folders {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO folders (run_id, position, path, name, image_count, total_detections, processed)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, fi, folder.Path, folder.Name, folder.ImageCount, folder.TotalDetections, folder.Processed)
		if err != nil {
			return 0, fmt.Errorf("failed to insert folder: %w", err)
		}
		folderID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}

		for ii, img := range folder.Images {
			res, err := imageStmt.ExecContext(ctx, folderID, ii, img.Path, img.Metadata, img.Processed)
			if err != nil {
				return 0, fmt.Errorf("failed to insert image: %w", err)
			}
			imageID, err := res.LastInsertId()
			if err != nil {
				return 0, err
			}

			for di, det := range img.Detections {
				if _, err := detStmt.ExecContext(ctx, imageID, di, det.ClassID, det.ClassName, det.Confidence,
					det.Box.X, det.Box.Y, det.Box.Width, det.Box.Height); err != nil {
					return 0, fmt.Errorf("failed to insert detection: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	r.logger.Debug("run stored", "id", runID, "folders", len(run.Folders))
	return runID, nil
}

// GetRun читает запуск со всеми папками и детекциями.
// Буферы изображений не хранятся и остаются пустыми.
func (r *SQLiteResultRepository) GetRun(ctx context.Context, id int64) (*entity.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, root_path, total_folders, processed_folders, total_images, processed_images,
			total_detections, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	folders, folderIndex, err := r.loadFolders(ctx, id)
	if err != nil {
		return nil, err
	}
	imageIndex, err := r.loadImages(ctx, id, folderIndex)
	if err != nil {
		return nil, err
	}
	if err := r.loadDetections(ctx, id, imageIndex); err != nil {
		return nil, err
	}

	run.Folders = folders
	return run, nil
}

// ListRuns возвращает запуски без папок, новые первыми
func (r *SQLiteResultRepository) ListRuns(ctx context.Context) ([]*entity.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, root_path, total_folders, processed_folders, total_images, processed_images,
			total_detections, started_at, finished_at
		FROM runs ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*entity.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *SQLiteResultRepository) loadFolders(ctx context.Context, runID int64) ([]*entity.FolderResult, map[int64]*entity.FolderResult, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, path, name, image_count, total_detections, processed
		FROM folders WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	folders := make([]*entity.FolderResult, 0)
	index := make(map[int64]*entity.FolderResult)
	for rows.Next() {
		var id int64
		folder := &entity.FolderResult{}
		if err := rows.Scan(&id, &folder.Path, &folder.Name, &folder.ImageCount, &folder.TotalDetections, &folder.Processed); err != nil {
			return nil, nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
		index[id] = folder
	}

	return folders, index, rows.Err()
}

func (r *SQLiteResultRepository) loadImages(ctx context.Context, runID int64, folders map[int64]*entity.FolderResult) (map[int64]*entity.ImageResult, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT i.id, i.folder_id, i.path, i.metadata, i.processed
		FROM images i JOIN folders f ON f.id = i.folder_id
		WHERE f.run_id = ? ORDER BY f.position, i.position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	index := make(map[int64]*entity.ImageResult)
	for rows.Next() {
		var id, folderID int64
		img := &entity.ImageResult{}
		if err := rows.Scan(&id, &folderID, &img.Path, &img.Metadata, &img.Processed); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		if folder, ok := folders[folderID]; ok {
			folder.Images = append(folder.Images, img)
		}
		index[id] = img
	}

	return index, rows.Err()
}

func (r *SQLiteResultRepository) loadDetections(ctx context.Context, runID int64, images map[int64]*entity.ImageResult) error {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT d.image_id, d.class_id, d.class_name, d.confidence, d.x, d.y, d.width, d.height
		FROM detections d
		JOIN images i ON i.id = d.image_id
		JOIN folders f ON f.id = i.folder_id
		WHERE f.run_id = ? ORDER BY d.image_id, d.position
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var imageID int64
		var det entity.Detection
		if err := rows.Scan(&imageID, &det.ClassID, &det.ClassName, &det.Confidence,
			&det.Box.X, &det.Box.Y, &det.Box.Width, &det.Box.Height); err != nil {
			return fmt.Errorf("failed to scan detection: %w", err)
		}
		if img, ok := images[imageID]; ok {
			img.Detections = append(img.Detections, det)
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*entity.Run, error) {
	var run entity.Run
	var started, finished int64
	s := &run.Stats
	if err := row.Scan(&run.ID, &run.RootPath, &s.TotalFolders, &s.ProcessedFolders, &s.TotalImages,
		&s.ProcessedImages, &s.TotalDetections, &started, &finished); err != nil {
		return nil, err
	}
	s.StartedAt = fromUnixNano(started)
	s.FinishedAt = fromUnixNano(finished)
	return &run, nil
}

// toUnixNano хранит нулевое время как 0
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Проверка реализации интерфейса
var _ port.ResultRepository = (*SQLiteResultRepository)(nil)
