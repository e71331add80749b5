package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// ErrShutdownTimeout фоновый запуск не остановился за отведённое время
var ErrShutdownTimeout = errors.New("worker did not stop within timeout")

// persistTimeout ограничивает сохранение и уведомление после завершения запуска
const persistTimeout = 30 * time.Second

// eventBuffer размер очереди событий
const eventBuffer = 256

// State состояние воркера
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateProcessing
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// dispatchItem элемент очереди: событие или метка сброса
type dispatchItem struct {
	event entity.Event
	flush chan struct{}
}

// Worker ведёт пакетную обработку в одной фоновой горутине.
// Дерево результатов и статистика меняются только этой горутиной под mu,
// читатели получают копии.
type Worker struct {
	scanner   port.FolderScanner
	processor *ImageProcessor
	repo      port.ResultRepository
	notifier  port.RunNotifier
	logger    *slog.Logger

	mu      sync.RWMutex
	results []*entity.FolderResult
	stats   entity.ProcessingStats

	state      atomic.Int32
	processing atomic.Bool
	cancel     atomic.Bool
	closed     atomic.Bool

	runMu sync.Mutex
	done  chan struct{}

	listenersMu sync.RWMutex
	listeners   []port.EventListener

	events    chan dispatchItem
	stop      chan struct{}
	closeOnce sync.Once
}

// NewWorker создаёт воркер и запускает доставку событий
func NewWorker(scanner port.FolderScanner, processor *ImageProcessor, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		scanner:   scanner,
		processor: processor,
		logger:    logger,
		events:    make(chan dispatchItem, eventBuffer),
		stop:      make(chan struct{}),
	}
	go w.dispatch()
	return w
}

// SetRepository задаёт хранилище завершённых запусков
func (w *Worker) SetRepository(repo port.ResultRepository) {
	w.repo = repo
}

// SetNotifier задаёт получателя итогов запуска
func (w *Worker) SetNotifier(notifier port.RunNotifier) {
	w.notifier = notifier
}

// Subscribe добавляет наблюдателя событий
func (w *Worker) Subscribe(listener port.EventListener) {
	if listener == nil {
		return
	}
	w.listenersMu.Lock()
	w.listeners = append(w.listeners, listener)
	w.listenersMu.Unlock()
}

// StartProcessing запускает обработку rootPath в фоне.
// Возвращает false, если запуск уже идёт или воркер закрыт.
func (w *Worker) StartProcessing(ctx context.Context, rootPath string, detector port.Detector, recursive bool) bool {
	// runMu упорядочивает старт с Close: запуск после закрытия невозможен.
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if w.closed.Load() {
		return false
	}
	if !w.processing.CompareAndSwap(false, true) {
		w.logger.Warn("processing already running, start ignored", "root", rootPath)
		return false
	}

	w.mu.Lock()
	w.results = nil
	w.stats = entity.ProcessingStats{}
	w.stats.Start()
	w.mu.Unlock()

	w.cancel.Store(false)
	w.setState(StateScanning)

	done := make(chan struct{})
	w.done = done

	go w.run(ctx, rootPath, detector, recursive, done)
	return true
}

// RequestCancellation просит текущий запуск остановиться в ближайшей точке проверки.
// Незапущенный воркер не затрагивается.
func (w *Worker) RequestCancellation() {
	if !w.processing.Load() {
		return
	}
	w.cancel.Store(true)
	w.logger.Info("cancellation requested")
}

// IsProcessing сообщает, идёт ли запуск
func (w *Worker) IsProcessing() bool {
	return w.processing.Load()
}

// State текущее состояние
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Results возвращает глубокую копию дерева результатов
func (w *Worker) Results() []*entity.FolderResult {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*entity.FolderResult, len(w.results))
	for i, folder := range w.results {
		out[i] = folder.Clone()
	}
	return out
}

// Stats возвращает копию статистики
func (w *Worker) Stats() entity.ProcessingStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Wait ждёт окончания текущего запуска и доставки всех его событий
func (w *Worker) Wait(ctx context.Context) error {
	w.runMu.Lock()
	done := w.done
	w.runMu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return w.flush(ctx)
}

// Close отменяет запуск и ждёт его завершения не дольше timeout.
// Если горутина не вышла, возвращается ErrShutdownTimeout и горутина брошена.
func (w *Worker) Close(timeout time.Duration) error {
	var err error
	w.closeOnce.Do(func() {
		w.runMu.Lock()
		w.closed.Store(true)
		w.RequestCancellation()
		w.runMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if waitErr := w.Wait(ctx); waitErr != nil {
			w.logger.Error("worker shutdown timed out", "timeout", timeout)
			err = ErrShutdownTimeout
		}
		close(w.stop)
	})
	return err
}

func (w *Worker) run(ctx context.Context, rootPath string, detector port.Detector, recursive bool, done chan struct{}) {
	defer close(done)
	defer w.processing.Store(false)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("processing aborted", "panic", r)
			w.setState(StateError)
			w.emit(entity.ErrorOccurred(fmt.Sprintf("Unexpected error: %v", r)))
		}
	}()

	log := w.logger.With("root", rootPath)

	if detector == nil || !detector.IsLoaded() {
		log.Error("detector not loaded")
		w.setState(StateError)
		w.emit(entity.ErrorOccurred("detector not loaded"))
		return
	}

	log.Info("scanning started", "recursive", recursive)
	folders := w.scan(ctx, rootPath, recursive)

	w.mu.Lock()
	w.results = folders
	w.stats.TotalFolders = len(folders)
	for _, folder := range folders {
		w.stats.TotalImages += folder.ImageCount
	}
	totalImages := w.stats.TotalImages
	w.mu.Unlock()

	w.emit(entity.ProcessingStarted(totalImages))

	if !w.cancelled(ctx) {
		w.setState(StateProcessing)
		log.Info("processing started", "folders", len(folders), "images", totalImages)

		for _, folder := range folders {
			if w.cancelled(ctx) {
				break
			}
			w.processFolder(ctx, detector, rootPath, folder)
		}
	}

	w.mu.Lock()
	w.stats.Finish()
	stats := w.stats
	run := &entity.Run{RootPath: rootPath, Stats: stats, Folders: make([]*entity.FolderResult, len(w.results))}
	for i, folder := range w.results {
		run.Folders[i] = folder.Clone()
	}
	w.mu.Unlock()

	w.setState(StateCompleted)
	log.Info("processing completed", "summary", stats.Summary(), "cancelled", w.cancel.Load())
	w.emit(entity.ProcessingCompleted(stats))

	w.persist(ctx, run)
}

// scan обходит дерево и публикует события обнаружения папок
func (w *Worker) scan(ctx context.Context, rootPath string, recursive bool) []*entity.FolderResult {
	w.scanner.SetProgressCallback(func(current, total int, path string) {
		if current == 0 {
			w.emit(entity.ScanningStarted(total))
		}
		if path != "" && !w.cancelled(ctx) {
			w.emit(entity.FolderScanned(path))
		}
	})
	defer w.scanner.SetProgressCallback(nil)

	return w.scanner.Scan(rootPath, recursive)
}

// processFolder обрабатывает изображения папки по порядку.
// Тяжёлая работа идёт на копии вне блокировки, результат подменяется под mu.
func (w *Worker) processFolder(ctx context.Context, detector port.Detector, rootPath string, folder *entity.FolderResult) {
	w.mu.RLock()
	count := len(folder.Images)
	w.mu.RUnlock()

	for i := 0; i < count; i++ {
		if w.cancelled(ctx) {
			break
		}

		w.mu.RLock()
		work := folder.Images[i].Clone()
		w.mu.RUnlock()

		if err := w.processor.Process(ctx, detector, rootPath, work); err != nil {
			w.logger.Warn("image processing failed", "path", work.Path, "error", err)
			w.emit(entity.ErrorOccurred(fmt.Sprintf("Error processing %s: %v", work.Path, err)))
		}

		w.mu.Lock()
		folder.Images[i] = work
		w.stats.ProcessedImages++
		w.stats.TotalDetections += work.DetectionCount()
		w.mu.Unlock()

		w.emit(entity.ImageProcessed(work.Path, work.DetectionCount()))
	}

	w.mu.Lock()
	folder.UpdateCounts()
	folder.Processed = true
	w.stats.ProcessedFolders++
	name, detections := folder.Name, folder.TotalDetections
	w.mu.Unlock()

	w.logger.Debug("folder completed", "folder", name, "detections", detections)
	w.emit(entity.FolderCompleted(name, detections))
}

// persist сохраняет запуск и рассылает итог; ошибки только логируются
func (w *Worker) persist(ctx context.Context, run *entity.Run) {
	if w.repo == nil && w.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if w.repo != nil {
		id, err := w.repo.SaveRun(ctx, run)
		if err != nil {
			w.logger.Error("failed to save run", "error", err)
		} else {
			run.ID = id
			w.logger.Info("run saved", "id", id)
		}
	}

	if w.notifier != nil {
		if err := w.notifier.NotifyCompleted(ctx, run); err != nil {
			w.logger.Error("failed to send run summary", "error", err)
		}
	}
}

func (w *Worker) cancelled(ctx context.Context) bool {
	if w.cancel.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		w.cancel.Store(true)
		return true
	default:
		return false
	}
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

// emit ставит событие в очередь; после Close события отбрасываются
func (w *Worker) emit(event entity.Event) {
	select {
	case w.events <- dispatchItem{event: event}:
	case <-w.stop:
	}
}

// flush ждёт доставки всех событий, поставленных до вызова
func (w *Worker) flush(ctx context.Context) error {
	marker := make(chan struct{})
	select {
	case w.events <- dispatchItem{flush: marker}:
	case <-w.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch доставляет события наблюдателям в порядке их появления
func (w *Worker) dispatch() {
	for {
		select {
		case item := <-w.events:
			if item.flush != nil {
				close(item.flush)
				continue
			}
			w.deliver(item.event)
		case <-w.stop:
			return
		}
	}
}

func (w *Worker) deliver(event entity.Event) {
	w.listenersMu.RLock()
	listeners := make([]port.EventListener, len(w.listeners))
	copy(listeners, w.listeners)
	w.listenersMu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("event listener panicked", "event", event.Kind, "panic", r)
				}
			}()
			listener.OnEvent(event)
		}()
	}
}
