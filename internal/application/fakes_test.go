package app

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// fakeScanner отдаёт заранее заданное дерево папок; onScan вызывается в начале Scan
type fakeScanner struct {
	folders  map[string][]string
	order    []string
	progress port.ProgressFunc
	onScan   func()
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{folders: make(map[string][]string)}
}

func (s *fakeScanner) add(folder string, images ...string) *fakeScanner {
	s.order = append(s.order, folder)
	for _, name := range images {
		s.folders[folder] = append(s.folders[folder], filepath.Join(folder, name))
	}
	return s
}

func (s *fakeScanner) SetProgressCallback(fn port.ProgressFunc) {
	s.progress = fn
}

func (s *fakeScanner) Scan(rootPath string, recursive bool) []*entity.FolderResult {
	if s.onScan != nil {
		s.onScan()
	}
	results := make([]*entity.FolderResult, 0, len(s.order))
	total := len(s.order)
	for i, path := range s.order {
		if s.progress != nil {
			s.progress(i, total, path)
		}
		folder := entity.NewFolderResult(path)
		for _, img := range s.folders[path] {
			folder.Images = append(folder.Images, entity.NewImageResult(img))
		}
		folder.UpdateCounts()
		results = append(results, folder)
	}
	if s.progress != nil {
		s.progress(total, total, "")
	}
	return results
}

// fakeCodec не читает диск; пути с "bad" считаются битыми
type fakeCodec struct {
	mu    sync.Mutex
	saved []string
}

func (c *fakeCodec) Load(path string) (image.Image, error) {
	if strings.Contains(path, "bad") {
		return nil, errors.New("corrupt file")
	}
	return image.NewNRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (c *fakeCodec) Annotate(img image.Image, _ []entity.Detection) image.Image {
	return img
}

func (c *fakeCodec) Metadata(path string, _ image.Image, detections []entity.Detection) string {
	return filepath.Base(path) + " ok"
}

func (c *fakeCodec) Save(path string, _ image.Image) error {
	c.mu.Lock()
	c.saved = append(c.saved, path)
	c.mu.Unlock()
	return nil
}

// fakeDetector возвращает perImage детекций на каждое изображение.
// Если gate задан, Detect ждёт его закрытия и сообщает о входе в entered.
type fakeDetector struct {
	loaded   bool
	perImage int
	panics   bool

	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (d *fakeDetector) LoadModel(string, string, string) error { return nil }

func (d *fakeDetector) Detect(ctx context.Context, img image.Image) []entity.Detection {
	if d.panics {
		panic("inference crashed")
	}
	if d.gate != nil {
		d.once.Do(func() { close(d.entered) })
		<-d.gate
	}
	out := make([]entity.Detection, 0, d.perImage)
	for i := 0; i < d.perImage; i++ {
		out = append(out, entity.NewDetection(entity.Box{X: i, Y: i, Width: 2, Height: 2}, 0.9, 0, "person"))
	}
	return out
}

func (d *fakeDetector) SetConfig(entity.DetectionConfig) error { return nil }
func (d *fakeDetector) Config() entity.DetectionConfig         { return entity.DefaultDetectionConfig() }
func (d *fakeDetector) IsLoaded() bool                         { return d.loaded }
func (d *fakeDetector) ModelInfo() string                      { return "fake" }

// eventRecorder собирает события в порядке доставки
type eventRecorder struct {
	mu     sync.Mutex
	events []entity.Event
}

func (r *eventRecorder) OnEvent(e entity.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []entity.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) kinds() []entity.EventKind {
	var out []entity.EventKind
	for _, e := range r.all() {
		out = append(out, e.Kind)
	}
	return out
}

func (r *eventRecorder) count(kind entity.EventKind) int {
	n := 0
	for _, e := range r.all() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// fakeRepository запоминает сохранённые запуски
type fakeRepository struct {
	mu   sync.Mutex
	runs []*entity.Run
}

func (r *fakeRepository) SaveRun(_ context.Context, run *entity.Run) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return int64(len(r.runs)), nil
}

func (r *fakeRepository) GetRun(context.Context, int64) (*entity.Run, error) { return nil, nil }
func (r *fakeRepository) ListRuns(context.Context) ([]*entity.Run, error)    { return nil, nil }

// fakeNotifier запоминает отправленные итоги
type fakeNotifier struct {
	mu   sync.Mutex
	runs []*entity.Run
}

func (n *fakeNotifier) NotifyCompleted(_ context.Context, run *entity.Run) error {
	n.mu.Lock()
	n.runs = append(n.runs, run)
	n.mu.Unlock()
	return nil
}

var (
	_ port.FolderScanner    = (*fakeScanner)(nil)
	_ port.ImageCodec       = (*fakeCodec)(nil)
	_ port.Detector         = (*fakeDetector)(nil)
	_ port.ResultRepository = (*fakeRepository)(nil)
	_ port.RunNotifier      = (*fakeNotifier)(nil)
)
