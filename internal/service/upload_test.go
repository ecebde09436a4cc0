package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend/stub"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

func redCapeForm() model.ItemForm {
	return model.ItemForm{
		Title:       "  Red Cape ",
		Category:    "Texture",
		Character:   "Shogun",
		Tags:        model.ParseTags("red, cape, , cloth"),
		Description: "",
	}
}

func newWorkflow(e *env) *UploadWorkflow {
	w := NewUploadWorkflow(e.be.Client(), e.catalog, DefaultUploadLimits, slog.Default())
	w.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return w
}

func TestUploadWorkflow_AddItem(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEnv(t)
	w := newWorkflow(e)

	item, err := w.AddItem(context.Background(), e.guard, redCapeForm(), previewFile(t), payloadFile(1000))
	if err != nil {
		t.Fatalf("AddItem ошибка: %v", err)
	}

	if item.ID == "" {
		t.Error("ID записи пуст")
	}
	if item.Title != "Red Cape" || item.Category != "texture" {
		t.Errorf("Title/Category: %q / %q", item.Title, item.Category)
	}
	if item.CharacterValue() != "shogun" {
		t.Errorf("Character = %q, ожидался shogun", item.CharacterValue())
	}
	if item.Description != nil {
		t.Errorf("Description = %q, ожидался nil", *item.Description)
	}
	if strings.Join(item.Tags, "|") != "red|cape|cloth" {
		t.Errorf("Tags = %v", item.Tags)
	}
	if item.FileSize != 1000 || item.FileName != "cape.zip" {
		t.Errorf("FileSize/FileName: %d / %q", item.FileSize, item.FileName)
	}
	if item.CreatedAt != 1700000000000 || item.UpdatedAt != item.CreatedAt {
		t.Errorf("CreatedAt/UpdatedAt: %d / %d", item.CreatedAt, item.UpdatedAt)
	}

	blobs := e.be.Blobs()
	if _, ok := blobs["previews/1700000000000_cape.png"]; !ok {
		t.Errorf("превью не загружено, объекты: %v", blobs)
	}
	if b, ok := blobs["files/1700000000000_cape.zip"]; !ok || len(b.Data) != 1000 {
		t.Errorf("файл не загружен, объекты: %v", blobs)
	}
	if item.PreviewURL != "stub://blobs/previews/1700000000000_cape.png" {
		t.Errorf("PreviewURL = %q", item.PreviewURL)
	}

	if got, ok := e.catalog.Get(item.ID); !ok || got.Title != "Red Cape" {
		t.Error("запись отсутствует в каталоге после загрузки")
	}
	if e.catalog.Count() != 1 {
		t.Errorf("Count() = %d, ожидалось 1", e.catalog.Count())
	}
}

func TestUploadWorkflow_ProgressMonotonic(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEnv(t)
	e.be.ChunkSize = 16 * 1024
	w := newWorkflow(e)

	task, err := w.Start(context.Background(), e.guard, redCapeForm(), previewFile(t), payloadFile(200*1024))
	if err != nil {
		t.Fatalf("Start ошибка: %v", err)
	}

	var events []Progress
	for p := range task.Events() {
		events = append(events, p)
	}
	if len(events) == 0 {
		t.Fatal("нет событий прогресса")
	}

	seen := map[int]bool{}
	for i, p := range events {
		seen[p.Percent] = true
		if i > 0 && p.Percent < events[i-1].Percent {
			t.Errorf("прогресс убывает: %d после %d", p.Percent, events[i-1].Percent)
		}
	}
	for _, want := range []int{0, 40, 80, 100} {
		if !seen[want] {
			t.Errorf("нет события %d%%, события: %v", want, events)
		}
	}
	last := events[len(events)-1]
	if last.Stage != StageDone || last.Message != "Upload complete!" {
		t.Errorf("последнее событие %+v", last)
	}

	snap := task.Snapshot()
	if snap.State != TaskSucceeded || snap.Item == nil || snap.Progress.Percent != 100 {
		t.Errorf("снимок задачи: %+v", snap)
	}
}

func TestUploadWorkflow_ValidationBeforeNetwork(t *testing.T) {
	gif := &FileUpload{Name: "p.gif", ContentType: "image/gif", Data: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")}

	tests := []struct {
		name    string
		form    func(*model.ItemForm)
		preview func(t *testing.T) *FileUpload
		payload *FileUpload
		field   string
	}{
		{name: "пустое название", form: func(f *model.ItemForm) { f.Title = "   " }, field: "title"},
		{name: "нет категории", form: func(f *model.ItemForm) { f.Category = "" }, field: "category"},
		{name: "неизвестная категория", form: func(f *model.ItemForm) { f.Category = "sound" }, field: "category"},
		{name: "неизвестный персонаж", form: func(f *model.ItemForm) { f.Character = "ryu" }, field: "character"},
		{name: "нет превью", preview: func(*testing.T) *FileUpload { return nil }, field: "preview"},
		{name: "нет файла", payload: &FileUpload{Name: "x.zip"}, field: "file"},
		{name: "GIF-превью", preview: func(*testing.T) *FileUpload { return gif }, field: "preview"},
		{
			name: "превью больше 2 MiB",
			preview: func(t *testing.T) *FileUpload {
				data := append(pngBytes(t), make([]byte, model.PreviewMaxBytes)...)
				return &FileUpload{Name: "p.png", ContentType: "image/png", Data: data}
			},
			field: "preview",
		},
		{
			name:    "заявлен неверный тип превью",
			preview: func(t *testing.T) *FileUpload { return &FileUpload{Name: "p.png", ContentType: "text/plain", Data: pngBytes(t)} },
			field:   "preview",
		},
		{
			name:    "повреждённое PNG",
			preview: func(t *testing.T) *FileUpload { return &FileUpload{Name: "p.png", Data: pngBytes(t)[:40]} },
			field:   "preview",
		},
		{name: "файл больше 5 MiB", payload: payloadFile(int(model.PayloadMaxBytes) + 1), field: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			w := newWorkflow(e)

			form := redCapeForm()
			if tt.form != nil {
				tt.form(&form)
			}
			preview := previewFile(t)
			if tt.preview != nil {
				preview = tt.preview(t)
			}
			payload := payloadFile(10)
			if tt.payload != nil {
				payload = tt.payload
			}

			_, err := w.AddItem(context.Background(), e.guard, form, preview, payload)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ошибка = %v, ожидалась ErrValidation", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("поле ошибки = %+v, ожидалось %s", ve, tt.field)
			}
			if n := e.be.WriteCalls(); n != 0 {
				t.Errorf("пишущих вызовов бэкенда: %d, ожидалось 0", n)
			}
		})
	}
}

func TestUploadWorkflow_RequiresSession(t *testing.T) {
	e := newEnv(t)
	e.guard.Invalidate()
	w := newWorkflow(e)

	_, err := w.AddItem(context.Background(), e.guard, redCapeForm(), previewFile(t), payloadFile(10))
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("ошибка = %v, ожидалась ErrAuth", err)
	}
	if n := e.be.WriteCalls(); n != 0 {
		t.Errorf("пишущих вызовов бэкенда: %d, ожидалось 0", n)
	}
}

func TestUploadWorkflow_StepFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(be *stub.Backend)
		wantBlobs int
		wantItems int
	}{
		{
			name:  "сбой загрузки превью",
			setup: func(be *stub.Backend) { be.Fail(stub.OpUpload, errors.New("503")) },
		},
		{
			name: "сбой загрузки файла",
			setup: func(be *stub.Backend) {
				// Ошибка подставляется после загрузки превью и срабатывает на следующем объекте
				be.BeforeUpload = func(path string) {
					if strings.HasPrefix(path, model.PreviewsFolder+"/") {
						be.Fail(stub.OpUpload, errors.New("503"))
					}
				}
			},
			wantBlobs: 1,
		},
		{
			name:      "сбой создания записи",
			setup:     func(be *stub.Backend) { be.Fail(stub.OpCreate, errors.New("permission denied")) },
			wantBlobs: 2,
		},
		{
			name:      "сбой обновления каталога",
			setup:     func(be *stub.Backend) { be.Fail(stub.OpList, errors.New("timeout")) },
			wantBlobs: 2,
			wantItems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			tt.setup(e.be)
			w := newWorkflow(e)

			task, err := w.Start(context.Background(), e.guard, redCapeForm(), previewFile(t), payloadFile(10))
			if err != nil {
				t.Fatalf("Start ошибка: %v", err)
			}
			_, err = task.Wait(context.Background())
			if !errors.Is(err, ErrNetwork) {
				t.Fatalf("ошибка = %v, ожидалась ErrNetwork", err)
			}
			if s := task.Snapshot(); s.State != TaskFailed || s.Item != nil {
				t.Errorf("снимок задачи: %+v", s)
			}

			// Загруженные до сбоя объекты остаются в хранилище
			if n := len(e.be.Blobs()); n != tt.wantBlobs {
				t.Errorf("объектов в хранилище: %d, ожидалось %d", n, tt.wantBlobs)
			}
			e.be.Fail(stub.OpList, nil)
			items, err := e.be.ListItems(context.Background())
			if err != nil {
				t.Fatalf("ListItems ошибка: %v", err)
			}
			if len(items) != tt.wantItems {
				t.Errorf("записей в бэкенде: %d, ожидалось %d", len(items), tt.wantItems)
			}
		})
	}
}

func TestUploadWorkflow_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEnv(t)
	started := make(chan struct{})
	release := make(chan struct{})
	e.be.BeforeUpload = func(path string) {
		if strings.HasPrefix(path, model.FilesFolder+"/") {
			close(started)
			<-release
		}
	}
	w := newWorkflow(e)

	task, err := w.Start(context.Background(), e.guard, redCapeForm(), previewFile(t), payloadFile(10))
	if err != nil {
		t.Fatalf("Start ошибка: %v", err)
	}

	<-started
	task.Cancel()
	close(release)

	_, err = task.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ошибка = %v, ожидалась context.Canceled", err)
	}
	if s := task.Snapshot(); s.State != TaskCancelled {
		t.Errorf("состояние %s, ожидалось cancelled", s.State)
	}
	if e.be.Calls(stub.OpCreate) != 0 {
		t.Error("запись создана после отмены")
	}
	if len(e.be.Blobs()) != 1 {
		t.Errorf("превью должно остаться в хранилище, объектов: %d", len(e.be.Blobs()))
	}
}

func TestUploadTask_SubscribeLate(t *testing.T) {
	e := newEnv(t)
	w := newWorkflow(e)

	task, err := w.Start(context.Background(), e.guard, redCapeForm(), previewFile(t), payloadFile(10))
	if err != nil {
		t.Fatalf("Start ошибка: %v", err)
	}
	if _, err := task.Wait(context.Background()); err != nil {
		t.Fatalf("Wait ошибка: %v", err)
	}

	var got []Progress
	for p := range task.Subscribe() {
		got = append(got, p)
	}
	if len(got) != 1 || got[0].Percent != 100 {
		t.Errorf("поздняя подписка: %v, ожидалось одно событие 100%%", got)
	}
}

func TestUploadTask_ReportClamps(t *testing.T) {
	task := newUploadTask("t", func() {})
	task.report(StagePreview, 30, msgPreview)
	task.report(StagePreview, 10, msgPreview)
	task.report(StagePreview, 10, msgPreview)
	task.report(StageDone, 150, msgDone)
	task.finish(TaskSucceeded, &model.ItemRecord{}, nil)

	var got []int
	for p := range task.Events() {
		got = append(got, p.Percent)
	}
	want := []int{30, 100}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("события %v, ожидалось %v", got, want)
	}
}

func TestSafeFileName(t *testing.T) {
	tests := map[string]string{
		"cape.zip":         "cape.zip",
		"../../etc/passwd": "passwd",
		`C:\mods\cape.png`: "cape.png",
		"":                 "file",
		"dir/":             "dir",
		"/":                "file",
	}
	for in, want := range tests {
		if got := safeFileName(in); got != want {
			t.Errorf("safeFileName(%q) = %q, ожидалось %q", in, got, want)
		}
	}
}

func TestUploadTracker(t *testing.T) {
	tracker := NewUploadTracker(2, time.Minute)

	var cancelled bool
	a := newUploadTask("a", func() { cancelled = true })
	tracker.Add(a)
	tracker.Add(newUploadTask("b", func() {}))
	tracker.Add(newUploadTask("c", func() {}))

	if tracker.Len() != 2 {
		t.Errorf("Len() = %d, ожидалось 2", tracker.Len())
	}
	if _, ok := tracker.Get("a"); ok {
		t.Error("старейшая задача не вытеснена")
	}
	if !tracker.Cancel("c") {
		t.Error("Cancel(c) = false")
	}
	if tracker.Cancel("missing") {
		t.Error("Cancel(missing) = true")
	}
	if cancelled {
		t.Error("вытесненная задача не должна отменяться")
	}
}
