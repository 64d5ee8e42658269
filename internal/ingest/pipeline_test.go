package ingest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fileslink/internal/ingest"
	"fileslink/internal/metadata"
	"fileslink/internal/queue"
	"fileslink/internal/retry"
	"fileslink/internal/services"
	"fileslink/internal/telegram"
	"fileslink/internal/testsupport"
)

const fixedID = "AbCdEfGh"

type sentMedia struct {
	chatID  int64
	kind    telegram.MediaKind
	fileID  string
	caption string
}

type uploaded struct {
	chatID   int64
	fileName string
	data     []byte
	caption  string
}

type fakePlatform struct {
	mu        sync.Mutex
	edits     []string
	editErrs  []error
	sent      []sentMedia
	uploads   []uploaded
	sendErr   error
	uploadErr error
}

func (f *fakePlatform) EditMessageText(_ context.Context, _, _ int64, text string, _ telegram.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	if len(f.editErrs) > 0 {
		err := f.editErrs[0]
		f.editErrs = f.editErrs[1:]
		return err
	}
	return nil
}

func (f *fakePlatform) SendMedia(_ context.Context, chatID int64, kind telegram.MediaKind, fileID, caption string) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMedia{chatID: chatID, kind: kind, fileID: fileID, caption: caption})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	msg := &telegram.Message{MessageID: 555}
	stored := "stored-" + fileID
	switch kind {
	case telegram.MediaDocument:
		msg.Document = &telegram.Document{FileID: stored}
	case telegram.MediaPhoto:
		msg.Photo = []telegram.PhotoSize{{FileID: "small"}, {FileID: stored}}
	case telegram.MediaVideo:
		msg.Video = &telegram.Video{FileID: stored}
	case telegram.MediaAnimation:
		msg.Animation = &telegram.Animation{FileID: stored}
	}
	return msg, nil
}

func (f *fakePlatform) UploadDocument(_ context.Context, chatID int64, fileName string, data []byte, caption string) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, uploaded{chatID: chatID, fileName: fileName, data: append([]byte(nil), data...), caption: caption})
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &telegram.Message{MessageID: 777, Document: &telegram.Document{FileID: "uploaded-doc"}}, nil
}

func (f *fakePlatform) editTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.edits...)
}

type failingWriter struct{}

func (failingWriter) Put(metadata.Artifact) error {
	return services.Wrap(services.ErrStorageCommit, "metadata", "put", "disk full", nil)
}

func newPipeline(t *testing.T, platform *fakePlatform, store ingest.ArtifactWriter, opts ...ingest.Option) *ingest.Pipeline {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	base := []ingest.Option{
		ingest.WithIDGenerator(func() (string, error) { return fixedID, nil }),
		ingest.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }),
		ingest.WithStatusRetry(retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, Sleeper: func(time.Duration) {}}),
	}
	return ingest.New(cfg, platform, store, append(base, opts...)...)
}

func newStore(t *testing.T) *metadata.Store {
	t.Helper()
	return metadata.New(filepath.Join(t.TempDir(), "file_mappings.json"))
}

func mediaJob(t *testing.T, media queue.MediaSource, name string) *queue.Job {
	t.Helper()
	job, err := queue.NewMediaJob(queue.Handle{ChatID: 10, MessageID: 1}, queue.Handle{ChatID: 10, MessageID: 2}, media, name)
	if err != nil {
		t.Fatalf("NewMediaJob: %v", err)
	}
	return job
}

func urlJob(t *testing.T, rawURL, name string) *queue.Job {
	t.Helper()
	job, err := queue.NewURLJob(queue.Handle{ChatID: 10, MessageID: 1}, queue.Handle{ChatID: 10, MessageID: 2}, rawURL, name)
	if err != nil {
		t.Fatalf("NewURLJob: %v", err)
	}
	return job
}

func TestIngestDocumentProducesEncodedLink(t *testing.T) {
	platform := &fakePlatform{}
	store := newStore(t)
	p := newPipeline(t, platform, store)

	job := mediaJob(t, queue.MediaSource{
		Kind:     telegram.MediaDocument,
		FileID:   "orig-doc",
		FileName: "My File Name.pdf",
		MimeType: "application/pdf",
		FileSize: 2048,
	}, "")

	link, err := p.Ingest(context.Background(), job)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if link.UniqueID != fixedID {
		t.Fatalf("unique id = %q", link.UniqueID)
	}
	wantURL := "https://files.test/files/" + fixedID + "_My_File_Name.pdf"
	if link.URL != wantURL {
		t.Fatalf("link = %q, want %q", link.URL, wantURL)
	}

	if len(platform.sent) != 1 {
		t.Fatalf("expected one copy, got %d", len(platform.sent))
	}
	sent := platform.sent[0]
	if sent.chatID != testsupport.StorageChannelID || sent.caption != fixedID || sent.fileID != "orig-doc" {
		t.Fatalf("unexpected copy: %#v", sent)
	}

	got, ok := store.Get(fixedID)
	if !ok {
		t.Fatal("artifact not committed")
	}
	want := metadata.Artifact{
		UniqueID:       fixedID,
		TelegramFileID: "stored-orig-doc",
		FileName:       "My File Name.pdf",
		MimeType:       "application/pdf",
		FileSize:       2048,
		UploadedAt:     1_700_000_000,
		MessageID:      555,
	}
	if got != want {
		t.Fatalf("artifact = %#v, want %#v", got, want)
	}

	edits := platform.editTexts()
	if len(edits) != 2 || edits[0] != "Processing file..." {
		t.Fatalf("unexpected status edits: %q", edits)
	}
	for _, fragment := range []string{"File uploaded successfully", "My File Name.pdf", "2.0 KiB", wantURL} {
		if !strings.Contains(edits[1], fragment) {
			t.Fatalf("success message %q missing %q", edits[1], fragment)
		}
	}
}

func TestIngestURLFallsBackToPathSegment(t *testing.T) {
	body := testsupport.Payload(300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dir/report.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	defer server.Close()

	platform := &fakePlatform{}
	store := newStore(t)
	p := newPipeline(t, platform, store, ingest.WithHTTPClient(server.Client()))

	link, err := p.Ingest(context.Background(), urlJob(t, server.URL+"/dir/report.pdf?token=abc", ""))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if link.FileName != "report.pdf" {
		t.Fatalf("file name = %q, want report.pdf", link.FileName)
	}
	if len(platform.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(platform.uploads))
	}
	up := platform.uploads[0]
	if up.fileName != "report.pdf" || up.caption != fixedID || string(up.data) != string(body) {
		t.Fatalf("unexpected upload: name=%q caption=%q len=%d", up.fileName, up.caption, len(up.data))
	}
	got, _ := store.Get(fixedID)
	if got.FileSize != int64(len(body)) || got.MimeType != "application/pdf" || got.TelegramFileID != "uploaded-doc" || got.MessageID != 777 {
		t.Fatalf("unexpected artifact: %#v", got)
	}
}

func TestIngestURLPrefersContentDisposition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Quarterly Report.xlsx"`)
		_, _ = w.Write([]byte("spreadsheet"))
	}))
	defer server.Close()

	platform := &fakePlatform{}
	p := newPipeline(t, platform, newStore(t), ingest.WithHTTPClient(server.Client()))

	link, err := p.Ingest(context.Background(), urlJob(t, server.URL+"/download?id=7", ""))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if link.FileName != "Quarterly Report.xlsx" {
		t.Fatalf("file name = %q", link.FileName)
	}
	if !strings.HasSuffix(link.URL, fixedID+"_Quarterly_Report.xlsx") {
		t.Fatalf("link = %q", link.URL)
	}
}

func TestIngestURLSourceResolutionFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty.bin":
			w.WriteHeader(http.StatusOK)
		case "/":
			_, _ = w.Write([]byte("index"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cases := []struct {
		name   string
		path   string
		reason string
	}{
		{name: "empty body", path: "/empty.bin", reason: "remote file is empty"},
		{name: "no usable name", path: "/", reason: "could not determine file name"},
		{name: "missing resource", path: "/missing.pdf", reason: "remote server returned 404 Not Found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			platform := &fakePlatform{}
			store := newStore(t)
			p := newPipeline(t, platform, store, ingest.WithHTTPClient(server.Client()))

			_, err := p.Ingest(context.Background(), urlJob(t, server.URL+tc.path, ""))
			if !errors.Is(err, services.ErrSourceResolution) {
				t.Fatalf("expected source resolution error, got %v", err)
			}
			if store.Len() != 0 {
				t.Fatal("nothing should be committed")
			}
			if len(platform.uploads) != 0 {
				t.Fatal("nothing should be uploaded")
			}
			edits := platform.editTexts()
			if len(edits) != 2 || !strings.HasPrefix(edits[1], "❌ Failed to process file") {
				t.Fatalf("expected failure report, got %q", edits)
			}
			if !strings.HasSuffix(edits[1], "\n\n"+tc.reason) {
				t.Fatalf("expected reason %q in report, got %q", tc.reason, edits[1])
			}
			for _, internal := range []string{"ingest:", "download:", "source resolution failed"} {
				if strings.Contains(edits[1], internal) {
					t.Fatalf("report leaks %q: %q", internal, edits[1])
				}
			}
		})
	}
}

func TestIngestStorageCommitFailureIsReported(t *testing.T) {
	platform := &fakePlatform{}
	p := newPipeline(t, platform, failingWriter{})

	_, err := p.Ingest(context.Background(), mediaJob(t, queue.MediaSource{Kind: telegram.MediaPhoto, FileID: "ph"}, ""))
	if !errors.Is(err, services.ErrStorageCommit) {
		t.Fatalf("expected storage commit error, got %v", err)
	}
	edits := platform.editTexts()
	if len(edits) != 2 || !strings.Contains(edits[1], "could not be saved") {
		t.Fatalf("unexpected edits: %q", edits)
	}
}

func TestIngestPlatformCopyFailure(t *testing.T) {
	platform := &fakePlatform{sendErr: errors.New("Bad Request: wrong file identifier")}
	store := newStore(t)
	p := newPipeline(t, platform, store)

	_, err := p.Ingest(context.Background(), mediaJob(t, queue.MediaSource{Kind: telegram.MediaVideo, FileID: "vid"}, ""))
	if err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 0 {
		t.Fatal("failed copy must not commit metadata")
	}
}

func TestStatusEditRetriesWithDoublingDelay(t *testing.T) {
	transient := errors.New("telegram: 502 bad gateway")
	platform := &fakePlatform{editErrs: []error{transient, transient}}
	var delays []time.Duration
	p := newPipeline(t, platform, newStore(t), ingest.WithStatusRetry(retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleeper:     func(d time.Duration) { delays = append(delays, d) },
	}))

	if _, err := p.Ingest(context.Background(), mediaJob(t, queue.MediaSource{Kind: telegram.MediaDocument, FileID: "d", FileName: "a.txt"}, "")); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("unexpected delays: %v", delays)
	}
	edits := platform.editTexts()
	if len(edits) != 4 {
		t.Fatalf("expected 3 progress attempts plus success, got %q", edits)
	}
}

func TestStatusEditExhaustionIsNonFatal(t *testing.T) {
	down := errors.New("network down")
	platform := &fakePlatform{editErrs: []error{down, down, down}}
	store := newStore(t)
	p := newPipeline(t, platform, store)

	if _, err := p.Ingest(context.Background(), mediaJob(t, queue.MediaSource{Kind: telegram.MediaDocument, FileID: "d", FileName: "notes.txt"}, "")); err != nil {
		t.Fatalf("Ingest should succeed when status edits fail: %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("artifact should be committed")
	}
}
