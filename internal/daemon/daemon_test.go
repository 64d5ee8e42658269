package daemon_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fileslink/internal/bot"
	"fileslink/internal/daemon"
	"fileslink/internal/ingest"
	"fileslink/internal/linkcodec"
	"fileslink/internal/metadata"
	"fileslink/internal/metrics"
	"fileslink/internal/queue"
	"fileslink/internal/retrieval"
	"fileslink/internal/retry"
	"fileslink/internal/telegram"
	"fileslink/internal/testsupport"
)

const testToken = "123456:test-token"

// fakeBotAPI serves the Bot API methods a full ingest and download cycle
// touches. The first getUpdates call delivers one document message.
type fakeBotAPI struct {
	t       *testing.T
	payload []byte

	mu      sync.Mutex
	polls   int
	edits   []string
	stored  map[string]any
	replies []string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/bot"+testToken+"/") {
		_, _ = w.Write(f.payload)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch method {
	case "setMyCommands", "editMessageText":
		if text, ok := body["text"].(string); ok {
			f.edits = append(f.edits, text)
		}
		writeResult(w, true)
	case "getUpdates":
		f.polls++
		if f.polls == 1 {
			writeResult(w, []telegram.Update{{
				UpdateID: 5,
				Message: &telegram.Message{
					MessageID: 10,
					From:      &telegram.User{ID: 7},
					Chat:      telegram.Chat{ID: 100},
					Document:  &telegram.Document{FileID: "user-doc", FileName: "My File Name.pdf", MimeType: "application/pdf", FileSize: int64(len(f.payload))},
				},
			}})
			return
		}
		f.mu.Unlock()
		select {
		case <-r.Context().Done():
		case <-time.After(50 * time.Millisecond):
		}
		f.mu.Lock()
		writeResult(w, []telegram.Update{})
	case "sendMessage":
		f.replies = append(f.replies, body["text"].(string))
		writeResult(w, telegram.Message{MessageID: 77, Chat: telegram.Chat{ID: 100}})
	case "sendDocument":
		f.stored = body
		writeResult(w, telegram.Message{
			MessageID: 4242,
			Chat:      telegram.Chat{ID: testsupport.StorageChannelID},
			Document:  &telegram.Document{FileID: "stored-doc", FileName: "My File Name.pdf"},
		})
	case "getFile":
		writeResult(w, telegram.File{FileID: "stored-doc", FilePath: "documents/file_1.pdf"})
	default:
		f.t.Errorf("unexpected bot api method %q", method)
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

type finishedObserver struct {
	queue.NopObserver
	done chan queue.Result
}

func (o finishedObserver) JobFinished(_ context.Context, result queue.Result) {
	o.done <- result
}

type stack struct {
	daemon   *daemon.Daemon
	files    *metadata.Store
	finished chan queue.Result
}

func newStack(t *testing.T, api *httptest.Server) stack {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithTelegramAPI(api.URL),
		testsupport.WithAllowAll(),
		testsupport.WithMetrics(true),
	)
	client, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.APIURL)
	if err != nil {
		t.Fatalf("telegram.New: %v", err)
	}
	files := metadata.New(cfg.MirrorPath())
	prom := metrics.NewProm()
	pipeline := ingest.New(cfg, client, files, ingest.WithStatusRetry(retry.Policy{MaxAttempts: 1}))
	finished := make(chan queue.Result, 4)
	manager := queue.NewManager(pipeline, client, queue.Options{
		Observer: queue.Observers(prom, finishedObserver{done: finished}),
	})
	d, err := daemon.New(cfg, nil, daemon.Components{
		Files:     files,
		Queue:     manager,
		Bot:       bot.New(cfg, client, manager, files, nil),
		Retrieval: retrieval.New(cfg, client, nil, files),
		Metrics:   prom,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return stack{daemon: d, files: files, finished: finished}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestDocumentRoundTrip(t *testing.T) {
	fake := &fakeBotAPI{t: t, payload: testsupport.Payload(2048)}
	api := httptest.NewServer(fake)
	defer api.Close()

	s := newStack(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case result := <-s.finished:
		if result.Err != nil {
			t.Fatalf("ingest failed: %v", result.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("document was never stored")
	}
	artifact := s.files.List()[0]
	if artifact.FileName != "My File Name.pdf" || artifact.MessageID != 4242 || artifact.TelegramFileID != "stored-doc" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}

	fake.mu.Lock()
	replies := append([]string(nil), fake.replies...)
	caption := fake.stored["caption"]
	fake.mu.Unlock()
	if len(replies) != 1 || replies[0] != "Added to queue. Position: 1" {
		t.Fatalf("unexpected replies %v", replies)
	}
	if caption != artifact.UniqueID {
		t.Fatalf("storage caption = %v, want %s", caption, artifact.UniqueID)
	}

	base := "http://" + s.daemon.Addr()
	resp, body := get(t, base+"/files/"+linkcodec.Encode(artifact.UniqueID, artifact.FileName))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body %q", resp.StatusCode, body)
	}
	if body != string(fake.payload) {
		t.Fatalf("body mismatch: got %d bytes", len(body))
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="My File Name.pdf"` {
		t.Fatalf("disposition = %q", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("nosniff header = %q", got)
	}

	resp, body = get(t, base+"/files/"+artifact.UniqueID+"_anything.txt?dl=1")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("dl mode: status %d type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, body = get(t, base+"/files/zzzzzzzz_missing.bin")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "<h1>404 Not Found</h1>") {
		t.Fatalf("missing file: status %d body %q", resp.StatusCode, body)
	}

	resp, body = get(t, base+"/healthz")
	var health struct {
		QueueDepth int `json:"queue_depth"`
		Files      int `json:"files"`
	}
	if err := json.Unmarshal([]byte(body), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.StatusCode != http.StatusOK || health.Files != 1 || health.QueueDepth != 0 {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, health)
	}

	_, body = get(t, base+"/metrics")
	for _, want := range []string{
		`fileslink_retrievals_total{outcome="success",route="direct"} 2`,
		`fileslink_ingest_total{outcome="success",source="document"} 1`,
		`fileslink_artifacts 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	fake := &fakeBotAPI{t: t, payload: []byte("x")}
	api := httptest.NewServer(fake)
	defer api.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithTelegramAPI(api.URL))
	build := func() *daemon.Daemon {
		files := metadata.New(cfg.MirrorPath())
		manager := queue.NewManager(queue.ProcessorFunc(func(context.Context, *queue.Job) (queue.Link, error) {
			return queue.Link{}, nil
		}), nil, queue.Options{})
		d, err := daemon.New(cfg, nil, daemon.Components{
			Files:     files,
			Queue:     manager,
			Retrieval: retrieval.New(cfg, nil, nil, files),
		})
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		t.Cleanup(func() { _ = d.Close() })
		return d
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := build()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if !first.Status().Running {
		t.Fatal("expected daemon to report running")
	}
	if err := first.Start(ctx); err == nil {
		t.Fatal("expected second Start on the same daemon to fail")
	}
	if err := build().Start(ctx); err == nil {
		t.Fatal("expected a second instance to be refused the lock")
	}

	first.Stop()
	if first.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if filepath.Base(first.Status().LockFilePath) != filepath.Base(cfg.LockPath()) {
		t.Fatalf("unexpected lock path %q", first.Status().LockFilePath)
	}
}
