package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"fileslink/internal/queue"
	"fileslink/internal/telegram"
)

func testJob(t *testing.T) *queue.Job {
	t.Helper()
	job, err := queue.NewMediaJob(queue.Handle{ChatID: 1, MessageID: 1}, queue.Handle{ChatID: 1, MessageID: 2},
		queue.MediaSource{Kind: telegram.MediaPhoto, FileID: "p"}, "")
	if err != nil {
		t.Fatalf("NewMediaJob: %v", err)
	}
	return job
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = Noop{}
	m.JobEnqueued(nil, 1)
	m.JobFinished(context.Background(), queue.Result{})
	m.QueueCleared(3)
	m.ObserveRetrieval("direct", OutcomeSuccess)
	m.SetArtifacts(2)
}

func TestPromRecordsQueueActivity(t *testing.T) {
	p := NewProm()
	job := testJob(t)

	p.JobEnqueued(job, 1)
	p.JobEnqueued(job, 2)
	p.JobFinished(context.Background(), queue.Result{Job: job, Elapsed: time.Second, Remaining: 1})
	p.JobFinished(context.Background(), queue.Result{Job: job, Err: errors.New("boom"), Remaining: 1})
	p.ObserveRetrieval("proxy", OutcomeSuccess)
	p.SetArtifacts(7)

	families, err := p.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(families, "fileslink_jobs_enqueued_total", nil); got != 2 {
		t.Fatalf("jobs_enqueued_total = %v", got)
	}
	if got := counterValue(families, "fileslink_ingest_total", map[string]string{"source": "photo", "outcome": OutcomeSuccess}); got != 1 {
		t.Fatalf("ingest success = %v", got)
	}
	if got := counterValue(families, "fileslink_ingest_total", map[string]string{"source": "photo", "outcome": OutcomeFailure}); got != 1 {
		t.Fatalf("ingest failure = %v", got)
	}
	if got := gaugeValue(families, "fileslink_queue_depth"); got != 1 {
		t.Fatalf("queue_depth = %v", got)
	}
	if got := counterValue(families, "fileslink_retrievals_total", map[string]string{"route": "proxy", "outcome": OutcomeSuccess}); got != 1 {
		t.Fatalf("retrievals_total = %v", got)
	}
	if got := gaugeValue(families, "fileslink_artifacts"); got != 7 {
		t.Fatalf("artifacts = %v", got)
	}

	p.QueueCleared(1)
	families, _ = p.Registry().Gather()
	if got := gaugeValue(families, "fileslink_queue_depth"); got != 0 {
		t.Fatalf("queue_depth after clear = %v", got)
	}
}

func TestPromInstancesAreIndependent(t *testing.T) {
	a, b := NewProm(), NewProm()
	a.ObserveRetrieval("direct", OutcomeSuccess)
	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(families, "fileslink_retrievals_total", map[string]string{"route": "direct", "outcome": OutcomeSuccess}); got != 0 {
		t.Fatalf("second registry saw %v retrievals", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	p := NewProm()
	p.JobEnqueued(testJob(t), 1)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "fileslink_jobs_enqueued_total 1") {
		t.Fatalf("unexpected exposition:\n%s", body)
	}
}

func counterValue(families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func gaugeValue(families []*dto.MetricFamily, name string) float64 {
	for _, fam := range families {
		if fam.GetName() == name && len(fam.GetMetric()) > 0 {
			return fam.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(want) == 0 {
		return true
	}
	got := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
