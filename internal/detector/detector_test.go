package detector

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var blank = image.NewRGBA(image.Rect(0, 0, 4, 4))

// countingDetector tracks concurrent calls and closes.
type countingDetector struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
	closed  atomic.Int32
	delay   time.Duration
}

func (d *countingDetector) Detect(ctx context.Context, _ image.Image) ([]detection.Raw, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		seen := d.maxSeen.Load()
		if n <= seen || d.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	d.calls.Add(1)
	time.Sleep(d.delay)
	return []detection.Raw{{ClassID: 14, Confidence: 0.9}}, nil
}

func (d *countingDetector) Close() error {
	d.closed.Add(1)
	return nil
}

func TestSerialize_OneCallAtATime(t *testing.T) {
	inner := &countingDetector{delay: 2 * time.Millisecond}
	d := Serialize(inner)
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raws, err := d.Detect(context.Background(), blank)
			if err != nil || len(raws) != 1 {
				t.Errorf("Detect: %v %v", raws, err)
			}
		}()
	}
	wg.Wait()

	if got := inner.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent calls: got %d, want 1", got)
	}
	if got := inner.calls.Load(); got != 10 {
		t.Errorf("calls: got %d, want 10", got)
	}
}

func TestSerialize_PassesThroughConcurrentSafe(t *testing.T) {
	s := &Static{}
	if Serialize(s) != Detector(s) {
		t.Error("concurrency-safe detector should not be wrapped")
	}
}

func TestSerialize_CloseStopsWorker(t *testing.T) {
	inner := &countingDetector{}
	d := Serialize(inner)

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if inner.closed.Load() != 1 {
		t.Errorf("inner closed %d times, want 1", inner.closed.Load())
	}

	_, err := d.Detect(context.Background(), blank)
	if !errors.Is(err, detection.ErrDetectorUnavailable) {
		t.Errorf("Detect after Close: got %v, want ErrDetectorUnavailable", err)
	}
}

func TestSerialize_ContextCancelWhileRunning(t *testing.T) {
	release := make(chan struct{})
	d := Serialize(Func(func(ctx context.Context, _ image.Image) ([]detection.Raw, error) {
		<-release
		return nil, nil
	}))
	defer d.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Detect(ctx, blank)
	if !errors.Is(err, detection.ErrInferenceFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want inference failure wrapping deadline", err)
	}
}

func TestProvider_LazyOnce(t *testing.T) {
	var builds atomic.Int32
	p := NewProvider(func(context.Context) (Detector, error) {
		builds.Add(1)
		return &Static{Raws: []detection.Raw{{ClassID: 1, Confidence: 0.5}}}, nil
	}, nil)
	defer p.Close()

	if initialized, _ := p.Status(); initialized {
		t.Fatal("provider built its detector before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Detect(context.Background(), blank); err != nil {
				t.Errorf("Detect: %v", err)
			}
		}()
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("factory called %d times, want 1", builds.Load())
	}
}

func TestProvider_FailureRecordedUntilReinitialize(t *testing.T) {
	var builds atomic.Int32
	fail := true
	p := NewProvider(func(context.Context) (Detector, error) {
		builds.Add(1)
		if fail {
			return nil, errors.New("model file missing")
		}
		return &countingDetector{}, nil
	}, nil)
	defer p.Close()

	for i := 0; i < 3; i++ {
		_, err := p.Get(context.Background())
		if !errors.Is(err, detection.ErrDetectorUnavailable) {
			t.Fatalf("Get %d: got %v, want ErrDetectorUnavailable", i, err)
		}
		if !strings.Contains(err.Error(), "model file missing") {
			t.Errorf("cause lost: %v", err)
		}
	}
	if builds.Load() != 1 {
		t.Errorf("factory retried: %d calls", builds.Load())
	}

	fail = false
	if err := p.Reinitialize(context.Background()); err != nil {
		t.Fatalf("Reinitialize failed: %v", err)
	}
	if _, err := p.Detect(context.Background(), blank); err != nil {
		t.Errorf("Detect after Reinitialize: %v", err)
	}
	if builds.Load() != 2 {
		t.Errorf("factory calls: got %d, want 2", builds.Load())
	}
}

func TestProvider_CloseAndReopen(t *testing.T) {
	inner := &countingDetector{}
	p := NewProvider(func(context.Context) (Detector, error) { return inner, nil }, nil)

	if _, err := p.Get(context.Background()); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if inner.closed.Load() != 1 {
		t.Errorf("detector closed %d times", inner.closed.Load())
	}
	if _, err := p.Get(context.Background()); !errors.Is(err, detection.ErrDetectorUnavailable) {
		t.Errorf("Get after Close: got %v", err)
	}

	if err := p.Reinitialize(context.Background()); err != nil {
		t.Fatalf("Reinitialize failed: %v", err)
	}
	if _, err := p.Get(context.Background()); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
	p.Close()
}

func TestProvider_NilFactory(t *testing.T) {
	p := NewProvider(nil, nil)
	if _, err := p.Get(context.Background()); !errors.Is(err, detection.ErrDetectorUnavailable) {
		t.Errorf("got %v, want ErrDetectorUnavailable", err)
	}
}

func TestDefault_Singleton(t *testing.T) {
	defer ResetDefault()

	var builds atomic.Int32
	SetDefaultFactory(func(context.Context) (Detector, error) {
		builds.Add(1)
		return &Static{}, nil
	}, nil)

	if Default() != Default() {
		t.Fatal("Default returned different providers")
	}
	Default().Get(context.Background())
	Default().Get(context.Background())
	if builds.Load() != 1 {
		t.Errorf("factory calls: got %d, want 1", builds.Load())
	}

	if err := ResetDefault(); err != nil {
		t.Fatalf("ResetDefault failed: %v", err)
	}
	if _, err := Default().Get(context.Background()); !errors.Is(err, detection.ErrDetectorUnavailable) {
		t.Errorf("after reset: got %v, want ErrDetectorUnavailable", err)
	}
}

// closeErrDetector fails to close.
type closeErrDetector struct{ Static }

func (closeErrDetector) Close() error { return errors.New("session still busy") }

func TestSetDefaultFactory_LogsCloseFailure(t *testing.T) {
	defer ResetDefault()

	core, logs := observer.New(zapcore.WarnLevel)
	SetDefaultFactory(func(context.Context) (Detector, error) {
		return &closeErrDetector{}, nil
	}, zap.New(core))
	if _, err := Default().Get(context.Background()); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	SetDefaultFactory(func(context.Context) (Detector, error) { return &Static{}, nil }, nil)

	entries := logs.FilterMessage("closing previous default detector failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; got != "session still busy" {
		t.Errorf("logged error: got %v", got)
	}
}

func TestStatic(t *testing.T) {
	s := &Static{Raws: []detection.Raw{{ClassID: 3, Confidence: 0.87}}}
	raws, err := s.Detect(context.Background(), blank)
	if err != nil || len(raws) != 1 {
		t.Fatalf("Detect: %v %v", raws, err)
	}
	raws[0].Confidence = 0
	if s.Raws[0].Confidence != 0.87 {
		t.Error("Static returned its own slice")
	}

	s.Err = detection.ErrInferenceFailure
	if _, err := s.Detect(context.Background(), blank); !errors.Is(err, detection.ErrInferenceFailure) {
		t.Errorf("got %v", err)
	}
}

func TestLoadRaw(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"array", `[{"class_id": 3, "confidence": 0.87}]`, 1, false},
		{"wrapped", `{"detections": [{"class_id": 1, "confidence": 0.5, "box": {"x1":1,"y1":2,"x2":3,"y2":4}}, {"class_id": 2, "confidence": 0.1}]}`, 2, false},
		{"empty array", `[]`, 0, false},
		{"garbage", `not json`, 0, true},
		{"no detections key", `{"foo": 1}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws, err := LoadRaw(strings.NewReader(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(raws) != tt.want {
				t.Errorf("got %d detections, want %d", len(raws), tt.want)
			}
		})
	}
}
