package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// Factory builds a detector. It is called at most once per initialization.
type Factory func(ctx context.Context) (Detector, error)

var errNoFactory = errors.New("no detector configured")

// Provider owns one lazily constructed detector.
//
// The first Get builds the detector. If that fails the error is kept and
// returned by every later Get without calling the factory again; only
// Reinitialize retries. A Provider is safe for concurrent use.
type Provider struct {
	mu          sync.Mutex
	factory     Factory
	logger      *zap.Logger
	det         Detector
	err         error
	initialized bool
	closed      bool
}

// NewProvider returns a provider that builds its detector with factory.
// A nil logger discards log output.
func NewProvider(factory Factory, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{factory: factory, logger: logger.Named("detector")}
}

// Get returns the detector, building it on first use.
func (p *Provider) Get(ctx context.Context) (Detector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("%w: provider closed", detection.ErrDetectorUnavailable)
	}
	if !p.initialized {
		p.initLocked(ctx)
	}
	return p.det, p.err
}

// Detect runs the provider's detector on img.
func (p *Provider) Detect(ctx context.Context, img image.Image) ([]detection.Raw, error) {
	det, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}
	return det.Detect(ctx, img)
}

// Reinitialize discards the current detector or recorded failure and builds
// a new detector immediately. It also reopens a closed provider.
func (p *Provider) Reinitialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.closeLocked(); err != nil {
		p.logger.Warn("closing previous detector failed", zap.Error(err))
	}
	p.closed = false
	p.initLocked(ctx)
	return p.err
}

// Close releases the detector. Later Get calls fail until Reinitialize.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.closeLocked()
	p.closed = true
	return err
}

// Status reports whether the detector has been built and the recorded
// construction error, if any.
func (p *Provider) Status() (initialized bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized, p.err
}

func (p *Provider) initLocked(ctx context.Context) {
	p.initialized = true
	p.det, p.err = nil, nil

	if p.factory == nil {
		p.err = fmt.Errorf("%w: %w", detection.ErrDetectorUnavailable, errNoFactory)
		p.logger.Warn("detector unavailable", zap.Error(p.err))
		return
	}

	det, err := p.factory(ctx)
	if err != nil {
		if !errors.Is(err, detection.ErrDetectorUnavailable) {
			err = fmt.Errorf("%w: %w", detection.ErrDetectorUnavailable, err)
		}
		p.err = err
		p.logger.Error("detector initialization failed", zap.Error(err))
		return
	}

	p.det = Serialize(det)
	p.logger.Info("detector initialized", zap.Bool("concurrent", IsConcurrentSafe(det)))
}

func (p *Provider) closeLocked() error {
	var err error
	if p.det != nil {
		err = p.det.Close()
	}
	p.det, p.err = nil, nil
	p.initialized = false
	return err
}

var (
	defaultMu       sync.Mutex
	defaultFactory  Factory
	defaultLogger   *zap.Logger
	defaultProvider *Provider
)

// SetDefaultFactory configures the process-wide provider. An existing
// default provider is closed and replaced on the next Default call.
func SetDefaultFactory(factory Factory, logger *zap.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultProvider != nil {
		if err := defaultProvider.Close(); err != nil {
			defaultProvider.logger.Warn("closing previous default detector failed", zap.Error(err))
		}
		defaultProvider = nil
	}
	defaultFactory = factory
	defaultLogger = logger
}

// Default returns the process-wide provider, creating it on first call.
// Without SetDefaultFactory its detector is always unavailable.
func Default() *Provider {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultProvider == nil {
		defaultProvider = NewProvider(defaultFactory, defaultLogger)
	}
	return defaultProvider
}

// ResetDefault closes the process-wide provider and forgets its factory.
// Intended for tests and shutdown.
func ResetDefault() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	var err error
	if defaultProvider != nil {
		err = defaultProvider.Close()
	}
	defaultProvider = nil
	defaultFactory = nil
	defaultLogger = nil
	return err
}
