// Package pipeline wires configuration, the detector, the override controller
// and the meaning table into the service behind the MCP tools and the CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/traffic-sign-mcp/internal/config"
	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/detector"
	"github.com/ironsheep/traffic-sign-mcp/internal/imaging"
	"github.com/ironsheep/traffic-sign-mcp/internal/meaning"
	"github.com/ironsheep/traffic-sign-mcp/internal/ocr"
	"github.com/ironsheep/traffic-sign-mcp/internal/override"
	"github.com/ironsheep/traffic-sign-mcp/internal/report"
)

// Options configures New. Only Config is required.
type Options struct {
	Config *config.Config

	// Provider supplies the detector. Nil builds a provider around the ONNX
	// backend described by Config.Detector.
	Provider *detector.Provider

	// OCR recognises sign text. Nil with Config.OCR.Enabled starts Tesseract;
	// if that fails text reading is disabled and a warning is logged.
	OCR ocr.Engine

	Logger *zap.Logger
}

// DetectOptions adjusts a single detection request.
type DetectOptions struct {
	// Threshold replaces the configured confidence threshold when set.
	Threshold *float64

	// ReadText runs OCR inside each detected box.
	ReadText bool
}

// Explanation is the meaning of one label.
type Explanation struct {
	Label       string `json:"label"`
	Rule        string `json:"rule"`
	Explanation string `json:"explanation"`
}

// DetectorStatus describes the detector provider.
type DetectorStatus struct {
	Initialized bool   `json:"initialized"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// Service produces reports and manages the override. It is safe for
// concurrent use.
type Service struct {
	cfg        *config.Config
	index      detection.ClassIndex
	rules      *meaning.Table
	provider   *detector.Provider
	controller *override.Controller
	cache      *imaging.ImageCache
	reader     *ocr.Reader
	logger     *zap.Logger
}

// New builds a service from opts and applies the configured initial override.
func New(opts Options) (*Service, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rules, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("failed to compile meaning rules: %w", err)
	}

	controller, err := override.New(override.NewCatalog(cfg.Catalog()), cfg.ManualOverride.Confidence(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create override controller: %w", err)
	}
	if cfg.ManualOverride.Enabled {
		if err := controller.SetOverride(true, cfg.ManualOverride.Label, nil); err != nil {
			return nil, fmt.Errorf("failed to apply initial override: %w", err)
		}
	}

	index := cfg.ClassIndex()
	provider := opts.Provider
	if provider == nil {
		provider = detector.NewProvider(detector.ONNXFactory(ONNXConfig(cfg)), logger)
	}

	s := &Service{
		cfg:        cfg,
		index:      index,
		rules:      rules,
		provider:   provider,
		controller: controller,
		cache:      imaging.NewImageCache(cfg.ImageCacheSize),
		logger:     logger.Named("pipeline"),
	}

	ocrOpts := ocr.Options{
		Language:     cfg.OCR.Language,
		TessdataPath: cfg.OCR.TessdataPath,
		Whitelist:    cfg.OCR.Whitelist,
	}
	switch {
	case opts.OCR != nil:
		s.reader = ocr.NewReader(opts.OCR, ocrOpts, logger)
	case cfg.OCR.Enabled:
		engine, err := ocr.NewTesseract(ocrOpts)
		if err != nil {
			s.logger.Warn("sign text reading disabled", zap.Error(err))
			break
		}
		s.logger.Info("sign text reading enabled",
			zap.String("tesseract", engine.Version()),
			zap.String("language", ocrOpts.Language))
		s.reader = ocr.NewReader(engine, ocrOpts, logger)
	}

	return s, nil
}

// ONNXConfig derives the detector backend settings from cfg.
func ONNXConfig(cfg *config.Config) detector.ONNXConfig {
	return detector.ONNXConfig{
		ModelPath:         cfg.Detector.ModelPath,
		SharedLibraryPath: cfg.Detector.SharedLibraryPath,
		InputSize:         cfg.Detector.InputSize,
		YOLO: detector.YOLOConfig{
			NumClasses:   len(cfg.ClassIndex().Labels()),
			MinScore:     cfg.Detector.MinScore,
			IoUThreshold: cfg.Detector.IoUThreshold,
		},
	}
}

// Detect produces the report for an in-memory image.
func (s *Service) Detect(ctx context.Context, img image.Image, opts DetectOptions) *report.Report {
	return s.produce(ctx, func(context.Context) (image.Image, error) { return img, nil }, opts)
}

// DetectFile produces the report for the image at path. In Manual mode the
// file is never read.
func (s *Service) DetectFile(ctx context.Context, path string, opts DetectOptions) *report.Report {
	return s.produce(ctx, func(context.Context) (image.Image, error) { return s.load(path) }, opts)
}

// DetectFiles reports on several images in parallel. The result at index i
// belongs to paths[i].
func (s *Service) DetectFiles(ctx context.Context, paths []string, opts DetectOptions) []*report.Report {
	reports := make([]*report.Report, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			reports[i] = s.DetectFile(gctx, path, opts)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

func (s *Service) produce(ctx context.Context, load func(context.Context) (image.Image, error), opts DetectOptions) *report.Report {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()

	threshold := s.cfg.ConfidenceThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	var img image.Image
	src := func(ctx context.Context) ([]detection.Raw, error) {
		var err error
		img, err = load(ctx)
		if err != nil {
			return nil, err
		}
		return s.provider.Detect(ctx, img)
	}

	r := s.controller.ProduceReport(ctx, src, s.index, threshold, s.rules)
	if !opts.ReadText || r.Status != report.StatusOK || r.Mode != report.ModeAutomatic {
		return r
	}
	if s.reader == nil {
		s.logger.Debug("text reading requested but OCR is not available", zap.String("id", r.ID))
		return r
	}

	enriched := r.Clone()
	enriched.Records = s.reader.Enrich(ctx, img, r.Records)
	return enriched
}

func (s *Service) load(path string) (image.Image, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrInvalidInput, err)
	}
	return img, nil
}

// Annotated is a report together with the image drawn with its boxes.
type Annotated struct {
	Report *report.Report        `json:"report"`
	Image  *imaging.EncodedImage `json:"image,omitempty"`
}

// Annotate reports on the image at path and draws the detected boxes onto
// it. Manual and failed reports carry no boxes, so the image is returned
// unmarked when it can be read.
func (s *Service) Annotate(ctx context.Context, path string, opts DetectOptions, style imaging.AnnotateOptions) (*Annotated, error) {
	r := s.DetectFile(ctx, path, opts)

	img, err := s.load(path)
	if err != nil {
		return &Annotated{Report: r}, err
	}

	encoded, err := imaging.EncodePNG(imaging.Annotate(img, r.Records, style))
	if err != nil {
		return &Annotated{Report: r}, err
	}
	return &Annotated{Report: r, Image: encoded}, nil
}

// Explain returns the meaning of label and the rule that produced it.
func (s *Service) Explain(label string) Explanation {
	rule, text := s.rules.Lookup(label)
	return Explanation{Label: label, Rule: rule.Name, Explanation: text}
}

// Labels returns the labels an operator may select for the override.
func (s *Service) Labels() []string {
	return s.controller.Catalog().Labels()
}

// Rules returns the active rule table in evaluation order.
func (s *Service) Rules() []meaning.RuleSpec {
	return s.rules.Specs()
}

// SetOverride changes the override and returns the resulting state.
func (s *Service) SetOverride(enabled bool, label string, confidence *float64) (override.State, error) {
	if err := s.controller.SetOverride(enabled, label, confidence); err != nil {
		return s.controller.State(), err
	}
	return s.controller.State(), nil
}

// OverrideState returns the current override state.
func (s *Service) OverrideState() override.State {
	return s.controller.State()
}

// ResetDetector rebuilds the detector, clearing any recorded failure.
func (s *Service) ResetDetector(ctx context.Context) DetectorStatus {
	if err := s.provider.Reinitialize(ctx); err != nil {
		s.logger.Warn("detector reset failed", zap.Error(err))
	}
	return s.DetectorStatus()
}

// DetectorStatus reports the provider state without building the detector.
func (s *Service) DetectorStatus() DetectorStatus {
	initialized, err := s.provider.Status()
	st := DetectorStatus{Initialized: initialized, Available: initialized && err == nil}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// Close releases the detector and the OCR engine.
func (s *Service) Close() error {
	var errs []error
	if err := s.provider.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close detector: %w", err))
	}
	if s.reader != nil {
		if err := s.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close OCR engine: %w", err))
		}
	}
	s.cache.Clear()
	return errors.Join(errs...)
}
