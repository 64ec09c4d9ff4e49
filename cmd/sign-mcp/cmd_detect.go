package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/detector"
	"github.com/ironsheep/traffic-sign-mcp/internal/imaging"
	"github.com/ironsheep/traffic-sign-mcp/internal/pipeline"
	"github.com/ironsheep/traffic-sign-mcp/internal/report"
)

type detectFlags struct {
	threshold   float64
	jsonOut     bool
	override    string
	annotateDir string
	raw         string
	readText    bool
	colors      map[string]string
}

func newDetectCmd(a *app) *cobra.Command {
	var f detectFlags

	cmd := &cobra.Command{
		Use:   "detect IMAGE...",
		Short: "Report the traffic signs in one or more photos",
		Long: `Runs detection on each photo and prints its report: the signs found, what
each one means, and what to do next.

--raw replays recorded detector output (a JSON array of class_id, confidence
and optional box) instead of running the model, which is useful for checking
thresholds and meaning rules without the ONNX runtime.`,
		Example: `  sign-mcp detect junction.jpg
  sign-mcp detect --threshold 0.5 --json a.jpg b.jpg
  sign-mcp detect --override "Speed Limit 80" dashcam.png
  sign-mcp detect --raw hits.json --annotate-dir out/ frame.png
  sign-mcp detect --annotate-dir out/ --color Stop=#FF0000 frame.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold *float64
			if cmd.Flags().Changed("threshold") {
				if !detection.ValidConfidence(f.threshold) {
					return fmt.Errorf("--threshold %v outside [0, 1]", f.threshold)
				}
				threshold = &f.threshold
			}
			if err := (imaging.AnnotateOptions{Colors: f.colors}).Validate(); err != nil {
				return fmt.Errorf("--color: %w", err)
			}
			return a.runDetect(cmd.Context(), cmd.OutOrStdout(), args, f, threshold)
		},
	}

	fl := cmd.Flags()
	fl.Float64VarP(&f.threshold, "threshold", "t", 0, "Minimum confidence (default from config)")
	fl.BoolVar(&f.jsonOut, "json", false, "Print reports as JSON")
	fl.StringVar(&f.override, "override", "", "Report this label instead of running detection")
	fl.StringVar(&f.annotateDir, "annotate-dir", "", "Write each photo with labelled boxes to this directory")
	fl.StringVar(&f.raw, "raw", "", "Replay detector output from a JSON file")
	fl.BoolVar(&f.readText, "read-text", false, "Read the text inside each detected sign (OCR)")
	fl.StringToStringVar(&f.colors, "color", nil, "Box colour for a label in annotated images, LABEL=#RRGGBB")

	return cmd
}

func (a *app) runDetect(ctx context.Context, out io.Writer, paths []string, f detectFlags, threshold *float64) error {
	var provider *detector.Provider
	if f.raw != "" {
		raws, err := loadRawFile(f.raw)
		if err != nil {
			return err
		}
		provider = detector.NewProvider(func(context.Context) (detector.Detector, error) {
			return &detector.Static{Raws: raws}, nil
		}, a.logger)
	}

	svc, err := a.newService(provider)
	if err != nil {
		return err
	}
	defer svc.Close()

	if f.override != "" {
		if _, err := svc.SetOverride(true, f.override, nil); err != nil {
			return err
		}
	}

	opts := pipeline.DetectOptions{Threshold: threshold, ReadText: f.readText}

	var reports []*report.Report
	if f.annotateDir != "" {
		style := imaging.AnnotateOptions{ShowConfidence: true, Colors: f.colors}
		reports, err = a.annotateAll(ctx, svc, paths, opts, style, f.annotateDir)
		if err != nil {
			return err
		}
	} else {
		reports = svc.DetectFiles(ctx, paths, opts)
	}

	if err := printReports(out, paths, reports, f.jsonOut); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Status == report.StatusError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("detection failed for %d of %d images", failed, len(reports))
	}
	return nil
}

func (a *app) annotateAll(ctx context.Context, svc *pipeline.Service, paths []string, opts pipeline.DetectOptions, style imaging.AnnotateOptions, dir string) ([]*report.Report, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create annotate directory: %w", err)
	}

	reports := make([]*report.Report, len(paths))
	for i, path := range paths {
		annotated, err := svc.Annotate(ctx, path, opts, style)
		reports[i] = annotated.Report
		if err != nil {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(annotated.Image.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode annotated image: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".annotated.png"
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write annotated image: %w", err)
		}
	}
	return reports, nil
}

func loadRawFile(path string) ([]detection.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detections: %w", err)
	}
	defer f.Close()
	return detector.LoadRaw(f)
}

type imageReport struct {
	Path string `json:"path"`
	*report.Report
	Guidance string `json:"guidance"`
}

func printReports(out io.Writer, paths []string, reports []*report.Report, asJSON bool) error {
	if asJSON {
		items := make([]imageReport, len(reports))
		for i, r := range reports {
			items[i] = imageReport{Path: paths[i], Report: r, Guidance: r.Guidance()}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for i, r := range reports {
		if len(reports) > 1 {
			fmt.Fprintf(out, "== %s\n", paths[i])
		}
		fmt.Fprint(out, r.Summary())
		if i < len(reports)-1 {
			fmt.Fprintln(out)
		}
	}
	return nil
}
