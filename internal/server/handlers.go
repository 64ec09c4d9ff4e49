package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/imaging"
	"github.com/ironsheep/traffic-sign-mcp/internal/override"
	"github.com/ironsheep/traffic-sign-mcp/internal/pipeline"
	"github.com/ironsheep/traffic-sign-mcp/internal/report"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sign_detect", "sign_override").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Rejected tool arguments, including an override label outside the catalog,
// return code -32602. Other tool execution errors return code -32000.
// A report whose status is "error" is a successful tool call.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		var argErr *argsError
		if errors.As(err, &argErr) || errors.Is(err, override.ErrValidation) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Reports
	case "sign_detect":
		return s.handleSignDetect(ctx, args)
	case "sign_annotate":
		return s.handleSignAnnotate(ctx, args)
	case "sign_image_info":
		return s.handleSignImageInfo(args)

	// Meanings
	case "sign_explain":
		return s.handleSignExplain(args)
	case "sign_labels":
		return map[string]interface{}{"labels": s.svc.Labels()}, nil
	case "sign_rules":
		return map[string]interface{}{"rules": s.svc.Rules()}, nil

	// Manual override
	case "sign_override":
		return s.handleSignOverride(args)
	case "sign_override_status":
		return newOverrideResult(s.svc.OverrideState()), nil

	// Detector
	case "sign_detector_reset":
		return s.svc.ResetDetector(ctx), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

const (
	codeInvalidParams = -32602
	codeToolFailed    = -32000
)

// argsError marks a tool call rejected because of its arguments.
type argsError struct {
	err error
}

func (e *argsError) Error() string { return e.err.Error() }
func (e *argsError) Unwrap() error { return e.err }

func invalidArgs(format string, a ...interface{}) error {
	return &argsError{err: fmt.Errorf(format, a...)}
}

// unmarshalArgs decodes tool arguments. Tools without required arguments may
// be called with none at all.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidArgs("invalid arguments: %w", err)
	}
	return nil
}

// === Report Handlers ===

// reportResult is a report with the guidance for its status.
type reportResult struct {
	*report.Report
	Guidance string `json:"guidance"`
}

func newReportResult(r *report.Report) reportResult {
	return reportResult{Report: r, Guidance: r.Guidance()}
}

type signDetectArgs struct {
	Path      string   `json:"path"`
	Threshold *float64 `json:"threshold"`
	ReadText  bool     `json:"read_text"`
}

func (a signDetectArgs) options() (pipeline.DetectOptions, error) {
	if a.Path == "" {
		return pipeline.DetectOptions{}, invalidArgs("path is required")
	}
	if a.Threshold != nil && !detection.ValidConfidence(*a.Threshold) {
		return pipeline.DetectOptions{}, invalidArgs("threshold %v outside [0, 1]", *a.Threshold)
	}
	return pipeline.DetectOptions{Threshold: a.Threshold, ReadText: a.ReadText}, nil
}

func (s *Server) handleSignDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a signDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}

	r := s.svc.DetectFile(ctx, a.Path, opts)
	s.logger.Info("report",
		zap.String("id", r.ID),
		zap.String("path", a.Path),
		zap.Stringer("mode", r.Mode),
		zap.Stringer("status", r.Status),
		zap.Int("records", len(r.Records)))
	return newReportResult(r), nil
}

type signAnnotateArgs struct {
	Path           string            `json:"path"`
	Threshold      *float64          `json:"threshold"`
	ShowConfidence *bool             `json:"show_confidence"`
	Colors         map[string]string `json:"colors"`
}

type annotateResult struct {
	Report reportResult          `json:"report"`
	Image  *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleSignAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a signAnnotateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := signDetectArgs{Path: a.Path, Threshold: a.Threshold}.options()
	if err != nil {
		return nil, err
	}

	style := imaging.AnnotateOptions{ShowConfidence: true, Colors: a.Colors}
	if a.ShowConfidence != nil {
		style.ShowConfidence = *a.ShowConfidence
	}
	if err := style.Validate(); err != nil {
		return nil, invalidArgs("%w", err)
	}

	annotated, err := s.svc.Annotate(ctx, a.Path, opts, style)
	if err != nil {
		return nil, err
	}
	return annotateResult{Report: newReportResult(annotated.Report), Image: annotated.Image}, nil
}

type signPathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSignImageInfo(args json.RawMessage) (interface{}, error) {
	var a signPathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidArgs("path is required")
	}
	return imaging.LoadImageInfo(a.Path)
}

// === Meaning Handlers ===

type signExplainArgs struct {
	Label string `json:"label"`
}

func (s *Server) handleSignExplain(args json.RawMessage) (interface{}, error) {
	var a signExplainArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.svc.Explain(a.Label), nil
}

// === Override Handlers ===

type signOverrideArgs struct {
	Enabled    *bool    `json:"enabled"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

type overrideResult struct {
	override.State
	Mode report.Mode `json:"mode"`
}

func newOverrideResult(st override.State) overrideResult {
	mode := report.ModeAutomatic
	if st.Enabled {
		mode = report.ModeManual
	}
	return overrideResult{State: st, Mode: mode}
}

func (s *Server) handleSignOverride(args json.RawMessage) (interface{}, error) {
	var a signOverrideArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Enabled == nil {
		return nil, invalidArgs("enabled is required")
	}

	st, err := s.svc.SetOverride(*a.Enabled, a.Label, a.Confidence)
	if err != nil {
		return nil, err
	}
	return newOverrideResult(st), nil
}
