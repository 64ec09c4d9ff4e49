// Package server implements the MCP (Model Context Protocol) server for the
// traffic-sign safety tools.
//
// The server speaks JSON-RPC 2.0 over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr so they never mix with protocol traffic.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Reports:
//   - sign_detect: Detect signs in a photo and return the safety report
//   - sign_annotate: Report plus the photo with labelled boxes
//   - sign_image_info: Photo dimensions and format
//
// Meanings:
//   - sign_explain: Explanation and matching rule for a label
//   - sign_labels: Labels selectable for the override
//   - sign_rules: Active meaning rules in evaluation order
//
// Manual override:
//   - sign_override: Enable with a label, or disable
//   - sign_override_status: Current override state
//
// Detector:
//   - sign_detector_reset: Rebuild the detector after a failure
//
// # Error Handling
//
// Detection problems are reported inside the report itself (status "error"
// with a message and guidance), so sign_detect only fails for bad arguments.
// Other tool errors are returned as JSON-RPC error responses with:
//   - code: -32602 for rejected arguments (missing path, threshold out of
//     range, bad colour, unknown override label), -32000 for other tool
//     failures, or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	svc, err := pipeline.New(pipeline.Options{Config: cfg, Logger: logger})
//	if err != nil {
//	    return err
//	}
//	srv := server.New(svc, version, logger)
//	return srv.Run(ctx)
package server
