package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and returns the decoded text content.
// It fails the test on a JSON-RPC error unless wantCode is non-zero, in which
// case it checks the error code and returns the error data.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, wantCode int) map[string]interface{} {
	t.Helper()

	params := map[string]interface{}{"name": name, "arguments": args}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}

	if wantCode != 0 {
		if resp.Error == nil {
			t.Fatalf("%s: expected an error, got %+v", name, resp.Result)
		}
		if resp.Error.Code != wantCode {
			t.Errorf("%s: error code %d, want %d", name, resp.Error.Code, wantCode)
		}
		return map[string]interface{}{"error": resp.Error.Data}
	}
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %s (%v)", name, resp.Error.Message, resp.Error.Data)
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("%s: unexpected content %v", name, content)
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("%s: result is not a JSON object: %v", name, err)
	}
	return out
}

func TestSignDetect(t *testing.T) {
	s := newTestServer(t,
		detection.Raw{ClassID: 14, Confidence: 0.92, Box: &detection.Bounds{X1: 5, Y1: 5, X2: 30, Y2: 30}},
		detection.Raw{ClassID: 1, Confidence: 0.2},
	)
	path := createTestImageFile(t, 40, 40, color.RGBA{200, 0, 0, 255})

	out := callTool(t, s, "sign_detect", map[string]interface{}{"path": path}, 0)

	if out["status"] != "ok" || out["mode"] != "automatic" {
		t.Errorf("status/mode: %v/%v", out["status"], out["mode"])
	}
	records := out["records"].([]interface{})
	if len(records) != 1 {
		t.Fatalf("records: %v", records)
	}
	if rec := records[0].(map[string]interface{}); rec["label"] != "Stop" || rec["box"] == nil {
		t.Errorf("record: %v", rec)
	}
	if _, ok := out["meanings"].(map[string]interface{})["Stop"]; !ok {
		t.Errorf("meanings: %v", out["meanings"])
	}
	if out["guidance"] == "" || out["id"] == "" {
		t.Errorf("guidance/id missing: %v", out)
	}

	out = callTool(t, s, "sign_detect", map[string]interface{}{"path": path, "threshold": 0.1}, 0)
	if n := len(out["records"].([]interface{})); n != 2 {
		t.Errorf("threshold 0.1: got %d records, want 2", n)
	}
}

func TestSignDetect_ErrorIsAReport(t *testing.T) {
	s := newTestServer(t)
	out := callTool(t, s, "sign_detect", map[string]interface{}{"path": filepath.Join(t.TempDir(), "nope.png")}, 0)

	if out["status"] != "error" || out["error"] == "" {
		t.Errorf("got %v", out)
	}
	if !strings.Contains(out["guidance"].(string), "override") {
		t.Errorf("guidance should offer the override: %q", out["guidance"])
	}
}

func TestSignDetect_InvalidArguments(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 10, 10, color.White)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{}, "path is required"},
		{"threshold too high", map[string]interface{}{"path": path, "threshold": 1.5}, "threshold"},
		{"wrong type", map[string]interface{}{"path": 42}, "invalid arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := callTool(t, s, "sign_detect", tt.args, codeInvalidParams)
			if !strings.Contains(out["error"].(string), tt.want) {
				t.Errorf("error %q does not contain %q", out["error"], tt.want)
			}
		})
	}
}

func TestSignAnnotate(t *testing.T) {
	s := newTestServer(t, detection.Raw{ClassID: 12, Confidence: 0.8, Box: &detection.Bounds{X1: 10, Y1: 20, X2: 50, Y2: 60}})
	path := createTestImageFile(t, 80, 80, color.White)

	out := callTool(t, s, "sign_annotate", map[string]interface{}{"path": path, "show_confidence": false}, 0)

	img := out["image"].(map[string]interface{})
	if img["mime_type"] != "image/png" || img["image_base64"] == "" {
		t.Errorf("image: %v", img)
	}
	if img["width"].(float64) != 80 || img["height"].(float64) != 80 {
		t.Errorf("size: %vx%v", img["width"], img["height"])
	}
	if rep := out["report"].(map[string]interface{}); rep["status"] != "ok" {
		t.Errorf("report: %v", rep)
	}
}

func TestSignAnnotate_Colors(t *testing.T) {
	s := newTestServer(t, detection.Raw{ClassID: 14, Confidence: 0.9, Box: &detection.Bounds{X1: 10, Y1: 20, X2: 50, Y2: 60}})
	path := createTestImageFile(t, 80, 80, color.White)

	out := callTool(t, s, "sign_annotate", map[string]interface{}{
		"path":   path,
		"colors": map[string]interface{}{"stop": "#00FF00"},
	}, 0)

	data, err := base64.StdEncoding.DecodeString(out["image"].(map[string]interface{})["image_base64"].(string))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if r, g, b, _ := img.At(30, 59).RGBA(); r != 0 || g != 0xffff || b != 0 {
		t.Errorf("bottom edge: got %v, want green", img.At(30, 59))
	}

	bad := callTool(t, s, "sign_annotate", map[string]interface{}{
		"path":   path,
		"colors": map[string]interface{}{"Stop": "green"},
	}, codeInvalidParams)
	if !strings.Contains(bad["error"].(string), "green") {
		t.Errorf("error %q does not name the colour", bad["error"])
	}
}

func TestSignImageInfo(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 120, 90, color.Black)

	out := callTool(t, s, "sign_image_info", map[string]interface{}{"path": path}, 0)
	if out["width"].(float64) != 120 || out["height"].(float64) != 90 || out["format"] != "png" {
		t.Errorf("info: %v", out)
	}

	callTool(t, s, "sign_image_info", map[string]interface{}{}, codeInvalidParams)
	callTool(t, s, "sign_image_info", map[string]interface{}{"path": filepath.Join(t.TempDir(), "gone.png")}, codeToolFailed)
}

func TestSignExplain(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		label    string
		wantRule string
		wantText string
	}{
		{"Speed Limit 80", "speed-limit", "80"},
		{"stop_sign", "stop", "STOP"},
		{"Unicorn Crossing", "catch-all", "Unicorn Crossing"},
		{"", "catch-all", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			out := callTool(t, s, "sign_explain", map[string]interface{}{"label": tt.label}, 0)
			if out["rule"] != tt.wantRule {
				t.Errorf("rule: got %v, want %s", out["rule"], tt.wantRule)
			}
			text, _ := out["explanation"].(string)
			if text == "" || !strings.Contains(text, tt.wantText) {
				t.Errorf("explanation %q should contain %q", text, tt.wantText)
			}
		})
	}
}

func TestSignLabelsAndRules(t *testing.T) {
	s := newTestServer(t)

	labels := callTool(t, s, "sign_labels", nil, 0)["labels"].([]interface{})
	if len(labels) != len(detection.TrafficSigns) || labels[0] != "Green Light" {
		t.Errorf("labels: %v", labels)
	}

	rules := callTool(t, s, "sign_rules", nil, 0)["rules"].([]interface{})
	last := rules[len(rules)-1].(map[string]interface{})
	if last["name"] != "catch-all" {
		t.Errorf("last rule: %v", last)
	}
}

func TestSignOverride_Lifecycle(t *testing.T) {
	s := newTestServer(t, detection.Raw{ClassID: 14, Confidence: 0.9})
	path := createTestImageFile(t, 20, 20, color.White)

	status := callTool(t, s, "sign_override_status", nil, 0)
	if status["enabled"] != false || status["mode"] != "automatic" {
		t.Errorf("initial status: %v", status)
	}

	on := callTool(t, s, "sign_override", map[string]interface{}{"enabled": true, "label": "speed limit 80", "confidence": 0.7}, 0)
	if on["selected_label"] != "Speed Limit 80" || on["fixed_confidence"] != 0.7 || on["mode"] != "manual" {
		t.Errorf("enable: %v", on)
	}

	rep := callTool(t, s, "sign_detect", map[string]interface{}{"path": path}, 0)
	records := rep["records"].([]interface{})
	if rep["mode"] != "manual" || len(records) != 1 {
		t.Fatalf("manual report: %v", rep)
	}
	if rec := records[0].(map[string]interface{}); rec["label"] != "Speed Limit 80" || rec["confidence"] != 0.7 {
		t.Errorf("manual record: %v", rec)
	}

	off := callTool(t, s, "sign_override", map[string]interface{}{"enabled": false}, 0)
	if off["enabled"] != false || off["selected_label"] != nil {
		t.Errorf("disable: %v", off)
	}

	rep = callTool(t, s, "sign_detect", map[string]interface{}{"path": path}, 0)
	if rep["mode"] != "automatic" || rep["records"].([]interface{})[0].(map[string]interface{})["label"] != "Stop" {
		t.Errorf("automatic report after disable: %v", rep)
	}
}

func TestSignOverride_Rejected(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing enabled", map[string]interface{}{"label": "Stop"}, "enabled is required"},
		{"missing label", map[string]interface{}{"enabled": true}, "label"},
		{"unknown label", map[string]interface{}{"enabled": true, "label": "Speed Limit 85"}, "not in label catalog"},
		{"bad confidence", map[string]interface{}{"enabled": true, "label": "Stop", "confidence": 2}, "confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := callTool(t, s, "sign_override", tt.args, codeInvalidParams)
			if !strings.Contains(out["error"].(string), tt.want) {
				t.Errorf("error %q does not contain %q", out["error"], tt.want)
			}
		})
	}

	if status := callTool(t, s, "sign_override_status", nil, 0); status["enabled"] != false {
		t.Errorf("rejected calls changed the state: %v", status)
	}
}

func TestSignDetectorReset(t *testing.T) {
	s := newTestServer(t)

	out := callTool(t, s, "sign_detector_reset", nil, 0)
	if out["initialized"] != true || out["available"] != true {
		t.Errorf("reset status: %v", out)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v", resp.Error)
	}

	out := callTool(t, s, "image_crop", map[string]interface{}{}, codeToolFailed)
	if !strings.Contains(out["error"].(string), "unknown tool") {
		t.Errorf("unknown tool: %v", out)
	}
}
