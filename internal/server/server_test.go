package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/detector"
	"github.com/ironsheep/traffic-sign-mcp/internal/pipeline"
)

// newTestServer builds a server whose detector always returns raws.
func newTestServer(t *testing.T, raws ...detection.Raw) *Server {
	t.Helper()
	provider := detector.NewProvider(func(context.Context) (detector.Detector, error) {
		return &detector.Static{Raws: raws}, nil
	}, nil)
	svc, err := pipeline.New(pipeline.Options{Provider: provider})
	if err != nil {
		t.Fatalf("pipeline.New failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return New(svc, "test", nil)
}

func TestNew(t *testing.T) {
	s := New(nil, "", nil)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.version != "dev" {
		t.Errorf("version: got %q, want dev", s.version)
	}
	if s.logger == nil {
		t.Error("New() did not set a logger")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestMCPResponse_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(MCPResponse{JSONRPC: "2.0", ID: 1, Result: map[string]interface{}{}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("success response carries an error field: %s", data)
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result := resp.Result.(map[string]interface{})
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != ServerName || info["version"] != "test" {
		t.Errorf("serverInfo: %v", info)
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: %v", result["protocolVersion"])
	}
}

func TestHandleRequest_Routing(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method   string
		wantNil  bool
		wantCode int
	}{
		{"ping", false, 0},
		{"tools/list", false, 0},
		{"notifications/initialized", true, 0},
		{"resources/list", false, -32601},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 7, Method: tt.method})
			if tt.wantNil {
				if resp != nil {
					t.Errorf("expected no response, got %+v", resp)
				}
				return
			}
			if resp == nil {
				t.Fatal("handleRequest returned nil")
			}
			if resp.ID != 7 {
				t.Errorf("ID: got %v", resp.ID)
			}
			code := 0
			if resp.Error != nil {
				code = resp.Error.Code
			}
			if code != tt.wantCode {
				t.Errorf("error code: got %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestServe_LineProtocol(t *testing.T) {
	s := newTestServer(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	dec := json.NewDecoder(&out)
	var ids []float64
	for dec.More() {
		var resp MCPResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("bad response line: %v", err)
		}
		ids = append(ids, resp.ID.(float64))
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("response ids: got %v, want [1 2]", ids)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if err != context.Canceled {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("wrote a response after cancellation: %s", out.String())
	}
}
