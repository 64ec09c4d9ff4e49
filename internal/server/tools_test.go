package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"sign_detect",
		"sign_annotate",
		"sign_image_info",
		"sign_explain",
		"sign_labels",
		"sign_rules",
		"sign_override",
		"sign_override_status",
		"sign_detector_reset",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties missing")
			}

			required, _ := tool.InputSchema["required"].([]string)
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("Required property %s not in properties", name)
				}
			}
		})
	}
}

// Every listed tool must be dispatchable.
func TestToolDefinitions_AllDispatch(t *testing.T) {
	s := newTestServer(t)
	for _, tool := range GetToolDefinitions() {
		_, err := s.executeTool(context.Background(), tool.Name, nil)
		if err != nil && err.Error() == "unknown tool: "+tool.Name {
			t.Errorf("tool %s is listed but not handled", tool.Name)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result type: %T", resp.Result)
	}
	if tools, ok := result["tools"].([]Tool); !ok || len(tools) == 0 {
		t.Errorf("tools: %v", result["tools"])
	}
}
