package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the photo (PNG, JPEG, GIF, BMP or WebP)",
	}
}

func thresholdProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Optional minimum confidence in [0, 1]. Defaults to the configured threshold",
		"minimum":     0,
		"maximum":     1,
	}
}

func noArguments() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Reports
		{
			Name: "sign_detect",
			Description: "Detect traffic signs in a photo and return a safety report: each sign with its confidence and box, " +
				"a plain-language explanation per sign, and guidance for the next step. " +
				"While the manual override is enabled the report is the operator's chosen sign and the photo is not read.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"threshold": thresholdProperty(),
					"read_text": map[string]interface{}{
						"type":        "boolean",
						"description": "Read the text printed inside each detected sign (requires OCR). Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sign_annotate",
			Description: "Detect traffic signs and return the report together with the photo drawn with labelled boxes, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"threshold": thresholdProperty(),
					"show_confidence": map[string]interface{}{
						"type":        "boolean",
						"description": "Append the confidence to each box label. Default true",
						"default":     true,
					},
					"colors": map[string]interface{}{
						"type":                 "object",
						"description":          "Box colour per label as hex (#RRGGBB or #RRGGBBAA), e.g. {\"Stop\": \"#FF0000\"}. Labels match case-insensitively; other labels get a stable generated colour",
						"additionalProperties": map[string]interface{}{"type": "string"},
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sign_image_info",
			Description: "Get the width, height, format and file size of a photo before running detection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Meanings
		{
			Name:        "sign_explain",
			Description: "Explain what a traffic sign label means for the driver, and name the rule that produced the explanation. Every label gets an explanation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"label": map[string]interface{}{
						"type":        "string",
						"description": "Sign label, e.g. \"Speed Limit 80\" or \"stop_sign\"",
					},
				},
				"required": []string{"label"},
			},
		},
		{
			Name:        "sign_labels",
			Description: "List the sign labels that can be selected for the manual override.",
			InputSchema: noArguments(),
		},
		{
			Name:        "sign_rules",
			Description: "List the active meaning rules in evaluation order. The first matching rule explains a label; the last rule matches everything.",
			InputSchema: noArguments(),
		},

		// Manual override
		{
			Name: "sign_override",
			Description: "Switch between automatic detection and a manually selected sign. " +
				"Enabling requires a label from sign_labels; later reports then contain only that sign at a fixed confidence. " +
				"Disabling returns to automatic detection and clears the selection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"enabled": map[string]interface{}{
						"type":        "boolean",
						"description": "true for manual mode, false for automatic detection",
					},
					"label": map[string]interface{}{
						"type":        "string",
						"description": "Sign label to report while enabled (case-insensitive)",
					},
					"confidence": map[string]interface{}{
						"type":        "number",
						"description": "Optional confidence in [0, 1] for manual reports. Defaults to the configured fixed confidence",
						"minimum":     0,
						"maximum":     1,
					},
				},
				"required": []string{"enabled"},
			},
		},
		{
			Name:        "sign_override_status",
			Description: "Get the current override state: whether manual mode is on, the selected label and its confidence.",
			InputSchema: noArguments(),
		},

		// Detector
		{
			Name:        "sign_detector_reset",
			Description: "Rebuild the sign detector, for example after installing the model file. Clears a recorded initialization failure.",
			InputSchema: noArguments(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
