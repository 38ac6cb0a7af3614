// CLAUDE:SUMMARY MCP tool surface: extract_file / extract_bytes / extract_url over the Extractor.
package extractous

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Valian/extractous-go/kit"
)

// RegisterMCP registers the extraction tools on an MCP server.
func (e *Extractor) RegisterMCP(srv *mcp.Server) {
	e.registerFileTool(srv)
	e.registerBytesTool(srv)
	e.registerURLTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// configProperty is the shared schema snippet for the optional config object.
func configProperty() map[string]any {
	return map[string]any{
		"type":        "object",
		"description": "Extraction configuration: max_length, xml, encoding, and pdf/office/ocr groups. All fields optional.",
	}
}

// payloadString re-serializes the raw config object so the tool and the
// HTTP/CLI surfaces share one resolver input shape.
func payloadString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}

// --- extract_file ---

type fileReq struct {
	Path   string          `json:"path"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (e *Extractor) registerFileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extractous_extract_file",
		Description: "Extract text and metadata from a local document file (pdf, docx, pptx, xlsx, odt, eml, html, txt, images).",
		InputSchema: inputSchema(map[string]any{
			"path":   map[string]any{"type": "string", "description": "File path to extract"},
			"config": configProperty(),
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*fileReq)
		return e.ExtractFile(ctx, r.Path, payloadString(r.Config))
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r fileReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- extract_bytes ---

type bytesReq struct {
	Data   string          `json:"data"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (e *Extractor) registerBytesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extractous_extract_bytes",
		Description: "Extract text and metadata from document bytes supplied as base64.",
		InputSchema: inputSchema(map[string]any{
			"data":   map[string]any{"type": "string", "description": "Base64-encoded document bytes"},
			"config": configProperty(),
		}, []string{"data"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*bytesReq)
		data, err := base64.StdEncoding.DecodeString(r.Data)
		if err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
		return e.ExtractBytes(ctx, data, payloadString(r.Config))
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r bytesReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- extract_url ---

type urlReq struct {
	URL    string          `json:"url"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (e *Extractor) registerURLTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extractous_extract_url",
		Description: "Fetch a remote document and extract text and metadata. Only public http/https URLs are allowed.",
		InputSchema: inputSchema(map[string]any{
			"url":    map[string]any{"type": "string", "description": "Document URL to fetch and extract"},
			"config": configProperty(),
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*urlReq)
		return e.ExtractURL(ctx, r.URL, payloadString(r.Config))
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r urlReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
