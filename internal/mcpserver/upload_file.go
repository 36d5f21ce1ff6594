package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxFileSize = 20 << 20 // 20 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true, ".pdf": true,
		".json": true,
	}

	mimeToExt = map[string]string{
		"image/png":        ".png",
		"image/jpeg":       ".jpg",
		"image/gif":        ".gif",
		"image/webp":       ".webp",
		"image/svg+xml":    ".svg",
		"application/pdf":  ".pdf",
		"application/json": ".json",
	}
)

type uploadResult struct {
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

func (s *Server) uploadFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	data, ext, err := decodeDataURI(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxFileSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxFileSize)), nil
	}

	if filename == "" {
		filename = uuid.New().String() + ext
	}
	fileExt := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[fileExt] {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file extension: %q (allowed: png, jpg, jpeg, gif, webp, svg, pdf, json)", fileExt)), nil
	}
	if err := validateMagicBytes(data, fileExt); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name, n, err := s.files.SaveUnique(filename, bytes.NewReader(data))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save file: %v", err)), nil
	}

	out, _ := json.Marshal(uploadResult{FileName: name, Size: n, URL: "/files/" + name})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFiles(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.files.List()
	if err != nil {
		return toolResult(nil, err, "File")
	}
	out := make([]uploadResult, 0, len(files))
	for _, f := range files {
		out = append(out, uploadResult{FileName: f.Name, Size: f.Size, URL: "/files/" + f.Name})
	}
	return toolResult(out, nil, "File")
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI and returns the
// payload with the extension its media type maps to.
func decodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("data must be a data: URI")
	}
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	switch ext {
	case ".svg":
		prefix := data[:min(len(data), 1024)]
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	case ".json":
		if !json.Valid(data) {
			return fmt.Errorf("content is not valid JSON")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := mimeToExt[strings.Split(detected, ";")[0]]

	switch ext {
	case ".jpg", ".jpeg":
		if got != ".jpg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	default:
		if got != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
