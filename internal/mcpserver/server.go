// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Scriptorium tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/assets"
	"github.com/starford/scriptorium/internal/schema"
	"github.com/starford/scriptorium/internal/workspace"
)

const contractURI = "scriptorium://record-format"

// Server wraps the MCP server with Scriptorium tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *workspace.Service
	files *assets.Dir
}

// New creates a new MCP server with all Scriptorium tools registered.
// files may be nil, in which case upload_file and list_files are not offered.
func New(svc *workspace.Service, files *assets.Dir) *Server {
	s := &Server{svc: svc, files: files}

	s.mcp = server.NewMCPServer(
		"Scriptorium",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	stringList := mcp.Items(map[string]any{"type": "string"})
	idList := mcp.Items(map[string]any{"type": "integer"})

	// Subjects.
	s.mcp.AddTool(mcp.NewTool("list_subjects",
		mcp.WithDescription("List all subjects, most recently updated first."),
	), s.listSubjects)

	s.mcp.AddTool(mcp.NewTool("get_subject",
		mcp.WithDescription("Get one subject by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Subject id")),
	), s.getSubject)

	s.mcp.AddTool(mcp.NewTool("create_subject",
		mcp.WithDescription("Create a subject. Read the record contract first via "+
			"get_record_contract or the "+contractURI+" resource."),
		mcp.WithString("title", mcp.Required()),
		mcp.WithString("description", mcp.Required()),
		mcp.WithString("coverColor", mcp.Description("Hex color, default #e2e8f0")),
		mcp.WithString("visibility", mcp.Enum("private", "shared", "public")),
		mcp.WithArray("tags", stringList),
	), s.createSubject)

	s.mcp.AddTool(mcp.NewTool("update_subject",
		mcp.WithDescription("Change some fields of a subject. Omitted fields are kept."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Subject id")),
		mcp.WithString("title"),
		mcp.WithString("description"),
		mcp.WithString("coverColor"),
		mcp.WithString("visibility", mcp.Enum("private", "shared", "public")),
		mcp.WithArray("tags", stringList),
	), s.updateSubject)

	// Documents.
	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents of a subject, newest upload first."),
		mcp.WithNumber("subjectId", mcp.Required()),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Register a document for a subject. Upload the file first "+
			"with upload_file and pass the returned fileName."),
		mcp.WithNumber("subjectId", mcp.Required()),
		mcp.WithString("title", mcp.Required()),
		mcp.WithString("description", mcp.Required()),
		mcp.WithString("fileName", mcp.Required()),
		mcp.WithArray("tags", stringList),
		mcp.WithArray("linkedReportIds", idList),
	), s.createDocument)

	// Reports.
	s.mcp.AddTool(mcp.NewTool("list_reports",
		mcp.WithDescription("List the reports of a subject, most recently updated first."),
		mcp.WithNumber("subjectId", mcp.Required()),
	), s.listReports)

	s.mcp.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Get one report by id, including its Markdown content."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Report id")),
	), s.getReport)

	s.mcp.AddTool(mcp.NewTool("create_report",
		mcp.WithDescription("Create a report for a subject. Content is Markdown."),
		mcp.WithNumber("subjectId", mcp.Required()),
		mcp.WithString("title", mcp.Required()),
		mcp.WithString("content", mcp.Required()),
		mcp.WithString("status", mcp.Enum("draft", "final", "archived")),
		mcp.WithArray("tags", stringList),
		mcp.WithArray("linkedDocumentIds", idList),
	), s.createReport)

	s.mcp.AddTool(mcp.NewTool("update_report",
		mcp.WithDescription("Change some fields of a report. Omitted fields are kept."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Report id")),
		mcp.WithNumber("subjectId"),
		mcp.WithString("title"),
		mcp.WithString("content"),
		mcp.WithString("status", mcp.Enum("draft", "final", "archived")),
		mcp.WithArray("tags", stringList),
		mcp.WithArray("linkedDocumentIds", idList),
	), s.updateReport)

	s.mcp.AddTool(mcp.NewTool("get_timeline",
		mcp.WithDescription("Activity feed of a subject: uploads, report creations and edits, newest first."),
		mcp.WithNumber("subjectId", mcp.Required()),
	), s.getTimeline)

	s.mcp.AddTool(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the Scriptorium record contract: fields, defaults and allowed values. "+
			"Call this before creating or updating records."),
	), s.getRecordContract)

	if files != nil {
		s.mcp.AddTool(mcp.NewTool("upload_file",
			mcp.WithDescription("Store a document file from a base64 data URI. "+
				"Returns the fileName to use in create_document."),
			mcp.WithString("data", mcp.Required(), mcp.Description("data:<mime>;base64,<payload>")),
			mcp.WithString("filename", mcp.Description("Preferred file name; generated when empty")),
		), s.uploadFile)

		s.mcp.AddTool(mcp.NewTool("list_files",
			mcp.WithDescription("Stored document files sorted by name, with size and download URL."),
		), s.listFiles)
	}

	// Resource: record contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Record Contract",
			mcp.WithResourceDescription("Fields, defaults and allowed values of subjects, documents and reports."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolResult renders v as indented JSON, or err as a tool error.
func toolResult(v any, err error, kind string) (*mcp.CallToolResult, error) {
	if err != nil {
		var ve *schema.ValidationError
		switch {
		case errors.As(err, &ve):
			return mcp.NewToolResultError("invalid input: " + ve.Message), nil
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(kind + " not found"), nil
		default:
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// requireID reads a numeric argument as a record id.
func requireID(req mcp.CallToolRequest, name string) (int64, error) {
	f, err := req.RequireFloat(name)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// body re-encodes the tool arguments, minus the named keys, as the JSON body
// the workspace service validates.
func body(req mcp.CallToolRequest, drop ...string) []byte {
	args := make(map[string]any)
	for k, v := range req.GetArguments() {
		args[k] = v
	}
	for _, k := range drop {
		delete(args, k)
	}
	data, _ := json.Marshal(args)
	return data
}

func (s *Server) listSubjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListSubjects(ctx)
	return toolResult(items, err, "Subject")
}

func (s *Server) getSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	subj, err := s.svc.GetSubject(ctx, id)
	return toolResult(subj, err, "Subject")
}

func (s *Server) createSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subj, err := s.svc.CreateSubject(ctx, body(req))
	return toolResult(subj, err, "Subject")
}

func (s *Server) updateSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	subj, err := s.svc.UpdateSubject(ctx, id, body(req, "id"), "")
	return toolResult(subj, err, "Subject")
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectID, err := requireID(req, "subjectId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ListDocuments(ctx, subjectID)
	return toolResult(items, err, "Document")
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.svc.CreateDocument(ctx, body(req))
	return toolResult(doc, err, "Document")
}

func (s *Server) listReports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectID, err := requireID(req, "subjectId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ListReports(ctx, subjectID)
	return toolResult(items, err, "Report")
}

func (s *Server) getReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.svc.GetReport(ctx, id)
	return toolResult(rep, err, "Report")
}

func (s *Server) createReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.CreateReport(ctx, body(req))
	return toolResult(rep, err, "Report")
}

func (s *Server) updateReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.svc.UpdateReport(ctx, id, body(req, "id"), "")
	return toolResult(rep, err, "Report")
}

func (s *Server) getTimeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectID, err := requireID(req, "subjectId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, err := s.svc.Timeline(ctx, subjectID)
	return toolResult(events, err, "Subject")
}

func (s *Server) getRecordContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     RecordContract,
		},
	}, nil
}
