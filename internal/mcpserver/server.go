// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes jotter note tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/identity"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/search"
)

const sigilsURI = "jotter://sigils"

// Server wraps the MCP server with jotter tools. Every call acts as user.
type Server struct {
	mcp  *server.MCPServer
	svc  *noteservice.Service
	user identity.User
}

// New creates a new MCP server with all jotter tools registered.
func New(svc *noteservice.Service, user identity.User) *Server {
	s := &Server{svc: svc, user: user}

	s.mcp = server.NewMCPServer(
		"jotter",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Filter notes by owner and tags, then fuzzy-match the rest by title and body. "+
			"Title matches rank first."),
		mcp.WithString("query", mcp.Description("Fuzzy search text (empty keeps pinned/recent order)")),
		mcp.WithString("scope", mcp.Description("mine or all (default all)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; a note must carry all of them")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its derived content (markdown HTML, list items or structured data)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Create a note, or replace the text of one you own when id is given. "+
			"The first line is the title; its prefix selects how the body is read. "+
			"Read the sigil contract first via get_sigil_contract or the "+sigilsURI+" resource."),
		mcp.WithString("id", mcp.Description("Id of the note to update (omit to create)")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full note text: title line, newline, body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags replacing the current ones")),
		mcp.WithBoolean("pinned", mcp.Description("Pin the note to the top of listings")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note you own."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("get_sigil_contract",
		mcp.WithDescription("Returns the title prefixes that decide how a note body is interpreted. "+
			"Call this before saving notes."),
	), s.getSigilContract)

	s.mcp.AddResource(
		mcp.NewResource(sigilsURI, "Sigil Contract",
			mcp.WithResourceDescription("Title prefixes that select markdown, list or structured notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSigilsResource,
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := search.Query{Scope: search.ScopeAll}
	if v, err := req.RequireString("query"); err == nil {
		q.Text = v
	}
	if v, err := req.RequireString("scope"); err == nil {
		q.Scope = search.ParseScope(v)
	}
	if v, err := req.RequireString("tags"); err == nil {
		q.Tags = models.ParseTags(v)
	}

	notes, err := s.svc.Search(ctx, s.user, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type hit struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Kind   string   `json:"kind"`
		Author string   `json:"author"`
		Pinned bool     `json:"pinned"`
		Tags   []string `json:"tags"`
	}
	hits := make([]hit, 0, len(notes))
	for _, n := range notes {
		hits = append(hits, hit{n.ID, n.Title, string(n.Kind), n.Author, n.Pinned, n.Tags})
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	out, _ := json.MarshalIndent(n, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := noteservice.SaveInput{Text: text}
	if id, err := req.RequireString("id"); err == nil {
		in.ID = id
	}
	if tags, err := req.RequireString("tags"); err == nil {
		in.Tags = models.ParseTags(tags)
	}
	if pinned, err := req.RequireBool("pinned"); err == nil {
		in.Pinned = &pinned
	}

	n, err := s.svc.Save(ctx, s.user, in)
	if err != nil {
		return toolError(in.ID, err), nil
	}
	verb := "updated"
	if in.ID == "" {
		verb = "created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (%s)", verb, n.ID, n.Kind)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Delete(ctx, s.user, id); err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getSigilContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SigilContract), nil
}

func (s *Server) readSigilsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      sigilsURI,
			MIMEType: "text/markdown",
			Text:     SigilContract,
		},
	}, nil
}

// toolError hides ownership failures behind the not-found message.
func toolError(id string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrForbidden):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	case errors.Is(err, apperr.ErrUnauthenticated):
		return mcp.NewToolResultError("no identity configured for this server")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
