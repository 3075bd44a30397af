package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	"github.com/igoryan-dao/thinking-tools/internal/classifier"
	"github.com/igoryan-dao/thinking-tools/internal/conversation"
	"github.com/igoryan-dao/thinking-tools/internal/search"
	"github.com/igoryan-dao/thinking-tools/internal/sessions"
)

const (
	serverName    = "thinking-tools"
	serverVersion = "1.0.0"

	// MethodsURI is the catalog resource
	MethodsURI = "thinking://methods"

	dormantText = "(잠수함 모드: 트리거가 감지되지 않아 응답하지 않습니다)"
)

// getArgs extracts arguments from request as map[string]any
func getArgs(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return make(map[string]any)
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// argInt accepts JSON numbers and numeric strings
func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func replyResult(r conversation.Reply) (*mcp.CallToolResult, error) {
	if r.Silent {
		return mcp.NewToolResultText(dormantText), nil
	}
	return mcp.NewToolResultText(r.Text), nil
}

// Server exposes the thinking flow over MCP
type Server struct {
	mcpServer   *server.MCPServer
	hub         *conversation.Hub
	deps        conversation.Deps
	defaultUser string
	logger      *zap.Logger
}

// NewServer creates a new MCP server around hub. Calls without a
// conversation_id share the conversation of defaultUser.
func NewServer(hub *conversation.Hub, defaultUser string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultUser == "" {
		defaultUser = "local"
	}
	s := &Server{
		hub:         hub,
		deps:        hub.Deps(),
		defaultUser: defaultUser,
		logger:      logger,
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)
	s.registerPrompts(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// MCPServer returns the underlying server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func conversationArg() mcp.ToolOption {
	return mcp.WithString("conversation_id",
		mcp.Description("Conversation to act on; defaults to the local user's conversation"),
	)
}

// registerTools adds all MCP tools
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	// Tool: think - Raw chat message through the trigger detector
	thinkTool := mcp.NewTool("think",
		mcp.WithDescription("Pass a chat message through the thinking-tools trigger detector. Stays silent until /think or 씽킹툴 appears, then guides the user through a method step by step"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message, verbatim"),
		),
		conversationArg(),
	)
	mcpServer.AddTool(thinkTool, s.handleThink)

	classifyTool := mcp.NewTool("classify_problem",
		mcp.WithDescription("Classify a problem into a category and recommend up to three thinking methods"),
		mcp.WithString("problem",
			mcp.Required(),
			mcp.Description("Problem statement"),
		),
	)
	mcpServer.AddTool(classifyTool, s.handleClassify)

	questionTool := mcp.NewTool("get_question",
		mcp.WithDescription("Get the question for a method step (0-based)"),
		mcp.WithString("method_id",
			mcp.Required(),
			mcp.Description("Method id, e.g. five_whys"),
		),
		mcp.WithNumber("step",
			mcp.Description("0-based step index, default 0"),
		),
		mcp.WithString("context",
			mcp.Description("Problem text substituted into the question"),
		),
	)
	mcpServer.AddTool(questionTool, s.handleGetQuestion)

	listTool := mcp.NewTool("list_methods",
		mcp.WithDescription("List thinking methods, optionally filtered by category"),
		mcp.WithString("category",
			mcp.Description("One of analytical, creative, strategic, technical, product, organizational, personal"),
		),
	)
	mcpServer.AddTool(listTool, s.handleListMethods)

	infoTool := mcp.NewTool("method_info",
		mcp.WithDescription("Describe one thinking method"),
		mcp.WithString("method_id",
			mcp.Required(),
			mcp.Description("Method id"),
		),
	)
	mcpServer.AddTool(infoTool, s.handleMethodInfo)

	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a guided session with a method and return its first question"),
		mcp.WithString("method_id",
			mcp.Required(),
			mcp.Description("Method id"),
		),
		mcp.WithString("problem",
			mcp.Description("Problem statement"),
		),
		conversationArg(),
	)
	mcpServer.AddTool(startTool, s.handleStartSession)

	answerTool := mcp.NewTool("submit_answer",
		mcp.WithDescription("Record the answer to the current question and return the next question or the summary"),
		mcp.WithString("answer",
			mcp.Required(),
			mcp.Description("Answer text, stored verbatim"),
		),
		conversationArg(),
	)
	mcpServer.AddTool(answerTool, s.handleSubmitAnswer)

	endTool := mcp.NewTool("end_session",
		mcp.WithDescription("End the current session and return its summary"),
		conversationArg(),
	)
	mcpServer.AddTool(endTool, s.handleEndSession)

	loadTool := mcp.NewTool("load_session",
		mcp.WithDescription("Resume a stored session by id"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id from session_history"),
		),
		conversationArg(),
	)
	mcpServer.AddTool(loadTool, s.handleLoadSession)

	statusTool := mcp.NewTool("session_status",
		mcp.WithDescription("Show the current session state as JSON"),
		conversationArg(),
	)
	mcpServer.AddTool(statusTool, s.handleSessionStatus)

	historyTool := mcp.NewTool("session_history",
		mcp.WithDescription("List stored sessions, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of sessions, default 10"),
		),
		conversationArg(),
	)
	mcpServer.AddTool(historyTool, s.handleSessionHistory)

	searchTool := mcp.NewTool("search_methods",
		mcp.WithDescription("Semantic search over the method catalog"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free text description of the problem"),
		),
		mcp.WithString("category",
			mcp.Description("Optional category filter"),
		),
		mcp.WithString("difficulty",
			mcp.Description("Optional difficulty filter (beginner, intermediate, advanced)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results, default 5"),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearchMethods)

	helpTool := mcp.NewTool("help",
		mcp.WithDescription("Show the chat command reference"),
	)
	mcpServer.AddTool(helpTool, s.handleHelp)
}

// registerResources adds MCP resources
func (s *Server) registerResources(mcpServer *server.MCPServer) {
	methodsRes := mcp.NewResource(MethodsURI, "Thinking method catalog",
		mcp.WithResourceDescription("Every method with its category, steps and questions"),
		mcp.WithMIMEType("application/json"),
	)
	mcpServer.AddResource(methodsRes, s.handleReadMethods)
}

// registerPrompts adds MCP prompts
func (s *Server) registerPrompts(mcpServer *server.MCPServer) {
	instrPrompt := mcp.NewPrompt("thinking/instructions",
		mcp.WithPromptDescription("How to relay a thinking-tools session to the user"),
	)
	mcpServer.AddPrompt(instrPrompt, s.handleGetInstructions)
}

func (s *Server) key(args map[string]any) string {
	if id := argString(args, "conversation_id"); id != "" {
		return id
	}
	return s.defaultUser
}

func (s *Server) handleThink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	message, ok := args["message"].(string)
	if !ok {
		return mcp.NewToolResultError("message parameter is required"), nil
	}

	reply := s.hub.Handle(ctx, s.key(args), message)
	s.logger.Debug("think", zap.String("action", reply.Action.String()))
	return replyResult(reply)
}

func (s *Server) handleClassify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	problem := argString(getArgs(request), "problem")
	if problem == "" {
		return mcp.NewToolResultError("problem parameter is required"), nil
	}

	result := s.deps.Classifier.Classify(problem)
	return jsonResult(struct {
		classifier.Result
		Formatted string `json:"formatted"`
	}{result, classifier.FormatRecommendations(result)})
}

func (s *Server) handleGetQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	methodID := argString(args, "method_id")
	if methodID == "" {
		return mcp.NewToolResultError("method_id parameter is required"), nil
	}

	q := s.deps.Engine.Generate(methodID, argInt(args, "step", 0), argString(args, "context"))
	if q.Failed() {
		data, _ := json.Marshal(q)
		return mcp.NewToolResultError(string(data)), nil
	}
	return jsonResult(q)
}

func (s *Server) handleListMethods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := catalog.Category(argString(getArgs(request), "category"))
	if category != "" && !category.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", category)), nil
	}
	return jsonResult(s.deps.Engine.ListMethods(category))
}

func (s *Server) handleMethodInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	methodID := argString(getArgs(request), "method_id")

	tmpl, ok := s.deps.Catalog.Get(methodID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown method: %s (available: %s)",
			methodID, strings.Join(s.deps.Catalog.IDs(), ", "))), nil
	}
	return jsonResult(tmpl)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	methodID := argString(args, "method_id")
	if !s.deps.Catalog.Has(methodID) {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown method: %s", methodID)), nil
	}

	var reply conversation.Reply
	s.hub.With(s.key(args), func(c *conversation.Conversation) {
		reply = c.Start(ctx, methodID, argString(args, "problem"))
	})
	return replyResult(reply)
}

func (s *Server) handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	answer, ok := args["answer"].(string)
	if !ok {
		return mcp.NewToolResultError("answer parameter is required"), nil
	}

	var (
		reply conversation.Reply
		live  bool
	)
	s.hub.With(s.key(args), func(c *conversation.Conversation) {
		if _, live = c.Manager().Current(); live {
			reply = c.Answer(ctx, answer)
		}
	})
	if !live {
		return mcp.NewToolResultError("no active session; call start_session first"), nil
	}
	return replyResult(reply)
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var reply conversation.Reply
	s.hub.With(s.key(getArgs(request)), func(c *conversation.Conversation) {
		reply = c.End(ctx)
	})
	return replyResult(reply)
}

func (s *Server) handleLoadSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	sessionID := argString(args, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	var (
		reply conversation.Reply
		err   error
	)
	s.hub.With(s.key(args), func(c *conversation.Conversation) {
		var st *sessions.State
		st, err = s.deps.Store.Load(ctx, sessionID)
		if err == nil && st.UserID != c.UserID() {
			err = sessions.ErrNotFound
		}
		if err == nil {
			reply = c.Resume(ctx, sessionID)
		}
	})
	if errors.Is(err, sessions.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", sessionID)), nil
	}
	if err != nil {
		s.logger.Warn("failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
	}
	return replyResult(reply)
}

func (s *Server) handleSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		state *sessions.State
		live  bool
	)
	s.hub.With(s.key(getArgs(request)), func(c *conversation.Conversation) {
		state, live = c.Manager().Current()
	})
	if !live {
		return mcp.NewToolResultText("진행 중인 세션이 없습니다."), nil
	}
	return jsonResult(state)
}

func (s *Server) handleSessionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	limit := argInt(args, "limit", 10)

	var (
		states []*sessions.State
		err    error
	)
	s.hub.With(s.key(args), func(c *conversation.Conversation) {
		states, err = c.Manager().History(ctx, c.UserID(), limit)
	})
	if err != nil {
		s.logger.Warn("failed to list sessions", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	return mcp.NewToolResultText(sessions.FormatHistory(states)), nil
}

func (s *Server) handleSearchMethods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	q := search.Query{
		Text:       argString(args, "query"),
		Category:   catalog.Category(argString(args, "category")),
		Difficulty: argString(args, "difficulty"),
		Limit:      argInt(args, "limit", search.DefaultLimit),
	}
	if q.Text == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	results := search.Safe(ctx, s.deps.Search, q, s.logger)
	if results == nil {
		results = []search.Result{}
	}
	return jsonResult(results)
}

func (s *Server) handleHelp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var text string
	s.hub.With(s.key(getArgs(request)), func(c *conversation.Conversation) {
		text = c.Help()
	})
	return mcp.NewToolResultText(text), nil
}

// handleReadMethods returns the catalog as JSON
func (s *Server) handleReadMethods(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.deps.Catalog.Templates(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// handleGetInstructions returns system instructions for the agent
func (s *Server) handleGetInstructions(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	instructions := `### THINKING TOOLS
You relay a guided problem-solving session between the user and the thinking-tools server.

### RULES OF OPERATION:
1. **SUBMARINE MODE**: Pass user messages to 'think'. When it answers with the dormant marker, say nothing about it and carry on normally.
2. **VERBATIM**: Show the returned text to the user as is. Do not answer the questions yourself.
3. **ONE QUESTION AT A TIME**: Send each user reply back through 'think' (or 'submit_answer' once a session is running) until the summary arrives.
4. **ESCAPE HATCH**: '/done' ends the session, '/help' lists commands.`

	return &mcp.GetPromptResult{
		Description: "Thinking Tools relay instructions",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: instructions,
				},
			},
		},
	}, nil
}

// Run serves MCP over stdio until the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server in stdio mode",
		zap.Int("methods", s.deps.Catalog.Len()),
		zap.String("search", s.deps.Search.Name()))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}
