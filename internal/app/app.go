package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopherctl/gopherctl/internal/agent"
	"github.com/gopherctl/gopherctl/internal/audit"
	"github.com/gopherctl/gopherctl/internal/cache"
	"github.com/gopherctl/gopherctl/internal/chat"
	"github.com/gopherctl/gopherctl/internal/client"
	"github.com/gopherctl/gopherctl/internal/commands"
	"github.com/gopherctl/gopherctl/internal/config"
	appcontext "github.com/gopherctl/gopherctl/internal/context"
	"github.com/gopherctl/gopherctl/internal/hooks"
	"github.com/gopherctl/gopherctl/internal/logging"
	"github.com/gopherctl/gopherctl/internal/mcp"
	"github.com/gopherctl/gopherctl/internal/permission"
	"github.com/gopherctl/gopherctl/internal/plan"
	"github.com/gopherctl/gopherctl/internal/ratelimit"
	"github.com/gopherctl/gopherctl/internal/router"
	"github.com/gopherctl/gopherctl/internal/semantic"
	"github.com/gopherctl/gopherctl/internal/tasks"
	"github.com/gopherctl/gopherctl/internal/tools"
	"github.com/gopherctl/gopherctl/internal/undo"
	"github.com/gopherctl/gopherctl/internal/watcher"
)

// SystemPrompt is the default system prompt for the assistant.
const SystemPrompt = `You are gopherctl, an AI assistant for software development. You help users work with code by:
- Reading and understanding code files
- Writing and editing code
- Running shell commands
- Searching for files and content
- Managing tasks

The user's working directory is: %s`

// App is the application orchestrator driving the Turn Engine and Stream
// Orchestrator from a stdio surface. Terminal UI rendering, markdown
// display, and slash-command dispatch chrome are an external collaborator's
// job (spec.md §1); this App is the minimal stub that collaborator talks
// to — it exposes commands.AppInterface and drives one prompt at a time
// through StreamOrchestrator.Submit.
type App struct {
	config   *config.Config
	workDir  string
	client   client.Client
	registry *tools.Registry
	executor *tools.Executor
	session  *chat.Session

	ctx    context.Context
	cancel context.CancelFunc

	projectInfo    *appcontext.ProjectInfo
	contextManager *appcontext.ContextManager
	promptBuilder  *appcontext.PromptBuilder
	contextAgent   *appcontext.ContextAgent

	permManager      *permission.Manager
	permResponseChan chan permission.Decision

	questionResponseChan chan string

	planManager      *plan.Manager
	planApprovalChan chan plan.ApprovalDecision

	hooksManager *hooks.Manager
	taskManager  *tasks.Manager
	undoManager  *undo.Manager
	agentRunner  *agent.Runner

	commandHandler *commands.Handler

	totalInputTokens  int
	totalOutputTokens int

	responseToolsUsed []string
	toolUsageCounts   map[string]int

	sessionManager *chat.SessionManager

	searchCache     *cache.SearchCache
	rateLimiter     *ratelimit.Limiter
	auditLogger     *audit.Logger
	fileWatcher     *watcher.Watcher
	semanticIndexer *semantic.EnhancedIndexer
	backgroundIndexer *semantic.BackgroundIndexer

	taskRouter *router.Router

	scratchpad string

	// streamOrch is the Stream Orchestrator driving the Turn Engine.
	streamOrch *StreamOrchestrator

	coordinator       *agent.Coordinator
	agentTypeRegistry *agent.AgentTypeRegistry
	strategyOptimizer *agent.StrategyOptimizer
	metaAgent         *agent.MetaAgent

	treePlanner         *agent.TreePlanner
	planningModeEnabled bool

	mcpManager *mcp.Manager

	streamedChars int

	mu      sync.Mutex
	running bool

	processingCancel context.CancelFunc
	processingMu     sync.Mutex

	signalCleanup func()
}

// New creates a new application instance.
func New(cfg *config.Config, workDir string) (*App, error) {
	return NewBuilder(cfg, workDir).Build()
}

// Run starts the stdio REPL: read a line, dispatch slash commands through
// the command handler, or submit it as a prompt to the Stream Orchestrator
// and print StreamEvents as they arrive.
func (a *App) Run() error {
	configDir, err := appcontext.GetConfigDir()
	if err == nil && a.config.Logging.Level != "" {
		level := logging.ParseLevel(a.config.Logging.Level)
		if err := logging.EnableFileLogging(configDir, level); err != nil {
			logging.DisableLogging()
		}
	} else {
		logging.DisableLogging()
	}

	if a.hooksManager != nil {
		a.hooksManager.RunOnStart(a.ctx)
	}

	var sessionRestored bool
	if a.sessionManager != nil {
		state, info, err := a.sessionManager.LoadLast()
		if err == nil && state != nil && len(state.History) > 2 {
			if restoreErr := a.sessionManager.RestoreFromState(state); restoreErr != nil {
				logging.Warn("failed to restore session", "error", restoreErr)
			} else {
				sessionRestored = true
				a.scratchpad = a.session.GetScratchpad()
				if a.agentRunner != nil {
					a.agentRunner.SetSharedScratchpad(a.scratchpad)
				}
				fmt.Printf("Restored session from %s (%d messages)\n",
					info.LastActive.Format("2006-01-02 15:04"), len(state.History))
			}
		}
	}

	if !sessionRestored {
		systemPrompt := a.promptBuilder.Build()
		a.session.AddUserMessage(systemPrompt)
		a.session.AddModelMessage("I understand. I'm ready to help you with your code. What would you like to do?")
	}

	if a.sessionManager != nil {
		a.sessionManager.Start(a.ctx)
	}

	if a.planManager != nil && a.planManager.HasPausedPlan() {
		if plans, err := a.planManager.ListResumablePlans(); err == nil && len(plans) > 0 {
			latest := plans[0]
			fmt.Printf("Paused plan found: %s (%d/%d steps complete) — use /resume-plan to continue.\n",
				latest.Title, latest.Completed, latest.StepCount)
		}
	}

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	if a.contextAgent != nil {
		go a.contextAgent.Start(a.ctx)
	}

	a.signalCleanup = a.setupSignalHandler()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if a.taskManager != nil {
					a.taskManager.Cleanup(30 * time.Minute)
				}
			case <-a.ctx.Done():
				return
			}
		}
	}()

	if a.fileWatcher != nil {
		a.fileWatcher.SetOnFileChange(func(path string, op watcher.Operation) {
			if a.searchCache != nil {
				a.searchCache.InvalidateByPath(path)
			}
		})
		if err := a.fileWatcher.Start(); err != nil {
			logging.Warn("failed to start file watcher", "error", err)
		}
	}

	if a.semanticIndexer != nil && a.config.Semantic.IndexOnStart {
		go func() {
			if err := a.semanticIndexer.LoadOrIndex(a.ctx, true, 24*time.Hour); err != nil {
				logging.Error("semantic indexing failed", "error", err)
			}
		}()
	}

	fmt.Printf("gopherctl ready in %s — type a message, or /help for commands.\n", a.workDir)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		if name, args, ok := a.commandHandler.Parse(line); ok {
			out, err := a.commandHandler.Execute(a.ctx, name, args, a)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			if out != "" {
				fmt.Println(out)
			}
			continue
		}

		a.handleSubmit(line)
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	if a.sessionManager != nil {
		a.sessionManager.Stop()
	}

	a.gracefulShutdown(a.ctx)
	return nil
}

// handleSubmit submits one line of input as a turn through the Stream
// Orchestrator, printing StreamEvents as they are produced.
func (a *App) handleSubmit(message string) {
	a.processingMu.Lock()
	turnCtx, cancel := context.WithCancel(a.ctx)
	a.processingCancel = cancel
	a.processingMu.Unlock()
	defer func() {
		a.processingMu.Lock()
		a.processingCancel = nil
		a.processingMu.Unlock()
	}()

	a.session.AddUserMessage(message)

	modelName := a.config.Model.Name
	_, err := a.streamOrch.Submit(turnCtx, "default", message, 0, modelName, func(ev StreamEvent) {
		switch ev.Kind {
		case StreamContent:
			fmt.Print(ev.Text)
		case StreamFinished:
			fmt.Println()
		case StreamCancelled:
			fmt.Println(ev.Text)
		case StreamMaxSessionTurns:
			fmt.Println("[" + ev.Text + "]")
		case StreamError:
			fmt.Fprintf(os.Stderr, "\n[error] %v\n", ev.Err)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	go a.refreshTokenCount()
}

// recordToolUsage tracks per-tool invocation counts for pattern learning
// and response metadata (spec.md §7 response metadata bundle).
func (a *App) recordToolUsage(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.toolUsageCounts == nil {
		a.toolUsageCounts = make(map[string]int)
	}
	a.toolUsageCounts[name]++
}

// sendTokenUsageUpdate logs token usage; there is no UI status bar to push to.
func (a *App) sendTokenUsageUpdate() {
	if a.contextManager == nil {
		return
	}
	usage := a.contextManager.GetTokenUsage()
	if usage == nil {
		return
	}
	logging.Debug("token usage", "tokens", usage.InputTokens, "max", usage.MaxTokens, "percent", usage.PercentUsed)
}

// refreshTokenCount recalculates token count from session history.
func (a *App) refreshTokenCount() {
	if a.contextManager == nil {
		return
	}
	if err := a.contextManager.UpdateTokenCount(context.Background()); err != nil {
		return
	}
	a.sendTokenUsageUpdate()
}

// GetSession returns the chat session.
func (a *App) GetSession() *chat.Session { return a.session }

// GetHistoryManager returns a new history manager.
func (a *App) GetHistoryManager() (*chat.HistoryManager, error) {
	return chat.NewHistoryManager()
}

// GetContextManager returns the context manager.
func (a *App) GetContextManager() *appcontext.ContextManager { return a.contextManager }

// GetUndoManager returns the undo manager.
func (a *App) GetUndoManager() *undo.Manager { return a.undoManager }

// GetWorkDir returns the working directory.
func (a *App) GetWorkDir() string { return a.workDir }

// ClearConversation clears the session history.
func (a *App) ClearConversation() {
	a.session.Clear()
	systemPrompt := a.promptBuilder.Build()
	a.session.AddUserMessage(systemPrompt)
	a.session.AddModelMessage("I understand. I'm ready to help you with your code. What would you like to do?")
}

// CompactContextWithPlan clears the conversation and injects the plan
// summary, freeing up context space once a plan is approved.
func (a *App) CompactContextWithPlan(planSummary string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.Clear()
	systemPrompt := a.promptBuilder.Build()
	a.session.AddUserMessage(systemPrompt)

	if planSummary != "" {
		a.session.AddModelMessage(fmt.Sprintf("I've analyzed the task and created a plan. Here's the summary:\n\n%s\n\nI'll now execute this plan step by step.", planSummary))
	} else {
		a.session.AddModelMessage("I understand. I'm ready to execute the plan.")
	}

	logging.Info("context compacted for plan execution", "session_id", a.session.ID, "plan_summary_length", len(planSummary))
}

// GetTodoTool returns the todo tool from the registry.
func (a *App) GetTodoTool() *tools.TodoTool {
	if t, ok := a.registry.Get("todo"); ok {
		if tt, ok := t.(*tools.TodoTool); ok {
			return tt
		}
	}
	return nil
}

// GetConfig returns the current configuration.
func (a *App) GetConfig() *config.Config { return a.config }

// GetTokenStats returns token usage statistics for the session.
func (a *App) GetTokenStats() commands.TokenStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return commands.TokenStats{
		InputTokens:  a.totalInputTokens,
		OutputTokens: a.totalOutputTokens,
		TotalTokens:  a.totalInputTokens + a.totalOutputTokens,
	}
}

// GetModelSetter returns the client for model switching.
func (a *App) GetModelSetter() commands.ModelSetter { return a.client }

// TogglePermissions toggles the permission system on/off.
func (a *App) TogglePermissions() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.permManager == nil {
		return false
	}
	newEnabled := !a.permManager.IsEnabled()
	a.permManager.SetEnabled(newEnabled)
	a.updateUnrestrictedModeLocked()
	return newEnabled
}

// TogglePlanningMode toggles the tree planning mode on/off.
func (a *App) TogglePlanningMode() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.planningModeEnabled = !a.planningModeEnabled
	if a.agentRunner != nil {
		a.agentRunner.SetPlanningModeEnabled(a.planningModeEnabled)
	}
	return a.planningModeEnabled
}

// IsPlanningModeEnabled returns whether planning mode is active.
func (a *App) IsPlanningModeEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.planningModeEnabled
}

// ToggleSandbox toggles the bash sandbox mode on/off.
func (a *App) ToggleSandbox() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.Tools.Bash.Sandbox = !a.config.Tools.Bash.Sandbox
	if err := a.config.Save(); err != nil {
		logging.Warn("failed to save sandbox setting", "error", err)
	}
	a.updateUnrestrictedModeLocked()
	return a.config.Tools.Bash.Sandbox
}

// GetSandboxState returns whether sandbox mode is enabled.
func (a *App) GetSandboxState() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.Tools.Bash.Sandbox
}

// updateUnrestrictedModeLocked updates the executor's unrestricted mode
// based on current sandbox and permission state. Must hold a.mu.
func (a *App) updateUnrestrictedModeLocked() {
	if a.executor == nil {
		return
	}
	sandboxOff := !a.config.Tools.Bash.Sandbox
	permissionOff := a.permManager == nil || !a.permManager.IsEnabled()
	unrestricted := sandboxOff && permissionOff
	a.executor.SetUnrestrictedMode(unrestricted)
	if a.registry != nil {
		if bashTool, ok := a.registry.Get("bash"); ok {
			if bt, ok := bashTool.(*tools.BashTool); ok {
				bt.SetUnrestrictedMode(unrestricted)
			}
		}
	}
}

// GetProjectInfo returns the detected project information.
func (a *App) GetProjectInfo() *appcontext.ProjectInfo { return a.projectInfo }

// GetSemanticIndexer returns the semantic search indexer.
func (a *App) GetSemanticIndexer() (*semantic.EnhancedIndexer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.semanticIndexer == nil {
		return nil, fmt.Errorf("semantic search not enabled")
	}
	return a.semanticIndexer, nil
}

// GetPlanManager returns the plan manager.
func (a *App) GetPlanManager() *plan.Manager { return a.planManager }

// GetTreePlanner returns the tree planner.
func (a *App) GetTreePlanner() *agent.TreePlanner { return a.treePlanner }

// GetAgentTypeRegistry returns the agent type registry.
func (a *App) GetAgentTypeRegistry() *agent.AgentTypeRegistry { return a.agentTypeRegistry }

// ApplyConfig saves the given configuration and re-initializes affected components.
func (a *App) ApplyConfig(cfg *config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := cfg.Save(); err != nil {
		logging.Warn("failed to save config to file", "error", err)
	}
	a.config = cfg

	newClient, err := client.NewClient(a.ctx, a.config, a.config.Model.Name)
	if err != nil {
		return fmt.Errorf("failed to re-initialize client: %w", err)
	}
	a.client = newClient

	if a.executor != nil {
		a.executor.SetClient(newClient)
		if a.registry != nil {
			newClient.SetTools(a.registry.GeminiTools())
		}
	}
	if a.agentRunner != nil {
		a.agentRunner.SetClient(newClient)
		a.agentRunner.SetContextConfig(&a.config.Context)
	}
	if a.contextManager != nil {
		a.contextManager.SetConfig(&a.config.Context)
		a.contextManager.SetClient(newClient)
	}
	if a.config.RateLimit.Enabled && a.rateLimiter == nil {
		a.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: a.config.RateLimit.RequestsPerMinute,
			TokensPerMinute:   a.config.RateLimit.TokensPerMinute,
			BurstSize:         a.config.RateLimit.BurstSize,
		})
	}
	if a.rateLimiter != nil {
		a.client.SetRateLimiter(a.rateLimiter)
	}
	if a.permManager != nil {
		a.permManager.SetEnabled(a.config.Permission.Enabled)
	}
	if a.registry != nil {
		if bashTool, ok := a.registry.Get("bash"); ok {
			if bt, ok := bashTool.(*tools.BashTool); ok {
				bt.SetSandboxEnabled(a.config.Tools.Bash.Sandbox)
			}
		}
	}
	if a.config.Cache.Enabled && a.searchCache == nil {
		a.searchCache = cache.NewSearchCache(a.config.Cache.Capacity, a.config.Cache.TTL)
	}

	logging.Info("configuration applied successfully", "model", a.config.Model.Name)
	return nil
}

// CancelProcessing cancels the current processing request.
func (a *App) CancelProcessing() {
	a.processingMu.Lock()
	defer a.processingMu.Unlock()
	if a.processingCancel != nil {
		a.processingCancel()
		a.processingCancel = nil
	}
	a.streamOrch.Cancel()
}

// GetVersion returns the current application version.
func (a *App) GetVersion() string { return a.config.Version }

// AddSystemMessage prints a system-originated message to stdout; there is
// no TUI chat pane to append to.
func (a *App) AddSystemMessage(msg string) {
	fmt.Println(msg)
}

// promptPermission asks on stdin/stdout whether a tool execution should
// proceed. It replaces the teacher's ui.PermissionRequestMsg/response-channel
// round trip with a direct synchronous prompt — there is no TUI to route
// the decision through.
func (a *App) promptPermission(ctx context.Context, req *permission.Request) (permission.Decision, map[string]any, error) {
	fmt.Printf("\nPermission requested: %s (risk: %s)\n  %s\n", req.ToolName, req.RiskLevel, req.Reason)
	fmt.Print("  [y]es once / [a]lways this session / [n]o / [d]eny session: ")

	answer, err := a.readLine(ctx)
	if err != nil {
		return permission.DecisionDeny, nil, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "a", "always":
		return permission.DecisionAllowSession, nil, nil
	case "n", "no":
		return permission.DecisionDeny, nil, nil
	case "d", "deny":
		return permission.DecisionDenySession, nil, nil
	default:
		return permission.DecisionAllow, nil, nil
	}
}

// promptQuestion asks the user a free-form or multiple-choice question on
// stdin/stdout, used both by the ask_user tool and as the agent runner's
// generic input callback.
func (a *App) promptQuestion(ctx context.Context, question string, options []string, defaultOpt string) (string, error) {
	fmt.Printf("\n%s\n", question)
	if len(options) > 0 {
		for i, opt := range options {
			fmt.Printf("  [%d] %s\n", i+1, opt)
		}
	}
	if defaultOpt != "" {
		fmt.Printf("(default: %s) ", defaultOpt)
	}
	fmt.Print("> ")

	answer, err := a.readLine(ctx)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultOpt, nil
	}
	return answer, nil
}

// promptPlanApproval prints the plan's steps and asks for approval before
// execution begins.
func (a *App) promptPlanApproval(ctx context.Context, p *plan.Plan) (plan.ApprovalDecision, error) {
	fmt.Printf("\nProposed plan: %s\n%s\n", p.Title, p.Description)
	for _, step := range p.Steps {
		fmt.Printf("  %d. %s\n", step.ID, step.Title)
	}
	fmt.Print("Approve? [y]es / [n]o / [m]odify: ")

	answer, err := a.readLine(ctx)
	if err != nil {
		return plan.ApprovalRejected, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "m", "modify":
		return plan.ApprovalModified, nil
	case "n", "no":
		return plan.ApprovalRejected, nil
	default:
		return plan.ApprovalApproved, nil
	}
}

// handlePlanProgressUpdate logs plan execution progress; there is no
// progress bar widget to push updates to.
func (a *App) handlePlanProgressUpdate(progress *plan.ProgressUpdate) {
	if progress == nil {
		return
	}
	fmt.Printf("[plan %s] step %d/%d: %s (%s)\n",
		progress.PlanID, progress.Completed, progress.TotalSteps, progress.CurrentTitle, progress.Status)
}

// promptDiffDecision shows a unified-style summary of a pending write/edit
// and asks whether to apply it.
func (a *App) promptDiffDecision(ctx context.Context, filePath, oldContent, newContent, toolName string, isNewFile bool) (bool, error) {
	if isNewFile {
		fmt.Printf("\n%s wants to create %s (%d bytes)\n", toolName, filePath, len(newContent))
	} else {
		fmt.Printf("\n%s wants to modify %s (%d -> %d bytes)\n", toolName, filePath, len(oldContent), len(newContent))
	}
	fmt.Print("Apply this change? [y/n]: ")

	answer, err := a.readLine(ctx)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "" || answer == "y" || answer == "yes", nil
}

// readLine reads one line from stdin, honoring context cancellation.
func (a *App) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return r.line, nil
	}
}

// agentRunnerAdapter wraps agent.Runner to implement tools.AgentRunner.
type agentRunnerAdapter struct {
	runner *agent.Runner
}

func (a *agentRunnerAdapter) Spawn(ctx context.Context, agentType string, prompt string, maxTurns int, model string) (string, error) {
	return a.runner.Spawn(ctx, agentType, prompt, maxTurns, model)
}

func (a *agentRunnerAdapter) SpawnAsync(ctx context.Context, agentType string, prompt string, maxTurns int, model string) string {
	return a.runner.SpawnAsync(ctx, agentType, prompt, maxTurns, model)
}

func (a *agentRunnerAdapter) SpawnAsyncWithStreaming(ctx context.Context, agentType string, prompt string, maxTurns int, model string, onText func(string), onProgress func(id string, progress *tools.AgentProgress)) string {
	var agentProgressCb func(id string, progress *agent.AgentProgress)
	if onProgress != nil {
		agentProgressCb = func(id string, progress *agent.AgentProgress) {
			if progress != nil {
				onProgress(id, &tools.AgentProgress{
					AgentID:       progress.AgentID,
					CurrentStep:   progress.CurrentStep,
					TotalSteps:    progress.TotalSteps,
					CurrentAction: progress.CurrentAction,
					Elapsed:       progress.Elapsed,
					ToolsUsed:     progress.ToolsUsed,
				})
			}
		}
	}
	return a.runner.SpawnAsyncWithStreaming(ctx, agentType, prompt, maxTurns, model, onText, agentProgressCb)
}

func (a *agentRunnerAdapter) Resume(ctx context.Context, agentID string, prompt string) (string, error) {
	return a.runner.Resume(ctx, agentID, prompt)
}

func (a *agentRunnerAdapter) ResumeAsync(ctx context.Context, agentID string, prompt string) (string, error) {
	return a.runner.ResumeAsync(ctx, agentID, prompt)
}

func (a *agentRunnerAdapter) GetResult(agentID string) (tools.AgentResult, bool) {
	result, ok := a.runner.GetResult(agentID)
	if !ok || result == nil {
		return tools.AgentResult{}, false
	}
	return tools.AgentResult{
		AgentID:   result.AgentID,
		Type:      string(result.Type),
		Status:    string(result.Status),
		Output:    result.Output,
		Error:     result.Error,
		Duration:  result.Duration,
		Completed: result.Completed,
	}, true
}

// diffHandlerAdapter wraps App to implement tools.DiffHandler.
type diffHandlerAdapter struct {
	app *App
}

func (d *diffHandlerAdapter) PromptDiff(ctx context.Context, filePath, oldContent, newContent, toolName string, isNewFile bool) (bool, error) {
	return d.app.promptDiffDecision(ctx, filePath, oldContent, newContent, toolName, isNewFile)
}
