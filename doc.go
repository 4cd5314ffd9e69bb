// Package claudeflow runs the Claude CLI agent as a subprocess, exposes its
// line-delimited JSON output as a stream of typed messages, and orchestrates
// many such sessions in parallel, in pipelines and with retries.
//
// # Basic Usage
//
// For a one-shot query, range over Query:
//
//	ctx := context.Background()
//	for msg, err := range claudeflow.Query(ctx, "What is 2+2?",
//	    claudeflow.WithPermissionMode("acceptEdits"),
//	    claudeflow.WithMaxTurns(1),
//	) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    switch msg.Kind {
//	    case claudeflow.KindAssistant:
//	        fmt.Println(msg.Text())
//	    case claudeflow.KindResultSuccess:
//	        cost, _ := msg.CostUSD()
//	        fmt.Printf("Cost: $%.4f\n", cost)
//	    }
//	}
//
// OpenStream returns the same messages as a pull cursor. Closing the stream,
// or breaking out of the Query loop, terminates the subprocess.
//
// # Orchestration
//
// NewOrchestrator runs specs through the CLI:
//
//	o := claudeflow.NewOrchestrator(claudeflow.NewOptions(claudeflow.WithMaxTurns(1)))
//
//	outcomes := o.Parallel(ctx, []claudeflow.Spec{
//	    {Name: "go", Prompt: "Summarize Go in one line"},
//	    {Name: "rust", Prompt: "Summarize Rust in one line"},
//	}, claudeflow.ParallelConfig{MaxConcurrency: 2})
//
//	result, err := o.Pipeline(ctx, []claudeflow.Stage{
//	    {Spec: claudeflow.Spec{Prompt: "List three sorting algorithms"}},
//	    {Spec: claudeflow.Spec{Prompt: "Pick the fastest of these"}},
//	}, claudeflow.PipelineConfig{})
//
//	out := o.Retry(ctx, claudeflow.Spec{Prompt: "..."}, claudeflow.RetryPolicy{MaxAttempts: 3})
//
// Outcomes are index-aligned with the submitted specs. Failed outcomes carry
// a *TaskError whose Kind tells spawn failures, abnormal exits, unsuccessful
// results, timeouts and cancellations apart.
//
// # Logging
//
// By default, logging is disabled. Use WithLogger to enable it:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	claudeflow.NewOrchestrator(claudeflow.NewOptions(claudeflow.WithLogger(logger)))
//
// # Configuration
//
// LoadConfigFile reads a YAML file with the CLI path, grace period,
// environment, orchestration defaults and presets. CLAUDEFLOW_GRACE_PERIOD
// overrides the termination grace period.
//
// # Tools
//
// NewOrchestratorTools exposes an orchestrator as MCP tools ("query",
// "parallel" and "pipeline") that can be called in process or served to any
// MCP client.
//
// # Requirements
//
// The Claude CLI must be installed and on PATH, or configured with
// WithCliPath.
package claudeflow
