//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/claudeflow-go"
)

func newOrchestrator(opts ...claudeflow.OrchestratorOption) *claudeflow.Orchestrator {
	return claudeflow.NewOrchestrator(claudeflow.NewOptions(haiku()...), opts...)
}

// TestParallelIntegration runs independent prompts concurrently.
func TestParallelIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()
	o := newOrchestrator(claudeflow.WithMetrics(claudeflow.NewMetrics(reg)))

	outcomes := o.Parallel(ctx, []claudeflow.Spec{
		{Name: "sum", Prompt: "What is 40+2? Reply with just the number."},
		{Name: "product", Prompt: "What is 6*7? Reply with just the number."},
		{Name: "difference", Prompt: "What is 50-8? Reply with just the number."},
	}, claudeflow.ParallelConfig{MaxConcurrency: 2, TaskTimeout: 60 * time.Second})

	require.Len(t, outcomes, 3)

	for _, out := range outcomes {
		if out.Err != nil {
			skipIfCLINotInstalled(t, out.Err)
			t.Fatalf("%s failed: %v", out.Name, out.Err)
		}

		t.Logf("%s: %q in %s", out.Name, out.Text(), out.Duration)
		require.True(t, contains42(out.Text()), "%s: %q", out.Name, out.Text())
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

// TestPipelineIntegration feeds one stage's answer into the next.
func TestPipelineIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	result, err := newOrchestrator().Pipeline(ctx, []claudeflow.Stage{
		{Spec: claudeflow.Spec{Name: "pick", Prompt: "Reply with just the number 21."}},
		{Spec: claudeflow.Spec{Name: "double", Prompt: "Double the following number and reply with just the result:"}},
	}, claudeflow.PipelineConfig{StageTimeout: 60 * time.Second})
	if err != nil {
		skipIfCLINotInstalled(t, err)
		t.Fatalf("Pipeline failed: %v", err)
	}

	require.Len(t, result.Outcomes, 2)
	require.True(t, contains42(result.Text()), "final: %q", result.Text())
}

// TestBatchCancelIntegration cancels one task and keeps the other.
func TestBatchCancelIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	batch := newOrchestrator().Submit(ctx, []claudeflow.Spec{
		{Name: "quick", Prompt: "Reply with just the number 42."},
		{Name: "slow", Prompt: "Write a 3000 word essay on the history of mathematics."},
	}, claudeflow.ParallelConfig{})

	slow := batch.Tasks()[1]

	time.AfterFunc(3*time.Second, func() { _ = batch.Cancel(slow.ID) })

	outcomes := batch.Wait()

	if outcomes[0].Err != nil {
		skipIfCLINotInstalled(t, outcomes[0].Err)
		t.Fatalf("quick failed: %v", outcomes[0].Err)
	}

	require.Equal(t, claudeflow.TaskFailed, outcomes[1].Status)
	require.Equal(t, claudeflow.FailureCancelled, claudeflow.KindOf(outcomes[1].Err))
}
