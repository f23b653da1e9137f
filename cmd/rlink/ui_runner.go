package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"rlink/internal/buildpipeline"
	"rlink/internal/ui"
)

type linkOutcome struct {
	result buildpipeline.LinkResult
	err    error
}

func runLinkWithUI(ctx context.Context, title string, outputs []string, req *buildpipeline.LinkRequest) (buildpipeline.LinkResult, error) {
	if req == nil {
		return buildpipeline.LinkResult{}, fmt.Errorf("missing link request")
	}
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan linkOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.LinkOutputs(ctx, &reqCopy)
		outcomeCh <- linkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, outputs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
