package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/garmindl/internal/models"
	"github.com/j-veylop/garmindl/internal/services"
	"github.com/j-veylop/garmindl/internal/services/download"
)

// Runner executes a download run and reports its progress.
type Runner interface {
	Run(ctx context.Context, req models.Request) (*models.RunReport, error)
	Events() <-chan download.Event
}

// startRunCmd runs req to completion and returns a RunDoneMsg. stopped is
// closed once Run has returned.
func startRunCmd(ctx context.Context, runner Runner, req models.Request, stopped chan<- struct{}) tea.Cmd {
	return func() tea.Msg {
		defer close(stopped)
		report, err := runner.Run(ctx, req)
		return RunDoneMsg{Report: report, Err: err}
	}
}

// waitForEventCmd listens for the next progress event.
func waitForEventCmd(runner Runner) tea.Cmd {
	return services.WaitForEvent(runner.Events())
}
