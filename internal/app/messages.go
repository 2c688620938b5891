package app

import "github.com/j-veylop/garmindl/internal/models"

// RunDoneMsg is sent when the download run returns.
type RunDoneMsg struct {
	Report *models.RunReport
	Err    error
}
