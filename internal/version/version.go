// Package version provides build version information and runtime metadata.
package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// These are set via ldflags at build time
	Version = ""
	Commit  = ""
	Date    = ""

	once sync.Once

	execCommand = exec.CommandContext
)

func ensureInitialized() {
	once.Do(func() {
		if Date == "" {
			Date = time.Now().Format("2006-01-02")
		}
		if Commit == "" {
			Commit = getGitCommit()
		}
		if Version == "" {
			Version = getGitVersion()
		}
	})
}

// Reset clears the resolved values so the next accessor resolves them again.
func Reset() {
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

func getGitCommit() string {
	cmd := execCommand(context.Background(), "git", "describe", "--always", "--dirty")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out.String())
}

func getGitVersion() string {
	cmd := execCommand(context.Background(), "git", "describe", "--tags", "--abbrev=0")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err == nil {
		v := strings.TrimSpace(out.String())
		if v != "" {
			return v
		}
	}
	return "dev"
}

// GetVersion returns the release version.
func GetVersion() string {
	ensureInitialized()
	return Version
}

// GetCommit returns the git commit the binary was built from.
func GetCommit() string {
	ensureInitialized()
	return Commit
}

// GetDate returns the build date.
func GetDate() string {
	ensureInitialized()
	return Date
}

// Info returns the one-line description printed by "garmindl version".
func Info() string {
	return fmt.Sprintf("garmindl %s (commit: %s, built: %s, %s/%s)",
		GetVersion(), GetCommit(), GetDate(), runtime.GOOS, runtime.GOARCH)
}
