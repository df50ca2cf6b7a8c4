package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/theckman/yacspin"
	"golang.org/x/term"

	"github.com/your-org/checker/internal/submission"
)

// display shows pipeline progress and is finished once Submit returns.
type display interface {
	submission.Emitter
	Finish()
}

// newDisplay animates a spinner on terminals and prints plain lines
// everywhere else.
func newDisplay(w io.Writer) (display, error) {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return newSpinnerDisplay(w, false)
	}
	return lineDisplay{w: w}, nil
}

type spinnerDisplay struct {
	spinner *yacspin.Spinner
	stopped bool
}

func newSpinnerDisplay(w io.Writer, notTTY bool) (*spinnerDisplay, error) {
	spinner, err := yacspin.New(yacspin.Config{
		Writer:            w,
		NotTTY:            notTTY,
		Frequency:         200 * time.Millisecond,
		Colors:            []string{"fgYellow"},
		ColorAll:          true,
		CharSet:           yacspin.CharSets[78],
		Suffix:            " checker",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopMessage:       "all tests finished",
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return nil, fmt.Errorf("init spinner: %w", err)
	}
	if err := spinner.Start(); err != nil {
		return nil, fmt.Errorf("start spinner: %w", err)
	}
	return &spinnerDisplay{spinner: spinner}, nil
}

func (s *spinnerDisplay) OnStage(stage submission.Stage) {
	s.spinner.Message(string(stage) + "...")
}

func (s *spinnerDisplay) OnFailure(stage submission.Stage, _ error) {
	if s.stopped {
		return
	}
	s.stopped = true
	s.spinner.StopFailMessage(string(stage) + " failed")
	_ = s.spinner.StopFail()
}

func (s *spinnerDisplay) Finish() {
	if s.stopped {
		return
	}
	s.stopped = true
	_ = s.spinner.Stop()
}

type lineDisplay struct {
	w io.Writer
}

func (l lineDisplay) OnStage(stage submission.Stage) {
	fmt.Fprintf(l.w, "%s...\n", stage)
}

func (l lineDisplay) OnFailure(stage submission.Stage, _ error) {
	fmt.Fprintf(l.w, "%s failed\n", stage)
}

func (lineDisplay) Finish() {}
