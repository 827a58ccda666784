package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// CallSummary holds the figures printed after a call ends.
type CallSummary struct {
	RoomCode         string
	Duration         time.Duration
	MessagesSent     int
	MessagesReceived int
	FinalState       string
}

// RenderCallSummary prints the post-call summary table to stdout.
func RenderCallSummary(s CallSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter

	t.SetTitle("Call Summary")
	t.AppendRows([]table.Row{
		{"Room", s.RoomCode},
		{"Duration", s.Duration.Round(time.Second).String()},
		{"Messages sent", fmt.Sprintf("%d", s.MessagesSent)},
		{"Messages received", fmt.Sprintf("%d", s.MessagesReceived)},
		{"Ended", s.FinalState},
	})

	t.Render()
}
