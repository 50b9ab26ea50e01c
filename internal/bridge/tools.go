package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/gasguard/gasguard/internal/convai"
)

// Tool names the agent is configured with. Dispatch is a closed set; an
// unknown name gets a spoken apology rather than an error the agent cannot
// voice.
const (
	toolGetCurrentGasReading = "getCurrentGasReading"
	toolTerminateCall        = "terminateCall"
)

// toolApology is spoken when a tool fails or is unknown. The agent relays
// result text verbatim, so it has to read as dialogue.
const toolApology = "I'm sorry, I couldn't check that right now. Please try again in a moment."

// hangupTimeout bounds the provider hangup issued by the terminateCall tool.
const hangupTimeout = 10 * time.Second

// dispatchTool runs one tool call and replies with its result. Every path
// replies exactly once; a panicking tool is contained and reported as a
// spoken failure.
func (s *Session) dispatchTool(ev convai.Event) {
	s.logger.Info("tool call", "tool", ev.ToolName, "tool_call_id", ev.ToolCallID)

	result, isError := s.runTool(ev)
	if err := s.engine.SendToolResult(ev.ToolCallID, result, isError); err != nil {
		s.logger.Warn("sending tool result failed", "tool", ev.ToolName, "error", err)
	}
}

func (s *Session) runTool(ev convai.Event) (result string, isError bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", "tool", ev.ToolName, "panic", fmt.Sprint(r))
			result = toolApology
			isError = true
		}
	}()

	switch ev.ToolName {
	case toolGetCurrentGasReading:
		return s.toolCurrentReading(), false
	case toolTerminateCall:
		return s.toolTerminate(), false
	default:
		s.logger.Warn("unknown tool requested", "tool", ev.ToolName)
		return toolApology, true
	}
}

// toolCurrentReading reads the live sensor value, not the value the call
// was placed with, so the agent can report changes mid-conversation.
func (s *Session) toolCurrentReading() string {
	snap := s.store.Snapshot()
	v := snap.Reading.CurrentReading
	s.logger.Info("reporting live reading", "reading", v, "tier", s.thresholds.Classify(v))
	return s.thresholds.Describe(v)
}

// toolTerminate acknowledges first and hangs up afterwards: the result text
// is the agent's goodbye line, so the provider-side hangup runs in the
// background while the agent speaks it.
func (s *Session) toolTerminate() string {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), hangupTimeout)
		defer cancel()

		n, err := s.ender.EndInProgressCalls(ctx)
		if err != nil {
			s.logger.Warn("provider hangup failed", "error", err)
		} else {
			s.logger.Info("provider hangup issued", "calls_ended", n)
		}
		s.store.ClearActive()
		s.requestEnd()
	}()
	return "Ending the call now. Goodbye."
}
