package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/mfontane/borgata/internal/bus"
)

var (
	dimPrint    = color.New(color.Faint).PrintfFunc()
	agentPrint  = color.New(color.FgCyan).PrintfFunc()
	toolPrint   = color.New(color.FgYellow).PrintfFunc()
	okPrint     = color.New(color.FgGreen).PrintfFunc()
	errPrint    = color.New(color.FgRed).PrintfFunc()
	escalaPrint = color.New(color.FgMagenta, color.Bold).PrintfFunc()
)

const heartbeatInterval = 15 * time.Second

// streamEvents subscribes to the conversation, prints events as they
// arrive, and blocks until the orchestration finishes. A heartbeat line
// is printed when nothing happened for a while; that cadence belongs to
// this subscriber, not the bus.
func streamEvents(a *app, conversationID string) {
	events := make(chan bus.Event, 256)
	unsubscribe := a.orch.Bus().Subscribe(conversationID, func(e bus.Event) {
		select {
		case events <- e:
		default:
			// A stalled terminal must not block the orchestration.
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		a.orch.Wait(conversationID)
		close(done)
	}()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-events:
			printEvent(e)
		case <-ticker.C:
			dimPrint("  … still working (%s)\n", time.Now().Format("15:04:05"))
		case <-done:
			// Drain whatever was published before the run closed.
			for {
				select {
				case e := <-events:
					printEvent(e)
				default:
					return
				}
			}
		}
	}
}

func printEvent(e bus.Event) {
	switch e.Name {
	case bus.EventConversationStarted:
		okPrint("▶ conversation started: %v\n", e.Payload["title"])
	case bus.EventTurnStarted:
		dimPrint("  turn %v %v [%v]\n", e.Payload["turn"], e.Payload["agent_id"], e.Payload["state"])
	case bus.EventAgentMessage:
		agentPrint("%v:\n", e.Payload["agent_id"])
		fmt.Printf("%v\n", e.Payload["text"])
	case bus.EventToolCall:
		toolPrint("  ⚙ %v\n", e.Payload["action"])
	case bus.EventToolResult:
		if e.Payload["status"] == "error" {
			errPrint("  ⚙ %v failed\n", e.Payload["tool"])
		}
	case bus.EventDelegation:
		agentPrint("  → %v delegates to %v\n", e.Payload["from"], e.Payload["to"])
	case bus.EventDelegationResult:
		agentPrint("  ← %v reports back to %v\n", e.Payload["from"], e.Payload["to"])
	case bus.EventEscalationRaised:
		escalaPrint("\n⚑ ESCALATION %v\n", e.Payload["escalation_id"])
		fmt.Printf("%v\n", e.Payload["question"])
		escalaPrint("Answer with: borgata escalations answer %v \"...\"\n\n", e.Payload["escalation_id"])
	case bus.EventEscalationAnswered:
		okPrint("⚑ escalation %v answered\n", e.Payload["escalation_id"])
	case bus.EventProgressUpdated:
		dimPrint("  ☰ progress updated by %v\n", e.Payload["agent_id"])
	case bus.EventTurnLimitReached:
		errPrint("✗ turn limit %v reached\n", e.Payload["limit"])
	case bus.EventConversationCompleted:
		okPrint("\n✓ completed\n")
		fmt.Printf("%v\n", e.Payload["result"])
	case bus.EventConversationStopped:
		errPrint("\n■ stopped: %v\n", e.Payload["reason"])
	case bus.EventError:
		errPrint("✗ %v\n", e.Payload["error"])
	}
}
