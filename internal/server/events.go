package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"runepause/internal/core/timekeeper"
)

const eventStreamBuffer = 256

// Each engine event type is streamed under its own SSE event name; sse maps
// names to Go types, so every name gets a distinct type.
type (
	phaseStartEvent      timekeeper.Event
	tickEvent            timekeeper.Event
	phaseEndEvent        timekeeper.Event
	pausedEvent          timekeeper.Event
	resumedEvent         timekeeper.Event
	autoPausedEvent      timekeeper.Event
	autoResumedEvent     timekeeper.Event
	idleErrorEvent       timekeeper.Event
	settingsUpdatedEvent timekeeper.Event
)

// statusEvent opens every stream and closes it when the run ends.
type statusEvent StatusBody

var eventTypes = map[string]any{
	"status":                                statusEvent{},
	string(timekeeper.EventPhaseStart):      phaseStartEvent{},
	string(timekeeper.EventTick):            tickEvent{},
	string(timekeeper.EventPhaseEnd):        phaseEndEvent{},
	string(timekeeper.EventPaused):          pausedEvent{},
	string(timekeeper.EventResumed):         resumedEvent{},
	string(timekeeper.EventAutoPaused):      autoPausedEvent{},
	string(timekeeper.EventAutoResumed):     autoResumedEvent{},
	string(timekeeper.EventIdleError):       idleErrorEvent{},
	string(timekeeper.EventSettingsUpdated): settingsUpdatedEvent{},
}

func streamData(event timekeeper.Event) any {
	switch event.Type {
	case timekeeper.EventPhaseStart:
		return phaseStartEvent(event)
	case timekeeper.EventTick:
		return tickEvent(event)
	case timekeeper.EventPhaseEnd:
		return phaseEndEvent(event)
	case timekeeper.EventPaused:
		return pausedEvent(event)
	case timekeeper.EventResumed:
		return resumedEvent(event)
	case timekeeper.EventAutoPaused:
		return autoPausedEvent(event)
	case timekeeper.EventAutoResumed:
		return autoResumedEvent(event)
	case timekeeper.EventIdleError:
		return idleErrorEvent(event)
	case timekeeper.EventSettingsUpdated:
		return settingsUpdatedEvent(event)
	}
	return nil
}

func registerEvents(api huma.API, controller Controller) {
	sse.Register(api, huma.Operation{
		OperationID: "events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Stream timer events",
		Description: "Sends the current status, then every engine event of the active run. The stream ends with a final status when the run stops.",
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		sub, err := controller.Subscribe(eventStreamBuffer)
		if err != nil {
			// No active run: the status is the whole stream.
			_ = send.Data(statusEvent(statusBody(controller.Status())))
			return
		}
		defer sub.Close()
		if err := send.Data(statusEvent(statusBody(controller.Status()))); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.C():
				if !ok {
					_ = send.Data(statusEvent(statusBody(controller.Status())))
					return
				}
				data := streamData(event)
				if data == nil {
					continue
				}
				if err := send.Data(data); err != nil {
					return
				}
			}
		}
	})
}
