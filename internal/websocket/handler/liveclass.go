// internal/websocket/handler/liveclass.go
package handlers

import (
	"context"
	"fmt"

	"lms-admin-service/internal/domain/liveclass"
	wstypes "lms-admin-service/internal/domain/websocket"
	"lms-admin-service/internal/pkg/session"
	ws "lms-admin-service/internal/websocket"
)

// LiveClassService is what the socket needs from the live class service.
type LiveClassService interface {
	Status(ctx context.Context, classID string) (liveclass.Snapshot, error)
	Watch(ctx context.Context, classID string) (*liveclass.Card, error)
	Unwatch(classID string) bool
}

// LiveClassHandler lets dashboards ask for status and open or close cards over the socket.
type LiveClassHandler struct {
	service LiveClassService
}

func NewLiveClassHandler(service LiveClassService) *LiveClassHandler {
	return &LiveClassHandler{service: service}
}

func (h *LiveClassHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeLiveClassStatusRequest,
		wstypes.EventTypeLiveClassWatch,
		wstypes.EventTypeLiveClassUnwatch,
	}
}

func (h *LiveClassHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.LiveClassRequest
	if err := ws.MapToStruct(msg.Data, &req); err != nil || req.ClassID == "" {
		client.SendError("invalid_request", "class_id is required", fmt.Sprint(err))
		return nil
	}
	ctx = session.WithToken(ctx, client.Token())

	switch msg.Type {
	case wstypes.EventTypeLiveClassStatusRequest:
		snap, err := h.service.Status(ctx, req.ClassID)
		if err != nil {
			client.SendError("status_unavailable", "Live class status unavailable", err.Error())
			return nil
		}
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeLiveClassStatus, wstypes.LiveClassStatusData{
			ClassID:  req.ClassID,
			Snapshot: snap,
		}))

	case wstypes.EventTypeLiveClassWatch:
		client.Subscribe(wstypes.ChannelLiveClasses)
		card, err := h.service.Watch(ctx, req.ClassID)
		if err != nil {
			client.SendError("watch_failed", "Failed to watch live class", err.Error())
			return nil
		}
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeLiveClassStatus, wstypes.LiveClassStatusData{
			ClassID:   card.Class.ID,
			CourseIDs: card.Class.CourseIDs,
			Snapshot:  card.Snapshot,
		}))

	case wstypes.EventTypeLiveClassUnwatch:
		removed := h.service.Unwatch(req.ClassID)
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeLiveClassUnwatch, map[string]interface{}{
			"class_id": req.ClassID,
			"removed":  removed,
		}))

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
	return nil
}
