package hub

import (
	"github.com/rahulm682/Chat-App/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	conns, identities := ms.hub.presence.counts()

	status := "healthy"
	if conns == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status: status,
		Connections: model.ConnStats{
			TotalConnections: conns,
			TotalIdentities:  identities,
		},
		Rooms:   ms.getRoomStats(),
		Viewing: ms.hub.viewing.Snapshot(),
		Online:  ms.hub.presence.Snapshot(),
	}
}

// getRoomStats walks every shard and reports joined chat rooms.
func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for chatID, room := range bucket.rooms {
			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				ChatID:      chatID,
				Connections: len(room),
			})
			stats.TotalRooms++
			if len(room) > 0 {
				stats.ActiveRooms++
			}
		}
		bucket.RUnlock()
	}

	return stats
}
