package model

// MonitorResponse is the full hub statistics payload.
type MonitorResponse struct {
	Status      string        `json:"status"`
	Connections ConnStats     `json:"connections"`
	Rooms       RoomStats     `json:"rooms"`
	Viewing     []ViewingInfo `json:"viewing"`
	Online      []string      `json:"onlineIdentities"`
}

// ConnStats summarises live websocket connections.
type ConnStats struct {
	TotalConnections int `json:"totalConnections"`
	TotalIdentities  int `json:"totalIdentities"`
}

// RoomStats summarises joined chat rooms.
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`
	ActiveRooms int        `json:"activeRooms"`
	RoomDetails []RoomInfo `json:"roomDetails"`
}

// RoomInfo describes one chat room's joined connections.
type RoomInfo struct {
	ChatID      string `json:"chatId"`
	Connections int    `json:"connections"`
}

// ViewingInfo reports which chats an identity currently foregrounds.
type ViewingInfo struct {
	IdentityID string   `json:"identityId"`
	ChatIDs    []string `json:"chatIds"`
}
