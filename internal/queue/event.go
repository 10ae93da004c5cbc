// Package queue defines message payloads exchanged over the message broker.
package queue

// DeviceRegisteredEvent is published when a display device is bound to a
// device token. It carries both the device and the registering user so
// downstream consumers can attribute device activity to a human owner
// without querying the primary database.
type DeviceRegisteredEvent struct {
    DeviceID       uint64 `json:"device_id"`
    DeviceName     string `json:"device_name"`
    OwnerID        uint64 `json:"owner_id"`
    OwnerUsername  string `json:"owner_username"`
    TokenExpiresAt string `json:"token_expires_at"`
    RegisteredAt   string `json:"registered_at"`
}

// MediaUploadedEvent is published after a media file has been written to
// storage, for audit trails and cache warmers.
type MediaUploadedEvent struct {
    MediaID    uint64 `json:"media_id"`
    OwnerID    uint64 `json:"owner_id"`
    Filename   string `json:"filename"`
    SizeBytes  int64  `json:"size_bytes"`
    UploadedAt string `json:"uploaded_at"`
}
