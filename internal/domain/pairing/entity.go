package pairing

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Device is one phone paired (or being paired) with this desktop. The
// pairing token is the registry key and is not part of the serialised record.
type Device struct {
	Token           string     `json:"-"`
	DeviceID        string     `json:"device_id"`
	DeviceName      string     `json:"device_name"`
	IP              string     `json:"ip"`
	Port            int        `json:"port"`
	Status          Status     `json:"status"`
	PhoneDeviceID   string     `json:"phone_device_id,omitempty"`
	PhoneDeviceName string     `json:"phone_device_name,omitempty"`
	PairedAt        time.Time  `json:"paired_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
	LastSeen        *time.Time `json:"last_seen,omitempty"`
	SyncedFiles     []any      `json:"synced_files"`
	LastSync        *time.Time `json:"last_sync"`
}

// Active reports whether the device was seen within window of now.
func (d *Device) Active(now time.Time, window time.Duration) bool {
	if d.LastSeen == nil {
		return false
	}
	return now.Sub(*d.LastSeen) < window
}

func (d *Device) clone() Device {
	c := *d
	c.SyncedFiles = append(make([]any, 0, len(d.SyncedFiles)), d.SyncedFiles...)
	c.ConfirmedAt = copyTime(d.ConfirmedAt)
	c.LastSeen = copyTime(d.LastSeen)
	c.LastSync = copyTime(d.LastSync)
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// QRPayload is the short-lived pairing offer shown to the phone.
type QRPayload struct {
	Type         string    `json:"type"`
	Version      string    `json:"version"`
	DeviceID     string    `json:"device_id"`
	DeviceName   string    `json:"device_name"`
	IP           string    `json:"ip"`
	Port         int       `json:"port"`
	PairingToken string    `json:"pairing_token"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Protocol     string    `json:"protocol"`
}

// DeviceView is a Device with its derived activity flag, as served to clients.
type DeviceView struct {
	Device
	Active bool `json:"active"`
}

// Stats joins a confirmed device with a live count of its uploads.
type Stats struct {
	Token      string     `json:"token"`
	DeviceName string     `json:"device_name"`
	Status     Status     `json:"status"`
	Active     bool       `json:"active"`
	PhotoCount int        `json:"photo_count"`
	VideoCount int        `json:"video_count"`
	TotalFiles int        `json:"total_files"`
	TotalSize  int64      `json:"total_size"`
	LastSeen   *time.Time `json:"last_seen"`
	LastSync   *time.Time `json:"last_sync"`
	PairedAt   time.Time  `json:"paired_at"`
}

type Summary struct {
	TotalDevices  int `json:"total_devices"`
	ActiveDevices int `json:"active_devices"`
	TotalPhotos   int `json:"total_photos"`
	TotalVideos   int `json:"total_videos"`
	TotalFiles    int `json:"total_files"`
}
