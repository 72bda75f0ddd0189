package pairing

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SQLStore keeps the snapshot in a paired_devices table, one row per token.
// Every Save replaces the table contents inside a single transaction.
type SQLStore struct {
	db *gorm.DB
}

type deviceModel struct {
	Token           string     `gorm:"column:token;primaryKey"`
	Position        int        `gorm:"column:position"`
	DeviceID        string     `gorm:"column:device_id"`
	DeviceName      string     `gorm:"column:device_name"`
	IP              string     `gorm:"column:ip"`
	Port            int        `gorm:"column:port"`
	Status          string     `gorm:"column:status"`
	PhoneDeviceID   *string    `gorm:"column:phone_device_id"`
	PhoneDeviceName *string    `gorm:"column:phone_device_name"`
	PairedAt        time.Time  `gorm:"column:paired_at"`
	ConfirmedAt     *time.Time `gorm:"column:confirmed_at"`
	ExpiresAt       time.Time  `gorm:"column:expires_at"`
	LastSeen        *time.Time `gorm:"column:last_seen"`
	SyncedFiles     string     `gorm:"column:synced_files;type:text"`
	LastSync        *time.Time `gorm:"column:last_sync"`
}

func (deviceModel) TableName() string { return "paired_devices" }

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&deviceModel{}); err != nil {
		return nil, fmt.Errorf("migrate paired_devices: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load() ([]*Device, error) {
	var rows []deviceModel
	if err := s.db.Order("position ASC, token ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load paired devices: %w", err)
	}

	devices := make([]*Device, 0, len(rows))
	for _, m := range rows {
		d, err := toDomainDevice(m)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (s *SQLStore) Save(devices []*Device) error {
	rows := make([]deviceModel, 0, len(devices))
	for i, d := range devices {
		m, err := toDeviceModel(d, i)
		if err != nil {
			return err
		}
		rows = append(rows, m)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&deviceModel{}).Error; err != nil {
			return fmt.Errorf("clear paired devices: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert paired devices: %w", err)
		}
		return nil
	})
}

func toDeviceModel(d *Device, position int) (deviceModel, error) {
	files := d.SyncedFiles
	if files == nil {
		files = []any{}
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return deviceModel{}, fmt.Errorf("encode synced files for %s: %w", d.Token, err)
	}

	return deviceModel{
		Token:           d.Token,
		Position:        position,
		DeviceID:        d.DeviceID,
		DeviceName:      d.DeviceName,
		IP:              d.IP,
		Port:            d.Port,
		Status:          string(d.Status),
		PhoneDeviceID:   nullable(d.PhoneDeviceID),
		PhoneDeviceName: nullable(d.PhoneDeviceName),
		PairedAt:        d.PairedAt,
		ConfirmedAt:     d.ConfirmedAt,
		ExpiresAt:       d.ExpiresAt,
		LastSeen:        d.LastSeen,
		SyncedFiles:     string(raw),
		LastSync:        d.LastSync,
	}, nil
}

func toDomainDevice(m deviceModel) (*Device, error) {
	files := []any{}
	if m.SyncedFiles != "" {
		if err := decodeExact([]byte(m.SyncedFiles), &files); err != nil {
			return nil, fmt.Errorf("decode synced files for %s: %w", m.Token, err)
		}
	}

	d := &Device{
		Token:       m.Token,
		DeviceID:    m.DeviceID,
		DeviceName:  m.DeviceName,
		IP:          m.IP,
		Port:        m.Port,
		Status:      Status(m.Status),
		PairedAt:    m.PairedAt.UTC(),
		ConfirmedAt: utcPtr(m.ConfirmedAt),
		ExpiresAt:   m.ExpiresAt.UTC(),
		LastSeen:    utcPtr(m.LastSeen),
		SyncedFiles: files,
		LastSync:    utcPtr(m.LastSync),
	}
	if m.PhoneDeviceID != nil {
		d.PhoneDeviceID = *m.PhoneDeviceID
	}
	if m.PhoneDeviceName != nil {
		d.PhoneDeviceName = *m.PhoneDeviceName
	}
	return d, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
