package pairing

import (
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"phonestorage/internal/domain/upload"
	"phonestorage/internal/metrics"
	"phonestorage/internal/pkg/clock"
	"phonestorage/internal/pkg/token"
)

const (
	DefaultDeviceName  = "My PC"
	UnknownDeviceName  = "Unknown Device"
	payloadType        = "device_pairing"
	payloadVersion     = "1.0"
	defaultProtocol    = "https"
	defaultCleanupDays = 30

	// MaxCleanupDays bounds cleanup cutoffs; larger values are clamped so the
	// cutoff duration cannot overflow.
	MaxCleanupDays = 3650
)

// MediaCounter reports per-token upload counts. *upload.Store satisfies it.
type MediaCounter interface {
	MediaCounts(token string) upload.MediaCounts
}

// Policy holds the lifetimes the registry enforces.
type Policy struct {
	QRTTL        time.Duration
	PairingTTL   time.Duration
	ActiveWindow time.Duration
	Protocol     string
}

func DefaultPolicy() Policy {
	return Policy{
		QRTTL:        15 * time.Minute,
		PairingTTL:   30 * 24 * time.Hour,
		ActiveWindow: 5 * time.Minute,
		Protocol:     defaultProtocol,
	}
}

// Registry owns every pairing record for the life of the process and mirrors
// the full set to its Store after each mutation.
//
// The mutex only serialises map access. A mutation and its snapshot write are
// not a transaction: a failed Save is logged and the in-memory change stays.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
	order   []string

	store   Store
	media   MediaCounter
	clock   clock.Clock
	policy  Policy
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewRegistry(store Store, media MediaCounter, clk clock.Clock, policy Policy, m *metrics.Metrics, log zerolog.Logger) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	if policy.Protocol == "" {
		policy.Protocol = defaultProtocol
	}
	return &Registry{
		devices: make(map[string]*Device),
		store:   store,
		media:   media,
		clock:   clk,
		policy:  policy,
		metrics: m,
		log:     log.With().Str("component", "pairing_registry").Logger(),
	}
}

func (r *Registry) Policy() Policy { return r.policy }

// Load replaces the in-memory records with the stored snapshot. On failure
// the registry is left empty and the error is returned for logging only.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]*Device)
	r.order = nil
	if r.store == nil {
		return nil
	}

	loaded, err := r.store.Load()
	if err != nil {
		r.log.Error().Err(err).Msg("could not load paired devices, starting empty")
		return err
	}
	for _, d := range loaded {
		if d.Token == "" {
			continue
		}
		if _, dup := r.devices[d.Token]; dup {
			continue
		}
		r.devices[d.Token] = d
		r.order = append(r.order, d.Token)
	}
	r.log.Info().Int("devices", len(r.order)).Msg("paired devices loaded")
	return nil
}

// CreatePairing mints a pending record and the QR offer pointing at ip:port.
func (r *Registry) CreatePairing(ip string, port int, deviceName string) (string, QRPayload, Device) {
	if deviceName == "" {
		deviceName = DefaultDeviceName
	}
	now := r.clock.Now()
	pairingToken := token.NewPairingToken()
	deviceID := token.NewDeviceID()

	d := &Device{
		Token:       pairingToken,
		DeviceID:    deviceID,
		DeviceName:  deviceName,
		IP:          ip,
		Port:        port,
		Status:      StatusPending,
		PairedAt:    now,
		ExpiresAt:   now.Add(r.policy.PairingTTL),
		SyncedFiles: []any{},
	}

	payload := QRPayload{
		Type:         payloadType,
		Version:      payloadVersion,
		DeviceID:     deviceID,
		DeviceName:   deviceName,
		IP:           ip,
		Port:         port,
		PairingToken: pairingToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(r.policy.QRTTL),
		Protocol:     r.policy.Protocol,
	}

	r.mu.Lock()
	r.devices[pairingToken] = d
	r.order = append(r.order, pairingToken)
	r.persistLocked()
	out := d.clone()
	r.mu.Unlock()

	r.metrics.PairingCreated()
	r.log.Info().Str("device_id", deviceID).Str("device_name", deviceName).Msg("pairing created")

	return pairingURL(payload), payload, out
}

// pairingURL keeps the query parameters in a fixed order: token, device_id,
// pc_name, created.
func pairingURL(p QRPayload) string {
	query := "token=" + url.QueryEscape(p.PairingToken) +
		"&device_id=" + url.QueryEscape(p.DeviceID) +
		"&pc_name=" + url.QueryEscape(p.DeviceName) +
		"&created=" + url.QueryEscape(p.CreatedAt.Format(time.RFC3339))
	host := net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
	return p.Protocol + "://" + host + "/pair-confirm?" + query
}

// Verify reports whether token names a live record. An expired record is
// evicted on the spot.
func (r *Registry) Verify(tok string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[tok]
	if !ok {
		return false
	}
	if !r.clock.Now().Before(d.ExpiresAt) {
		r.removeLocked(tok)
		r.persistLocked()
		r.metrics.PairingExpired()
		r.log.Info().Str("device_id", d.DeviceID).Msg("pairing expired")
		return false
	}
	return true
}

// Confirm completes the handshake for token. It does not check expiry;
// callers run Verify first.
func (r *Registry) Confirm(tok, phoneDeviceID, phoneDeviceName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[tok]
	if !ok {
		return false
	}
	now := r.clock.Now()
	d.Status = StatusConfirmed
	d.PhoneDeviceID = phoneDeviceID
	d.PhoneDeviceName = phoneDeviceName
	d.ConfirmedAt = &now
	seen := now
	d.LastSeen = &seen
	r.persistLocked()

	r.metrics.PairingConfirmed()
	r.log.Info().Str("device_id", d.DeviceID).Str("phone", phoneDeviceName).Msg("pairing confirmed")
	return true
}

func (r *Registry) UpdateActivity(tok string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[tok]
	if !ok {
		return false
	}
	now := r.clock.Now()
	d.LastSeen = &now
	r.persistLocked()
	return true
}

// UpdateSync replaces the synced file list wholesale.
func (r *Registry) UpdateSync(tok string, files []any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[tok]
	if !ok {
		return false
	}
	if files == nil {
		files = []any{}
	}
	now := r.clock.Now()
	d.SyncedFiles = files
	d.LastSync = &now
	r.persistLocked()

	r.metrics.SyncReceived(len(files))
	return true
}

func (r *Registry) Revoke(tok string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[tok]
	if !ok {
		return false
	}
	r.removeLocked(tok)
	r.persistLocked()

	r.metrics.PairingRevoked()
	r.log.Info().Str("device_id", d.DeviceID).Msg("pairing revoked")
	return true
}

// Device returns a copy of the record for token, expired or not.
func (r *Registry) Device(tok string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[tok]
	if !ok {
		return Device{}, false
	}
	return d.clone(), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// ListConfirmed returns confirmed records in pairing order.
func (r *Registry) ListConfirmed() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Device, 0, len(r.order))
	for _, tok := range r.order {
		if d := r.devices[tok]; d.Status == StatusConfirmed {
			out = append(out, d.clone())
		}
	}
	return out
}

// Views pairs each confirmed record with its activity flag at the current time.
func (r *Registry) Views() []DeviceView {
	now := r.clock.Now()
	devices := r.ListConfirmed()
	views := make([]DeviceView, 0, len(devices))
	for i := range devices {
		views = append(views, DeviceView{
			Device: devices[i],
			Active: devices[i].Active(now, r.policy.ActiveWindow),
		})
	}
	return views
}

// StatsFor joins the record for token with a live count of its uploads.
func (r *Registry) StatsFor(tok string) (Stats, bool) {
	d, ok := r.Device(tok)
	if !ok {
		return Stats{}, false
	}
	return r.statsOf(d), true
}

func (r *Registry) statsOf(d Device) Stats {
	var mc upload.MediaCounts
	if r.media != nil {
		mc = r.media.MediaCounts(d.Token)
	}

	name := d.PhoneDeviceName
	if name == "" {
		name = UnknownDeviceName
	}
	pairedAt := d.PairedAt
	if d.ConfirmedAt != nil {
		pairedAt = *d.ConfirmedAt
	}

	return Stats{
		Token:      d.Token,
		DeviceName: name,
		Status:     d.Status,
		Active:     d.Active(r.clock.Now(), r.policy.ActiveWindow),
		PhotoCount: mc.Photos,
		VideoCount: mc.Videos,
		TotalFiles: mc.Photos + mc.Videos,
		TotalSize:  mc.TotalSize,
		LastSeen:   d.LastSeen,
		LastSync:   d.LastSync,
		PairedAt:   pairedAt,
	}
}

// ConfirmedStats returns Stats for every confirmed record in pairing order.
func (r *Registry) ConfirmedStats() []Stats {
	devices := r.ListConfirmed()
	stats := make([]Stats, 0, len(devices))
	for _, d := range devices {
		stats = append(stats, r.statsOf(d))
	}
	return stats
}

func Summarize(stats []Stats) Summary {
	s := Summary{TotalDevices: len(stats)}
	for _, st := range stats {
		if st.Active {
			s.ActiveDevices++
		}
		s.TotalPhotos += st.PhotoCount
		s.TotalVideos += st.VideoCount
		s.TotalFiles += st.TotalFiles
	}
	return s
}

// CleanupInactive drops records last seen more than days ago. Records that
// were never seen are kept. The snapshot is written only when something was
// removed. days is clamped to [0, MaxCleanupDays].
func (r *Registry) CleanupInactive(days int) int {
	days = min(max(days, 0), MaxCleanupDays)
	cutoff := r.clock.Now().AddDate(0, 0, -days)

	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	for _, tok := range r.order {
		d := r.devices[tok]
		if d.LastSeen != nil && d.LastSeen.Before(cutoff) {
			stale = append(stale, tok)
		}
	}
	for _, tok := range stale {
		r.removeLocked(tok)
	}
	if len(stale) > 0 {
		r.persistLocked()
		r.metrics.DevicesRemoved(len(stale))
		r.log.Info().Int("removed", len(stale)).Int("days", days).Msg("inactive devices cleaned")
	}
	return len(stale)
}

func (r *Registry) removeLocked(tok string) {
	delete(r.devices, tok)
	for i, t := range r.order {
		if t == tok {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) persistLocked() {
	if r.store == nil {
		return
	}
	snapshot := make([]*Device, 0, len(r.order))
	for _, tok := range r.order {
		d := r.devices[tok].clone()
		snapshot = append(snapshot, &d)
	}
	if err := r.store.Save(snapshot); err != nil {
		r.metrics.PersistFailed()
		r.log.Error().Err(err).Msg("could not save paired devices")
	}
}
