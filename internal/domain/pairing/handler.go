package pairing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"phonestorage/internal/domain/events"
	"phonestorage/internal/pkg/jwt"
	"phonestorage/internal/pkg/qr"
	"phonestorage/internal/pkg/response"
	"phonestorage/internal/pkg/validator"
)

const maxSyncBody = 8 << 20

// HostInfo is the address phones are told to reach this desktop at.
type HostInfo struct {
	IP   string
	Port int
}

type Handler struct {
	registry *Registry
	tickets  *jwt.Service
	qr       *qr.Renderer
	host     HostInfo
	events   events.Publisher
	log      zerolog.Logger
}

func NewHandler(registry *Registry, tickets *jwt.Service, renderer *qr.Renderer, host HostInfo, pub events.Publisher, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		tickets:  tickets,
		qr:       renderer,
		host:     host,
		events:   pub,
		log:      log.With().Str("component", "pairing_handler").Logger(),
	}
}

type generateRequest struct {
	DeviceName string `json:"device_name" validate:"max=100"`
}

// Generate handles POST /api/pairing/generate.
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "invalid request body")
			return
		}
	}
	if errs := validator.Validate(req); errs != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "device_name is too long")
		return
	}

	pairingURL, payload, device := h.registry.CreatePairing(h.host.IP, h.host.Port, req.DeviceName)

	dataURL, err := h.qr.DataURL(pairingURL, qr.DefaultBoxSize)
	if err != nil {
		h.log.Error().Err(err).Msg("render pairing qr failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "could not render QR code")
		return
	}

	body := gin.H{
		"qr_data_url":   dataURL,
		"pairing_url":   pairingURL,
		"pairing_token": payload.PairingToken,
		"device_id":     payload.DeviceID,
		"pairing_data":  payload,
	}
	if h.tickets != nil {
		ticket, err := h.tickets.Sign(jwt.TicketClaims{
			PairingToken: payload.PairingToken,
			DeviceID:     payload.DeviceID,
			DeviceName:   payload.DeviceName,
			IP:           payload.IP,
			Port:         payload.Port,
		}, payload.CreatedAt, payload.ExpiresAt)
		if err != nil {
			h.log.Warn().Err(err).Msg("sign pairing ticket failed")
		} else {
			body["pairing_ticket"] = ticket
		}
	}

	h.publish(events.Event{Type: events.PairingCreated, DeviceID: device.DeviceID, Payload: gin.H{
		"device_name": device.DeviceName,
	}})
	c.JSON(http.StatusOK, body)
}

type confirmRequest struct {
	PairingToken    string `json:"pairing_token"`
	PhoneDeviceID   string `json:"phone_device_id" validate:"max=128"`
	PhoneDeviceName string `json:"phone_device_name" validate:"max=128"`
	PairingTicket   string `json:"pairing_ticket"`
}

// Confirm handles POST /api/pairing/confirm from the phone.
func (h *Handler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "phone device fields are too long")
		return
	}

	if req.PairingToken == "" || !h.registry.Verify(req.PairingToken) {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, ErrInvalidToken.Error())
		return
	}
	if req.PairingTicket != "" {
		if err := h.checkTicket(req.PairingTicket, req.PairingToken); err != nil {
			h.log.Warn().Err(err).Msg("pairing ticket rejected")
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, jwt.ErrInvalidTicket.Error())
			return
		}
	}

	name := req.PhoneDeviceName
	if name == "" {
		name = "Phone"
	}
	if !h.registry.Confirm(req.PairingToken, req.PhoneDeviceID, name) {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidToken, ErrConfirmFailed.Error())
		return
	}

	confirmed, _ := h.registry.Device(req.PairingToken)
	h.publish(events.Event{Type: events.PairingConfirmed, DeviceID: confirmed.DeviceID, Payload: gin.H{
		"phone_device_id":   req.PhoneDeviceID,
		"phone_device_name": name,
	}})
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"message":       "Device paired successfully",
		"pairing_token": req.PairingToken,
	})
}

func (h *Handler) checkTicket(ticket, pairingToken string) error {
	if h.tickets == nil {
		return nil
	}
	claims, err := h.tickets.Parse(ticket)
	if err != nil {
		return err
	}
	if claims.PairingToken != pairingToken {
		return fmt.Errorf("ticket issued for another pairing: %w", jwt.ErrInvalidTicket)
	}
	return nil
}

// Devices handles GET /api/pairing/devices.
func (h *Handler) Devices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": h.registry.Views()})
}

func (h *Handler) Revoke(c *gin.Context) {
	tok := c.Param("token")
	device, _ := h.registry.Device(tok)
	if !h.registry.Revoke(tok) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, ErrNotFound.Error())
		return
	}
	h.publish(events.Event{Type: events.PairingRevoked, DeviceID: device.DeviceID})
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Device unpaired"})
}

// Stats handles GET /api/pairing/stats/:token. Unknown tokens get {}.
func (h *Handler) Stats(c *gin.Context) {
	stats, ok := h.registry.StatsFor(c.Param("token"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Sync handles POST /api/sync/:token {files: [...]}. File entries are opaque
// and stored as received.
func (h *Handler) Sync(c *gin.Context) {
	tok := c.Param("token")
	if !h.registry.Verify(tok) {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, ErrInvalidToken.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSyncBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "could not read request body")
		return
	}
	files, err := syncedFiles(body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		return
	}

	h.registry.UpdateSync(tok, files)
	h.registry.UpdateActivity(tok)

	device, _ := h.registry.Device(tok)
	h.publish(events.Event{Type: events.DeviceSynced, DeviceID: device.DeviceID, Payload: gin.H{"files": len(files)}})
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"synced":  len(files),
		"message": fmt.Sprintf("Synced %d files", len(files)),
	})
}

// syncedFiles extracts the "files" array from a sync body. A missing body or
// key is an empty sync.
func syncedFiles(body []byte) ([]any, error) {
	files := []any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return files, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("request body is not valid JSON")
	}
	list := gjson.GetBytes(body, "files")
	if !list.Exists() || list.Type == gjson.Null {
		return files, nil
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("files must be an array: %w", ErrInvalidPayload)
	}
	if err := decodeExact([]byte(list.Raw), &files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return files, nil
}

type cleanupRequest struct {
	Days *int `json:"days" validate:"omitempty,gte=0,lte=3650"`
}

// CleanupInactive handles POST /api/admin/cleanup-inactive {days?}.
func (h *Handler) CleanupInactive(c *gin.Context) {
	var req cleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "invalid request body")
			return
		}
	}
	if errs := validator.Validate(req); errs != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "days must be between 0 and 3650")
		return
	}
	days := defaultCleanupDays
	if req.Days != nil {
		days = *req.Days
	}

	removed := h.registry.CleanupInactive(days)
	if removed > 0 {
		h.publish(events.Event{Type: events.DevicesCleaned, Payload: gin.H{"removed": removed, "days": days}})
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"removed": removed,
		"message": fmt.Sprintf("Removed %d inactive devices", removed),
	})
}

// PairedDevices handles GET /api/admin/paired-devices.
func (h *Handler) PairedDevices(c *gin.Context) {
	stats := h.registry.ConfirmedStats()
	c.JSON(http.StatusOK, gin.H{
		"devices": stats,
		"summary": Summarize(stats),
	})
}

func (h *Handler) publish(ev events.Event) {
	if h.events != nil {
		h.events.Publish(ev)
	}
}
