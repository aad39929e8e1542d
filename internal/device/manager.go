// Package device reconciles the remembered playback device with the devices
// Spotify currently reports.
package device

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"accessify/internal/core"
)

// TransferRecorder observes device transfers.
type TransferRecorder interface {
	RecordDeviceTransfer(success bool)
}

type Manager struct {
	sessions *core.SessionHolder
	logger   *zap.Logger
	recorder TransferRecorder
}

// NewManager creates a device manager. recorder may be nil.
func NewManager(sessions *core.SessionHolder, recorder TransferRecorder, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: sessions,
		logger:   logger,
		recorder: recorder,
	}
}

// EnsureActiveDevice makes sure playback commands have a device to target.
// An active device is adopted as is. Otherwise playback is transferred,
// paused, to the remembered device when it is still listed or to the first
// listed device. A failed transfer forgets the remembered device.
func (m *Manager) EnsureActiveDevice(ctx context.Context) bool {
	session := m.sessions.Load()
	if !session.Authenticated() {
		return false
	}

	devices, err := m.listDevices(ctx, session.API)
	if err != nil {
		m.logger.Warn("Failed to list devices", zap.Error(err))
		return false
	}
	if len(devices) == 0 {
		m.logger.Info("No devices available")
		return false
	}

	for i := range devices {
		if devices[i].Active {
			m.remember(session, devices[i].ID)
			m.logger.Debug("Found active device",
				zap.String("deviceName", devices[i].Name),
				zap.String("deviceType", devices[i].Type),
				zap.String("deviceID", devices[i].ID))
			return true
		}
	}

	target := devices[0]
	for i := range devices {
		if session.DeviceID != "" && devices[i].ID == session.DeviceID {
			target = devices[i]
			break
		}
	}

	if err := session.API.TransferPlayback(ctx, target.ID, false); err != nil {
		m.record(false)
		m.logger.Warn("Failed to transfer playback",
			zap.String("deviceName", target.Name),
			zap.String("deviceID", target.ID),
			zap.Error(err))
		m.remember(session, "")
		return false
	}

	m.record(true)
	m.remember(session, target.ID)
	m.logger.Info("Transferred playback to device",
		zap.String("deviceName", target.Name),
		zap.String("deviceID", target.ID))
	return true
}

// Devices lists the devices Spotify reports right now.
func (m *Manager) Devices(ctx context.Context) ([]core.Device, error) {
	session := m.sessions.Load()
	if !session.Authenticated() {
		return nil, fmt.Errorf("devices: %w", core.ErrNotAuthenticated)
	}
	return m.listDevices(ctx, session.API)
}

// Select transfers playback to deviceID and remembers it.
func (m *Manager) Select(ctx context.Context, deviceID string, play bool) error {
	session := m.sessions.Load()
	if !session.Authenticated() {
		return fmt.Errorf("select device: %w", core.ErrNotAuthenticated)
	}

	if err := session.API.TransferPlayback(ctx, deviceID, play); err != nil {
		m.record(false)
		return fmt.Errorf("failed to transfer playback to %s: %w", deviceID, err)
	}

	m.record(true)
	m.remember(session, deviceID)
	m.logger.Info("Device selected", zap.String("deviceID", deviceID), zap.Bool("play", play))
	return nil
}

// listDevices permits one retry on a connection-class failure.
func (m *Manager) listDevices(ctx context.Context, api core.PlayerAPI) ([]core.Device, error) {
	devices, err := api.Devices(ctx)
	if err != nil && core.IsConnectionError(err) && ctx.Err() == nil {
		m.logger.Debug("Retrying device list after connection error", zap.Error(err))
		devices, err = api.Devices(ctx)
	}
	return devices, err
}

func (m *Manager) remember(session *core.Session, deviceID string) {
	if session.DeviceID == deviceID {
		return
	}
	if !m.sessions.SetDevice(session, deviceID) {
		m.logger.Debug("Session replaced during device reconciliation, dropping device update",
			zap.String("deviceID", deviceID))
	}
}

func (m *Manager) record(success bool) {
	if m.recorder != nil {
		m.recorder.RecordDeviceTransfer(success)
	}
}
