package xbee

import (
	"fmt"

	"xbee-go-home/internal/wpan"
)

// Modem status codes (frame type 0x8A).
const (
	ModemStatusHardwareReset      uint8 = 0x00
	ModemStatusWatchdogReset      uint8 = 0x01
	ModemStatusJoined             uint8 = 0x02
	ModemStatusDisassociated      uint8 = 0x03
	ModemStatusCoordinatorStarted uint8 = 0x06
	ModemStatusNetworkKeyUpdated  uint8 = 0x07
	ModemStatusWokeUp             uint8 = 0x0B
	ModemStatusSleeping           uint8 = 0x0C
	ModemStatusOvervoltage        uint8 = 0x0D
	ModemStatusKeyEstablished     uint8 = 0x10
	ModemStatusConfigChangeInJoin uint8 = 0x11
	ModemStatusStackError         uint8 = 0x80
)

// ModemStatusName returns a human-readable name for a modem status code.
func ModemStatusName(status uint8) string {
	switch status {
	case ModemStatusHardwareReset:
		return "HardwareReset"
	case ModemStatusWatchdogReset:
		return "WatchdogReset"
	case ModemStatusJoined:
		return "Joined"
	case ModemStatusDisassociated:
		return "Disassociated"
	case ModemStatusCoordinatorStarted:
		return "CoordinatorStarted"
	case ModemStatusNetworkKeyUpdated:
		return "NetworkKeyUpdated"
	case ModemStatusWokeUp:
		return "WokeUp"
	case ModemStatusSleeping:
		return "Sleeping"
	case ModemStatusOvervoltage:
		return "Overvoltage"
	case ModemStatusKeyEstablished:
		return "KeyEstablished"
	case ModemStatusConfigChangeInJoin:
		return "ConfigChangeInJoin"
	case ModemStatusStackError:
		return "StackError"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", status)
	}
}

// applyModemStatus records status and updates the attached network state.
func (d *Device) applyModemStatus(status uint8) {
	d.modemStatus.Store(int32(status))
	d.logger.Debug("modem status", "status", ModemStatusName(status))

	w := d.wpan
	if w == nil {
		return
	}
	switch status {
	case ModemStatusCoordinatorStarted:
		w.SetNetwork(wpan.NetAddrCoordinator)
		w.UpdateFlags(wpan.FlagJoined|wpan.FlagAuthenticated, 0)
	case ModemStatusKeyEstablished:
		w.UpdateFlags(wpan.FlagAuthenticated|wpan.FlagJoined, 0)
	case ModemStatusJoined:
		w.UpdateFlags(wpan.FlagJoined, 0)
	case ModemStatusHardwareReset, ModemStatusWatchdogReset, ModemStatusDisassociated:
		w.UpdateFlags(0, wpan.FlagJoined|wpan.FlagAuthenticated)
		w.SetNetwork(wpan.NetAddrUndefined)
	}
}
