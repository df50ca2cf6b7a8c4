// Package fingerprint derives a best-effort device identifier sent along
// with authentication requests. It is telemetry, not a credential: lookups
// never fail, they fall back to Unknown.
package fingerprint

import "net"

// Unknown is reported when no hardware address can be read.
const Unknown = "unknown"

// Provider returns the fingerprint of the current device.
type Provider interface {
	Fingerprint() string
}

// Static always reports the same value.
type Static string

func (s Static) Fingerprint() string {
	if s == "" {
		return Unknown
	}
	return string(s)
}

// Hardware reports the address of the first network interface that is up,
// is not a loopback and has a hardware address.
type Hardware struct {
	// Interfaces lists the host interfaces; nil means net.Interfaces.
	Interfaces func() ([]net.Interface, error)
}

func (h Hardware) Fingerprint() string {
	list := h.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return Unknown
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if addr := iface.HardwareAddr.String(); addr != "" {
			return addr
		}
	}
	return Unknown
}

var (
	_ Provider = Static("")
	_ Provider = Hardware{}
)
