package fingerprint

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	assert.Equal(t, "aa:bb", Static("aa:bb").Fingerprint())
	assert.Equal(t, Unknown, Static("").Fingerprint())
}

func TestHardware_PicksFirstUsableInterface(t *testing.T) {
	mac := net.HardwareAddr{0x02, 0x42, 0xac, 0x11, 0x00, 0x02}
	h := Hardware{Interfaces: func() ([]net.Interface, error) {
		return []net.Interface{
			{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
			{Name: "eth1", Flags: 0, HardwareAddr: net.HardwareAddr{1, 2, 3, 4, 5, 6}},
			{Name: "tun0", Flags: net.FlagUp},
			{Name: "eth0", Flags: net.FlagUp, HardwareAddr: mac},
		}, nil
	}}

	assert.Equal(t, "02:42:ac:11:00:02", h.Fingerprint())
}

func TestHardware_FallsBackToUnknown(t *testing.T) {
	failing := Hardware{Interfaces: func() ([]net.Interface, error) {
		return nil, errors.New("permission denied")
	}}
	assert.Equal(t, Unknown, failing.Fingerprint())

	empty := Hardware{Interfaces: func() ([]net.Interface, error) {
		return []net.Interface{{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}}, nil
	}}
	assert.Equal(t, Unknown, empty.Fingerprint())
}

func TestHardware_DefaultLookupNeverEmpty(t *testing.T) {
	assert.NotEmpty(t, Hardware{}.Fingerprint())
}
