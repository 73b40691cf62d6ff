package xid

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHostname 替换 os.Hostname 注入点，测试结束后自动恢复。
func stubHostname(t *testing.T, name string, err error) {
	t.Helper()
	orig := osHostname
	osHostname = func() (string, error) { return name, err }
	t.Cleanup(func() { osHostname = orig })
}

// stubInterfaceAddrs 替换 net.InterfaceAddrs 注入点，测试结束后自动恢复。
func stubInterfaceAddrs(t *testing.T, addrs []net.Addr, err error) {
	t.Helper()
	orig := netInterfaceAddrs
	netInterfaceAddrs = func() ([]net.Addr, error) { return addrs, err }
	t.Cleanup(func() { netInterfaceAddrs = orig })
}

func ipNet(a, b, c, d byte) *net.IPNet {
	return &net.IPNet{IP: net.IPv4(a, b, c, d), Mask: net.CIDRMask(24, 32)}
}

func TestDefaultMachineID(t *testing.T) {
	t.Run("EnvVarFirst", func(t *testing.T) {
		t.Setenv(EnvMachineID, "12345")
		// 环境变量优先，主机名不应被使用
		stubHostname(t, "should-not-be-used", nil)

		id, err := DefaultMachineID()
		require.NoError(t, err)
		assert.Equal(t, uint16(12345), id)
	})

	t.Run("EnvVarBounds", func(t *testing.T) {
		t.Setenv(EnvMachineID, "65535")
		id, err := DefaultMachineID()
		require.NoError(t, err)
		assert.Equal(t, uint16(65535), id)

		t.Setenv(EnvMachineID, "0")
		id, err = DefaultMachineID()
		require.NoError(t, err)
		assert.Equal(t, uint16(0), id)
	})

	t.Run("EnvVarInvalid", func(t *testing.T) {
		for _, v := range []string{"abc", "65536", "-1"} {
			t.Setenv(EnvMachineID, v)
			_, err := DefaultMachineID()
			assert.Error(t, err, "value %q", v)
			assert.Contains(t, err.Error(), "invalid")
		}
	})

	t.Run("HostnameSecond", func(t *testing.T) {
		t.Setenv(EnvMachineID, "")
		stubHostname(t, "worker-node-1", nil)

		id, err := DefaultMachineID()
		require.NoError(t, err)
		assert.Equal(t, hashToMachineID("worker-node-1"), id)
	})

	t.Run("PrivateIPThird", func(t *testing.T) {
		t.Setenv(EnvMachineID, "")
		stubHostname(t, "", errors.New("hostname unavailable"))
		stubInterfaceAddrs(t, []net.Addr{ipNet(10, 1, 2, 3)}, nil)

		id, err := DefaultMachineID()
		require.NoError(t, err)
		// 低 16 位 = 2<<8 + 3
		assert.Equal(t, uint16(2)<<8+uint16(3), id)
	})

	t.Run("AllStrategiesExhausted", func(t *testing.T) {
		t.Setenv(EnvMachineID, "")
		stubHostname(t, "", errors.New("hostname unavailable"))
		stubInterfaceAddrs(t, []net.Addr{ipNet(8, 8, 8, 8)}, nil)

		_, err := DefaultMachineID()
		require.ErrorIs(t, err, ErrNoPrivateAddress)
		// 主机名失败原因聚合在最终错误中，便于排障
		assert.Contains(t, err.Error(), "hostname unavailable")
	})
}

func TestMachineIDFromOSHostname(t *testing.T) {
	t.Run("EmptyHostname", func(t *testing.T) {
		stubHostname(t, "", nil)
		_, err := machineIDFromOSHostname()
		assert.Error(t, err)
	})

	t.Run("SystemError", func(t *testing.T) {
		sentinel := errors.New("syscall failed")
		stubHostname(t, "", sentinel)
		_, err := machineIDFromOSHostname()
		assert.ErrorIs(t, err, sentinel)
	})
}

func TestHashToMachineID(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, hashToMachineID("test-string"), hashToMachineID("test-string"))
	})

	t.Run("DifferentInputs", func(t *testing.T) {
		assert.NotEqual(t, hashToMachineID("node-a"), hashToMachineID("node-b"))
	})
}

func TestPrivateIPv4(t *testing.T) {
	t.Run("SkipsPublicAndLoopback", func(t *testing.T) {
		stubInterfaceAddrs(t, []net.Addr{
			ipNet(127, 0, 0, 1),
			ipNet(8, 8, 8, 8),
			ipNet(192, 168, 1, 42),
		}, nil)

		ip, err := privateIPv4()
		require.NoError(t, err)
		assert.Equal(t, netip.AddrFrom4([4]byte{192, 168, 1, 42}), ip)
	})

	t.Run("InterfaceError", func(t *testing.T) {
		sentinel := errors.New("interfaces unavailable")
		stubInterfaceAddrs(t, nil, sentinel)
		_, err := privateIPv4()
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("NoPrivateAddress", func(t *testing.T) {
		stubInterfaceAddrs(t, []net.Addr{ipNet(1, 2, 3, 4)}, nil)
		_, err := privateIPv4()
		assert.ErrorIs(t, err, ErrNoPrivateAddress)
	})
}

func TestIsPrivateIPv4(t *testing.T) {
	tests := []struct {
		name     string
		ip       netip.Addr
		expected bool
	}{
		{"10.0.0.1", netip.AddrFrom4([4]byte{10, 0, 0, 1}), true},
		{"172.16.0.1", netip.AddrFrom4([4]byte{172, 16, 0, 1}), true},
		{"172.32.0.1", netip.AddrFrom4([4]byte{172, 32, 0, 1}), false},
		{"192.168.0.1", netip.AddrFrom4([4]byte{192, 168, 0, 1}), true},
		{"169.254.0.1 (link-local)", netip.AddrFrom4([4]byte{169, 254, 0, 1}), true},
		{"8.8.8.8 (public)", netip.AddrFrom4([4]byte{8, 8, 8, 8}), false},
		{"127.0.0.1 (loopback)", netip.AddrFrom4([4]byte{127, 0, 0, 1}), false},
		{"IPv6", netip.MustParseAddr("fd00::1"), false},
		{"zero", netip.Addr{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isPrivateIPv4(tt.ip))
		})
	}
}
