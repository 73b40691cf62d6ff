package xid

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/netip"
	"os"
	"strconv"
)

// 测试注入点：允许测试替换系统调用以覆盖所有错误分支。
var (
	osHostname        = os.Hostname
	netInterfaceAddrs = net.InterfaceAddrs
)

// EnvMachineID 直接指定机器 ID 的环境变量（0-65535）。
const EnvMachineID = "ROTAKIT_MACHINE_ID"

// DefaultMachineID 获取机器 ID，按以下优先级尝试：
//
//  1. ROTAKIT_MACHINE_ID 环境变量（直接指定数字 0-65535）
//  2. os.Hostname() 的哈希值
//  3. 私有 IP 地址的低 16 位（sonyflake 默认方式）
//
// 多层回退确保在虚拟机、容器、K8s 等环境下都能获取到可用机器 ID，
// 但仅环境变量的显式分配能提供可控唯一性。哈希策略存在生日悖论
// 碰撞风险（50 节点约 1.9%，200 节点约 26%），大规模部署请通过
// ROTAKIT_MACHINE_ID 显式分配。
func DefaultMachineID() (uint16, error) {
	// 策略 1：直接从环境变量读取
	if s := os.Getenv(EnvMachineID); s != "" {
		id, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("xid: invalid %s value %q: %w", EnvMachineID, s, err)
		}
		return uint16(id), nil
	}

	// 策略 2：从 os.Hostname() 哈希。
	// 设计决策: 保留 os.Hostname() 的原始错误，因为它可能产生有诊断价值的
	// 系统错误（如容器内内核限制），在全链路失败时聚合到最终错误中帮助排障。
	hostnameID, hostnameErr := machineIDFromOSHostname()
	if hostnameErr == nil {
		return hostnameID, nil
	}

	// 策略 3：从私有 IP 地址
	id, err := machineIDFromPrivateIP()
	if err != nil {
		return 0, fmt.Errorf("xid: all machine ID strategies exhausted (os-hostname: %v): %w", hostnameErr, err)
	}
	return id, nil
}

// machineIDFromOSHostname 从 os.Hostname() 的哈希值获取机器 ID。
func machineIDFromOSHostname() (uint16, error) {
	hostname, err := osHostname()
	if err != nil {
		return 0, err
	}
	if hostname == "" {
		return 0, errors.New("os.Hostname returned empty string")
	}

	return hashToMachineID(hostname), nil
}

// machineIDFromPrivateIP 从私有 IP 地址的低 16 位获取机器 ID。
// 这是 sonyflake 的默认方式。
//
// 注意：net.InterfaceAddrs 的枚举顺序依赖于操作系统，多网卡环境下
// 重启后可能选到不同的 IP，导致 machine ID 变化。
// 生产环境建议通过 ROTAKIT_MACHINE_ID 环境变量显式分配。
func machineIDFromPrivateIP() (uint16, error) {
	ip, err := privateIPv4()
	if err != nil {
		return 0, err
	}
	b := ip.As4()
	return uint16(b[2])<<8 + uint16(b[3]), nil
}

// hashToMachineID 将字符串哈希为 16 位机器 ID。
// 使用 FNV-1a 哈希算法，通过 XOR 折叠将 32 位哈希压缩为 16 位，
// 比简单截断（仅取低 16 位）更充分利用完整哈希值，分布性更优。
func hashToMachineID(s string) uint16 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s)) // hash.Hash.Write never returns error
	// XOR 折叠：通过字节级操作避免 uint32→uint16 直接转换
	b := h.Sum(nil) // FNV-32 返回 4 字节大端序
	hi := uint16(b[0])<<8 | uint16(b[1])
	lo := uint16(b[2])<<8 | uint16(b[3])
	return hi ^ lo
}

// privateIPv4 获取私有 IPv4 地址（参考 sonyflake 实现）。
func privateIPv4() (netip.Addr, error) {
	addrs, err := netInterfaceAddrs()
	if err != nil {
		return netip.Addr{}, err
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if ip.IsLoopback() || !ip.Is4() {
			continue
		}

		if isPrivateIPv4(ip) {
			return ip, nil
		}
	}

	return netip.Addr{}, ErrNoPrivateAddress
}

// isPrivateIPv4 判断是否为私有 IPv4 地址，
// 包括 RFC1918 私有地址和 RFC3927 链路本地地址。
func isPrivateIPv4(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.Is4() {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
