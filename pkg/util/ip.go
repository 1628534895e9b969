package util

import "net"

// IsValidIPv4 checks if a string is a valid IPv4 address
func IsValidIPv4(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil && ip.To4() != nil
}

// IsValidIPv4Mask checks if a string is a valid dotted-decimal IPv4 netmask
// (contiguous ones followed by zeros, e.g. 255.255.255.252).
func IsValidIPv4Mask(maskStr string) bool {
	ip := net.ParseIP(maskStr)
	if ip == nil {
		return false
	}
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	mask := net.IPv4Mask(v4[0], v4[1], v4[2], v4[3])
	ones, bits := mask.Size()
	return bits == 32 && (ones > 0 || maskStr == "0.0.0.0")
}
