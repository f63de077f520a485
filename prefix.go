package radix

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"net/netip"
	"strconv"
	"strings"

	"github.com/hideo55/go-popcount"
)

// Family is the address family of a Prefix or a Tree.
type Family uint8

const (
	FamilyUnset Family = iota
	IPv4
	IPv6
)

// Bits returns the address width of the family in bits.
func (f Family) Bits() int {
	switch f {
	case IPv4:
		return 32
	case IPv6:
		return 128
	}
	return 0
}

// ByteLen returns the address width of the family in bytes.
func (f Family) ByteLen() int {
	switch f {
	case IPv4:
		return 4
	case IPv6:
		return 16
	}
	return 0
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return "unset"
}

// Prefix is an immutable (family, address, bitlen) triple identifying a
// network or host range. The address is kept in network byte order with all
// bits beyond bitlen zeroed, so two prefixes are equal iff their family,
// bitlen and significant bits are equal.
//
// The zero Prefix has FamilyUnset and belongs to no tree.
type Prefix struct {
	addr   [16]byte // first ByteLen() bytes are significant
	bitlen uint8
	family Family
}

// ParsePrefix parses a textual prefix: a bare address ("10.1.2.3", "::1"),
// a CIDR form ("10.0.0.0/8", "2001:200::/32"), or an IPv4 network with a
// dotted netmask ("10.0.0.0/255.0.0.0"). A bare address gets the family's
// full width.
func ParsePrefix(s string) (Prefix, error) {
	return ParsePrefixBits(s, -1)
}

// ParsePrefixBits is ParsePrefix with an explicit bit length. A negative
// bitlen means "take the length from the string, or default to the family's
// full width"; a non-negative bitlen overrides any /len suffix.
func ParsePrefixBits(s string, bitlen int) (Prefix, error) {
	var (
		addr    = s
		lenPart = ""
	)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		addr, lenPart = s[:i], s[i+1:]
	}

	ip, err := netip.ParseAddr(addr)
	if err != nil || ip.Zone() != "" {
		return Prefix{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	var p Prefix
	if ip.Is4() {
		p.family = IPv4
		a4 := ip.As4()
		copy(p.addr[:], a4[:])
	} else {
		p.family = IPv6
		p.addr = ip.As16()
	}

	if bitlen < 0 {
		if lenPart == "" {
			bitlen = p.family.Bits()
		} else if bitlen, err = parseMaskLen(lenPart, p.family); err != nil {
			return Prefix{}, err
		}
	}
	if bitlen > p.family.Bits() {
		return Prefix{}, fmt.Errorf("%w: /%d does not fit %s", ErrBitlenRange, bitlen, p.family)
	}
	p.bitlen = uint8(bitlen)
	p.mask()
	return p, nil
}

// PrefixFromPacked builds a Prefix from a packed binary address: 4 bytes for
// IPv4, 16 bytes for IPv6 (the family is inferred from the length). A
// negative bitlen defaults to the family's full width.
func PrefixFromPacked(packed []byte, bitlen int) (Prefix, error) {
	var p Prefix
	switch len(packed) {
	case 4:
		p.family = IPv4
	case 16:
		p.family = IPv6
	default:
		return Prefix{}, fmt.Errorf("%w: packed address must be 4 or 16 bytes, got %d", ErrInvalidFormat, len(packed))
	}
	if bitlen < 0 {
		bitlen = p.family.Bits()
	}
	if bitlen > p.family.Bits() {
		return Prefix{}, fmt.Errorf("%w: /%d does not fit %s", ErrBitlenRange, bitlen, p.family)
	}
	copy(p.addr[:], packed)
	p.bitlen = uint8(bitlen)
	p.mask()
	return p, nil
}

// MustParsePrefix is ParsePrefix that panics on error. Intended for
// tests and initialization with fixed inputs.
func MustParsePrefix(s string) Prefix {
	p, err := ParsePrefix(s)
	if err != nil {
		panic(err)
	}
	return p
}

// parseMaskLen parses the part after '/': a decimal bit count, or - for
// IPv4 - a dotted netmask whose set bits must be contiguous.
func parseMaskLen(s string, family Family) (int, error) {
	if strings.IndexByte(s, '.') >= 0 {
		if family != IPv4 {
			return 0, fmt.Errorf("%w: dotted netmask %q on a non-IPv4 address", ErrInvalidFormat, s)
		}
		m, err := netip.ParseAddr(s)
		if err != nil || !m.Is4() {
			return 0, fmt.Errorf("%w: bad netmask %q", ErrInvalidFormat, s)
		}
		quad := m.As4()
		mask := binary.BigEndian.Uint32(quad[:])
		n := int(popcount.Count(uint64(mask)))
		if mask != ^uint32(0)<<(32-n) {
			return 0, fmt.Errorf("%w: non-contiguous netmask %q", ErrInvalidFormat, s)
		}
		return n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad prefix length %q", ErrInvalidFormat, s)
	}
	return n, nil
}

// mask zeroes the address bits beyond bitlen.
func (p *Prefix) mask() {
	i := int(p.bitlen) >> 3
	if i >= len(p.addr) {
		return
	}
	if r := p.bitlen & 7; r != 0 {
		p.addr[i] &= ^byte(0) << (8 - r)
		i++
	}
	for ; i < len(p.addr); i++ {
		p.addr[i] = 0
	}
}

// bit reports whether the i-th most significant address bit is set.
func (p *Prefix) bit(i int) bool {
	return p.addr[i>>3]&(0x80>>(uint(i)&7)) != 0
}

// Family returns the prefix's address family.
func (p Prefix) Family() Family { return p.family }

// Bitlen returns the number of significant leading address bits.
func (p Prefix) Bitlen() int { return int(p.bitlen) }

// Packed returns a copy of the address truncated to the family's natural
// width: 4 bytes for IPv4, 16 for IPv6. The result is nil for the zero
// Prefix.
func (p Prefix) Packed() []byte {
	size := p.family.ByteLen()
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, p.addr[:])
	return out
}

// Network returns the textual network address: the address with all
// non-significant bits zeroed, e.g. "10.0.0.0".
func (p Prefix) Network() string {
	switch p.family {
	case IPv4:
		var a4 [4]byte
		copy(a4[:], p.addr[:4])
		return netip.AddrFrom4(a4).String()
	case IPv6:
		return netip.AddrFrom16(p.addr).String()
	}
	return "invalid"
}

// String returns the canonical CIDR form, e.g. "10.0.0.0/8".
func (p Prefix) String() string {
	if p.family == FamilyUnset {
		return "invalid"
	}
	return p.Network() + "/" + strconv.Itoa(int(p.bitlen))
}

// Equal reports whether p and q denote the same network range.
func (p Prefix) Equal(q Prefix) bool {
	return p.family == q.family && p.bitlen == q.bitlen && p.addr == q.addr
}

// Contains reports whether p covers every address that q covers: same
// family, p no longer than q, and q matching p on p's significant bits.
func (p Prefix) Contains(q Prefix) bool {
	if p.family != q.family || p.bitlen > q.bitlen {
		return false
	}
	return commonBits(&p.addr, &q.addr, int(p.bitlen)) == int(p.bitlen)
}

// commonBits returns the length of the common leading bit sequence of a and
// b, capped at limit.
func commonBits(a, b *[16]byte, limit int) int {
	for i := 0; i<<3 < limit; i++ {
		if x := a[i] ^ b[i]; x != 0 {
			if d := i<<3 + bits.LeadingZeros8(x); d < limit {
				return d
			}
			return limit
		}
	}
	return limit
}
