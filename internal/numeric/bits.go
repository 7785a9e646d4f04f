package numeric

import "math/bits"

// Rotl32 implements i32.rotl. The rotation amount is reduced modulo 32
// by math/bits.RotateLeft32.
func Rotl32(v, n uint32) uint32 { return bits.RotateLeft32(v, int(n)) }

// Rotr32 implements i32.rotr.
func Rotr32(v, n uint32) uint32 { return bits.RotateLeft32(v, -int(n)) }

// Rotl64 implements i64.rotl.
func Rotl64(v, n uint64) uint64 { return bits.RotateLeft64(v, int(n)) }

// Rotr64 implements i64.rotr.
func Rotr64(v, n uint64) uint64 { return bits.RotateLeft64(v, -int(n)) }

// Clz32 implements i32.clz: leading-zero count, 32 for an all-zero input.
func Clz32(v uint32) uint32 { return uint32(bits.LeadingZeros32(v)) }

// Ctz32 implements i32.ctz: trailing-zero count, 32 for an all-zero input.
func Ctz32(v uint32) uint32 { return uint32(bits.TrailingZeros32(v)) }

// Popcnt32 implements i32.popcnt.
func Popcnt32(v uint32) uint32 { return uint32(bits.OnesCount32(v)) }

// Clz64 implements i64.clz.
func Clz64(v uint64) uint64 { return uint64(bits.LeadingZeros64(v)) }

// Ctz64 implements i64.ctz.
func Ctz64(v uint64) uint64 { return uint64(bits.TrailingZeros64(v)) }

// Popcnt64 implements i64.popcnt.
func Popcnt64(v uint64) uint64 { return uint64(bits.OnesCount64(v)) }
