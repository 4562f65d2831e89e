package vm

import "encoding/binary"

func u8(b []byte) int       { return int(b[0]) }
func s8(b []byte) int       { return int(int8(b[0])) }
func u16(b []byte) int      { return int(binary.BigEndian.Uint16(b)) }
func s16(b []byte) int      { return int(int16(binary.BigEndian.Uint16(b))) }
func u32(b []byte) int      { return int(binary.BigEndian.Uint32(b)) }
func s32(b []byte) int32    { return int32(binary.BigEndian.Uint32(b)) }
