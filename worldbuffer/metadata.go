package worldbuffer

import "encoding/binary"

// MetadataRecordSize is the per-slot metadata record size in bytes
// (spec §6): flags(4) + timestamp(4) + checksum(4) + y_position(4) +
// slot_index(4) + reserved[3](12) = 32.
const MetadataRecordSize = 32

// encodeMetadata packs one slot's metadata record per spec §6:
//
//	u32 flags = (x_lo16 << 16) | z_lo16
//	u32 timestamp
//	u32 checksum
//	i32 y_position
//	u32 slot_index
//	u32 reserved[3]
func encodeMetadata(c ChunkCoord, slot uint32, timestamp, checksum uint32) []byte {
	buf := make([]byte, MetadataRecordSize)
	xLo := uint32(uint16(c.X))
	zLo := uint32(uint16(c.Z))
	flags := (xLo << 16) | zLo
	binary.LittleEndian.PutUint32(buf[0:4], flags)
	binary.LittleEndian.PutUint32(buf[4:8], timestamp)
	binary.LittleEndian.PutUint32(buf[8:12], checksum)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(c.Y))
	binary.LittleEndian.PutUint32(buf[16:20], slot)
	// buf[20:32] reserved, left zero.
	return buf
}

// decodeMetadata is the inverse of encodeMetadata, sign-extending x and z
// from their packed 16-bit halves as the shader-side contract requires.
func decodeMetadata(buf []byte) (c ChunkCoord, slot, timestamp, checksum uint32) {
	flags := binary.LittleEndian.Uint32(buf[0:4])
	timestamp = binary.LittleEndian.Uint32(buf[4:8])
	checksum = binary.LittleEndian.Uint32(buf[8:12])
	y := int32(binary.LittleEndian.Uint32(buf[12:16]))
	slot = binary.LittleEndian.Uint32(buf[16:20])

	xLo := int16(uint16(flags >> 16))
	zLo := int16(uint16(flags & 0xFFFF))
	c = ChunkCoord{X: int32(xLo), Y: y, Z: int32(zLo)}
	return c, slot, timestamp, checksum
}
