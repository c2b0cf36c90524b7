package utils

import "hash/crc32"

// Checksum is the IEEE CRC-32 of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func VerifyChecksum(sum uint32, data []byte) bool {
	return Checksum(data) == sum
}
