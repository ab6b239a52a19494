// Package snapshot implements EdgeVec's versioned binary persistence
// format (wire format v0.4): a magic-prefixed header followed by
// fixed-order tagged length-prefixed sections and a trailing CRC32C
// checksum, built on a little-endian bytes.Buffer/encoding-binary
// idiom.
package snapshot

// Magic is the four-byte file identifier every EdgeVec snapshot opens
// with.
var Magic = [4]byte{'E', 'V', 'E', 'C'}

const (
	VersionMajor = 0
	VersionMinor = 4
)

// Flag bits in the header's 8-byte flags field.
const (
	flagHasBQ       = 1 << 0
	flagHasMetadata = 1 << 1
	flagHasSparse   = 1 << 2
)

// reservedHeaderBytes pads the header to the wire-exact 40-byte layout
// (3 reserved bytes following the 1-byte metric tag at offset 20).
var reservedHeaderBytes = [3]byte{}

// noEntryPointID is the sentinel GRAPH_PARAMS writes for entry_point_id
// when the graph holds no nodes yet. VectorId has no value of its own
// reserved for "none", so the wire format reserves the all-ones u64.
const noEntryPointID = ^uint64(0)

// Section tags, written in this fixed order (sections a reader does not
// recognise, or that a lower minor version never wrote, are treated as
// absent/empty rather than an error).
const (
	sectionGraphParams  = 0x10
	sectionDenseVectors = 0x11
	sectionDenseTombs   = 0x12
	sectionGraphLayers  = 0x13
	sectionBQCodes      = 0x20
	sectionMetaEntries  = 0x30
	sectionSparseVecs   = 0x40
	sectionSparseTombs  = 0x41
	sectionCRC32C       = 0xFF
)
