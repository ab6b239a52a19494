package snapshot

import (
	"bytes"
	"hash/crc32"

	"github.com/edgevec/edgevec/bq"
	"github.com/edgevec/edgevec/hnsw"
	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/internal/bitset"
	"github.com/edgevec/edgevec/metadata"
	"github.com/edgevec/edgevec/metric"
	"github.com/edgevec/edgevec/sparse"
	"github.com/edgevec/edgevec/vectorstore"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Input bundles every live component a snapshot captures. BQ, Metadata,
// and Sparse are optional; a nil pointer is encoded as "absent" and the
// corresponding flag bit is cleared.
type Input struct {
	Dimensions int
	Metric     metric.Metric
	Dense      *vectorstore.Storage
	Graph      *hnsw.Graph
	BQ         *bq.Storage
	Metadata   *metadata.Store
	Sparse     *sparse.Storage
}

// Output is the decoded counterpart of Input: every component rebuilt
// directly from snapshot bytes via each package's RestoreFromSnapshot
// constructor, ready for an Index to adopt wholesale.
type Output struct {
	Dimensions int
	Metric     metric.Metric
	Dense      *vectorstore.Storage
	Graph      *hnsw.Graph
	BQ         *bq.Storage
	Metadata   *metadata.Store
	Sparse     *sparse.Storage
}

// Encode serialises in into the v0.4 wire format.
func Encode(in Input) ([]byte, error) {
	var flags uint8
	if in.BQ != nil {
		flags |= flagHasBQ
	}
	if in.Metadata != nil {
		flags |= flagHasMetadata
	}
	if in.Sparse != nil {
		flags |= flagHasSparse
	}

	var buf bytes.Buffer
	buf.Write(Magic[:])
	writeU16(&buf, VersionMajor)
	writeU16(&buf, VersionMinor)
	writeU64(&buf, uint64(flags))
	writeU32(&buf, uint32(in.Dimensions))
	writeU8(&buf, in.Metric.Tag())
	buf.Write(reservedHeaderBytes[:])
	writeU64(&buf, in.Dense.NextID())
	if in.Sparse != nil {
		writeU64(&buf, in.Sparse.NextID())
	} else {
		writeU64(&buf, 0)
	}

	writeSection(&buf, sectionGraphParams, encodeGraphParams(in.Graph))
	writeSection(&buf, sectionDenseVectors, encodeDenseVectors(in.Dimensions, in.Dense.RawBuffer()))
	writeSection(&buf, sectionDenseTombs, encodeTombs(in.Dense.Tombstones()))
	writeSection(&buf, sectionGraphLayers, encodeGraphLayers(in.Graph))

	if in.BQ != nil {
		writeSection(&buf, sectionBQCodes, encodeBQCodes(in.BQ, in.Dimensions/8))
	}
	if in.Metadata != nil {
		writeSection(&buf, sectionMetaEntries, encodeMetaEntries(in.Metadata))
	}
	if in.Sparse != nil {
		writeSection(&buf, sectionSparseVecs, encodeSparseVecs(in.Sparse))
		writeSection(&buf, sectionSparseTombs, encodeTombs(in.Sparse.Tombstones()))
	}

	crc := crc32.Checksum(buf.Bytes(), crc32cTable)
	var crcPayload bytes.Buffer
	writeU32(&crcPayload, crc)
	writeSection(&buf, sectionCRC32C, crcPayload.Bytes())

	return buf.Bytes(), nil
}

func writeSection(buf *bytes.Buffer, tag uint8, payload []byte) {
	writeU8(buf, tag)
	writeU32(buf, uint32(len(payload)))
	buf.Write(payload)
}

// Decode parses data, verifies its CRC32C trailer, and rebuilds every
// captured component. major must be 0; minor may be any value <= 4 (a
// lower-minor snapshot simply omits sections this version would have
// written, which decode treats as absent rather than as an error).
func Decode(data []byte) (*Output, error) {
	const headerLen = 4 + 2 + 2 + 8 + 4 + 1 + 3 + 8 + 8 // 40 bytes, per the wire-exact layout
	if len(data) < headerLen {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != Magic {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errBadMagic)
	}
	major, err := readU16(r)
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	minor, err := readU16(r)
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	if major != VersionMajor {
		return nil, apperr.Newf("snapshot.Decode", apperr.UnsupportedFormatVersion,
			"unsupported snapshot major version %d", major)
	}
	_ = minor // forward-compatible: absent lower-minor sections are treated as empty below.

	flags64, err := readU64(r)
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	flags := uint8(flags64)
	dim, err := readU32(r)
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	metricTag, err := readU8(r)
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	m, ok := metric.MetricFromTag(metricTag)
	if !ok {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errBadMetricTag)
	}
	if _, err := readBytes(r, 3); err != nil { // reserved
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	nextVectorID, err := readU64(r)
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}
	nextSparseID, err := readU64(r)
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortHeader)
	}

	sections := make(map[uint8][]byte)
	var trailerOffset int
	for r.Len() > 0 {
		offsetBeforeTag := len(data) - r.Len()
		tag, err := readU8(r)
		if err != nil {
			return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
		}
		length, err := readU32(r)
		if err != nil {
			return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
		}
		payload, err := readBytes(r, int(length))
		if err != nil {
			return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
		}
		if tag == sectionCRC32C {
			trailerOffset = offsetBeforeTag
			sections[tag] = payload
			break
		}
		sections[tag] = payload
	}

	crcPayload, ok := sections[sectionCRC32C]
	if !ok || len(crcPayload) != 4 {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errMissingTrailer)
	}
	crcReader := bytes.NewReader(crcPayload)
	wantCRC, _ := readU32(crcReader)
	gotCRC := crc32.Checksum(data[:trailerOffset], crc32cTable)
	if wantCRC != gotCRC {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errCRCMismatch)
	}

	out := &Output{Dimensions: int(dim), Metric: m}

	denseBuf, err := decodeDenseVectors(sections[sectionDenseVectors], int(dim))
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
	}
	denseTombs, err := decodeTombs(sections[sectionDenseTombs])
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
	}
	out.Dense = vectorstore.RestoreFromSnapshot(int(dim), denseBuf, denseTombs, nextVectorID)

	gp, err := decodeGraphParams(sections[sectionGraphParams])
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
	}
	distFn, err := metric.DenseDistance(m)
	if err != nil {
		return nil, err
	}
	graph := hnsw.NewFromSnapshot(gp.params, distFn, out.Dense.RawAny)
	nodes, err := decodeGraphLayers(sections[sectionGraphLayers], out.Dense.Len())
	if err != nil {
		return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
	}
	for _, n := range nodes {
		graph.RestoreNode(n.id, n.layers)
	}
	if gp.hasEntry {
		graph.SetEntryPoint(vectorstore.VectorId(gp.entryID), int(gp.topLayer))
	}
	out.Graph = graph

	if flags&flagHasBQ != 0 {
		bytesPerCode := (int(dim) + 7) / 8
		bqBuf, err := decodeBQCodes(sections[sectionBQCodes], bytesPerCode)
		if err != nil {
			return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
		}
		bqTombs := bitset.FromBytes(denseTombs.Bytes(), denseTombs.Len())
		restored, err := bq.RestoreFromSnapshot(int(dim), bqBuf, bqTombs)
		if err != nil {
			return nil, err
		}
		out.BQ = restored
	}

	if flags&flagHasMetadata != 0 {
		entries, err := decodeMetaEntries(sections[sectionMetaEntries])
		if err != nil {
			return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
		}
		out.Metadata = metadata.RestoreFromSnapshot(entries)
	}

	if flags&flagHasSparse != 0 {
		vecs, sparseDim, err := decodeSparseVecs(sections[sectionSparseVecs])
		if err != nil {
			return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
		}
		sparseTombs, err := decodeTombs(sections[sectionSparseTombs])
		if err != nil {
			return nil, apperr.New("snapshot.Decode", apperr.SnapshotCorrupted, errShortSection)
		}
		out.Sparse = sparse.RestoreFromSnapshot(sparseDim, vecs, sparseTombs, nextSparseID)
	}

	return out, nil
}
