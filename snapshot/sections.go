package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/edgevec/edgevec/bq"
	"github.com/edgevec/edgevec/hnsw"
	"github.com/edgevec/edgevec/internal/bitset"
	"github.com/edgevec/edgevec/metadata"
	"github.com/edgevec/edgevec/sparse"
	"github.com/edgevec/edgevec/vectorstore"
)

func writeU8(buf *bytes.Buffer, v uint8)   { buf.WriteByte(v) }
func writeU16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) } //nolint:errcheck
func writeU32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) } //nolint:errcheck
func writeU64(buf *bytes.Buffer, v uint64) { binary.Write(buf, binary.LittleEndian, v) } //nolint:errcheck
func writeI32(buf *bytes.Buffer, v int32)  { binary.Write(buf, binary.LittleEndian, v) } //nolint:errcheck
func writeI64(buf *bytes.Buffer, v int64)  { binary.Write(buf, binary.LittleEndian, v) } //nolint:errcheck
func writeF32(buf *bytes.Buffer, v float32) {
	binary.Write(buf, binary.LittleEndian, v) //nolint:errcheck
}
func writeF64(buf *bytes.Buffer, v float64) {
	binary.Write(buf, binary.LittleEndian, v) //nolint:errcheck
}
func writeBytes(buf *bytes.Buffer, b []byte) { buf.Write(b) }
func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
func writeShortString(buf *bytes.Buffer, s string) {
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
}

func readU8(r *bytes.Reader) (uint8, error) { return r.ReadByte() }

func readU16(r *bytes.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU32(r *bytes.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU64(r *bytes.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readI32(r *bytes.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readI64(r *bytes.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readF32(r *bytes.Reader) (float32, error) {
	var v float32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readF64(r *bytes.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readBytes(r *bytes.Reader, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b, err := readBytes(r, int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readShortString(r *bytes.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	b, err := readBytes(r, int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// graphParams bundles everything GRAPH_PARAMS carries: the graph's
// construction parameters plus its current entry point and top layer.
type graphParams struct {
	params   hnsw.Params
	entryID  uint64
	hasEntry bool
	topLayer int32
}

// encodeGraphParams writes the wire-exact field order: M, M0,
// ef_construction, ef_search, entry_point_id, top_layer, rng_seed. An
// empty graph (no entry point yet) writes noEntryPointID in place of a
// real id rather than an out-of-band presence byte.
func encodeGraphParams(g *hnsw.Graph) []byte {
	p := g.Params()
	entryID, hasEntry := g.EntryPoint()

	var buf bytes.Buffer
	writeU32(&buf, uint32(p.M))
	writeU32(&buf, uint32(p.M0))
	writeU32(&buf, uint32(p.EfConstruction))
	writeU32(&buf, uint32(p.EfSearch))
	if hasEntry {
		writeU64(&buf, uint64(entryID))
	} else {
		writeU64(&buf, noEntryPointID)
	}
	writeI32(&buf, int32(g.TopLayer()))
	writeI64(&buf, p.Seed)
	return buf.Bytes()
}

func decodeGraphParams(data []byte) (graphParams, error) {
	r := bytes.NewReader(data)
	m, err := readU32(r)
	if err != nil {
		return graphParams{}, err
	}
	m0, err := readU32(r)
	if err != nil {
		return graphParams{}, err
	}
	efc, err := readU32(r)
	if err != nil {
		return graphParams{}, err
	}
	efs, err := readU32(r)
	if err != nil {
		return graphParams{}, err
	}
	entryID, err := readU64(r)
	if err != nil {
		return graphParams{}, err
	}
	topLayer, err := readI32(r)
	if err != nil {
		return graphParams{}, err
	}
	seed, err := readI64(r)
	if err != nil {
		return graphParams{}, err
	}
	return graphParams{
		params: hnsw.Params{
			M: int(m), M0: int(m0), EfConstruction: int(efc), EfSearch: int(efs), Seed: seed,
		},
		entryID:  entryID,
		hasEntry: entryID != noEntryPointID,
		topLayer: topLayer,
	}, nil
}

func encodeDenseVectors(dim int, buf []float32) []byte {
	count := 0
	if dim > 0 {
		count = len(buf) / dim
	}
	var out bytes.Buffer
	writeU32(&out, uint32(count))
	for _, v := range buf {
		writeF32(&out, v)
	}
	return out.Bytes()
}

func decodeDenseVectors(data []byte, dim int) ([]float32, error) {
	r := bytes.NewReader(data)
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]float32, 0, int(count)*dim)
	for i := 0; i < int(count)*dim; i++ {
		v, err := readF32(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func encodeTombs(t *bitset.Set) []byte {
	var out bytes.Buffer
	writeU32(&out, uint32(t.Len()))
	writeBytes(&out, t.Bytes())
	return out.Bytes()
}

func decodeTombs(data []byte) (*bitset.Set, error) {
	r := bytes.NewReader(data)
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	nbytes := (int(n) + 7) / 8
	b, err := readBytes(r, nbytes)
	if err != nil {
		return nil, err
	}
	return bitset.FromBytes(b, int(n)), nil
}

// encodeGraphLayers writes one entry per graph node (tombstoned ones
// included), in ascending id order
// with no count or id prefix of its own (the id is implied by its
// position, matching DENSE_VECTORS's order): u16 top_layer, then per
// layer from top down, u16 degree followed by degree*(u64 id, f32 dist).
func encodeGraphLayers(g *hnsw.Graph) []byte {
	ids := g.NodeIDs()
	var out bytes.Buffer
	for _, id := range ids {
		topLayer, _ := g.NodeTopLayer(id)
		writeU16(&out, uint16(topLayer))
		for lc := topLayer; lc >= 0; lc-- {
			edges, _ := g.LayerNeighbors(id, lc)
			writeU16(&out, uint16(len(edges)))
			for _, e := range edges {
				writeU64(&out, uint64(e.ID))
				writeF32(&out, e.Dist)
			}
		}
	}
	return out.Bytes()
}

type decodedNode struct {
	id     vectorstore.VectorId
	layers [][]hnsw.Result
}

// decodeGraphLayers reads nodeCount entries (the total dense id count,
// live and tombstoned, which is how many ids GRAPH_LAYERS implicitly
// enumerates), assigning ascending ids 0..nodeCount-1 by position.
func decodeGraphLayers(data []byte, nodeCount int) ([]decodedNode, error) {
	r := bytes.NewReader(data)
	out := make([]decodedNode, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		topLayer16, err := readU16(r)
		if err != nil {
			return nil, err
		}
		topLayer := int(topLayer16)
		layers := make([][]hnsw.Result, topLayer+1)
		for lc := topLayer; lc >= 0; lc-- {
			degree, err := readU16(r)
			if err != nil {
				return nil, err
			}
			edges := make([]hnsw.Result, degree)
			for j := uint16(0); j < degree; j++ {
				eid, err := readU64(r)
				if err != nil {
					return nil, err
				}
				dist, err := readF32(r)
				if err != nil {
					return nil, err
				}
				edges[j] = hnsw.Result{ID: vectorstore.VectorId(eid), Dist: dist}
			}
			layers[lc] = edges
		}
		out = append(out, decodedNode{id: vectorstore.VectorId(i), layers: layers})
	}
	return out, nil
}

// encodeBQCodes writes count u32 followed by count*ceil(dim/8) raw code
// bytes. bytesPerCode is derived from the header's dim on decode, not
// carried in the section itself.
func encodeBQCodes(s *bq.Storage, bytesPerCode int) []byte {
	buf := s.RawBuffer()
	count := 0
	if bytesPerCode > 0 {
		count = len(buf) / bytesPerCode
	}
	var out bytes.Buffer
	writeU32(&out, uint32(count))
	writeBytes(&out, buf)
	return out.Bytes()
}

func decodeBQCodes(data []byte, bytesPerCode int) ([]byte, error) {
	r := bytes.NewReader(data)
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	buf, err := readBytes(r, int(count)*bytesPerCode)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

const (
	metaKindString     = 0
	metaKindF64        = 1
	metaKindBool       = 2
	metaKindStringList = 3
)

func encodeMetaEntries(store *metadata.Store) []byte {
	entries := store.Entries()
	var out bytes.Buffer
	writeU32(&out, uint32(len(entries)))
	for id, m := range entries {
		writeU64(&out, uint64(id))
		writeU16(&out, uint16(len(m)))
		for key, v := range m {
			writeShortString(&out, key)
			switch v.Kind {
			case metadata.KindString:
				writeU8(&out, metaKindString)
				writeString(&out, v.Str)
			case metadata.KindF64:
				writeU8(&out, metaKindF64)
				writeF64(&out, v.Num)
			case metadata.KindBool:
				writeU8(&out, metaKindBool)
				if v.Bool {
					writeU8(&out, 1)
				} else {
					writeU8(&out, 0)
				}
			case metadata.KindStringList:
				writeU8(&out, metaKindStringList)
				writeU32(&out, uint32(len(v.List)))
				for _, e := range v.List {
					writeString(&out, e)
				}
			}
		}
	}
	return out.Bytes()
}

func decodeMetaEntries(data []byte) (map[vectorstore.VectorId]metadata.Map, error) {
	r := bytes.NewReader(data)
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make(map[vectorstore.VectorId]metadata.Map, count)
	for i := uint32(0); i < count; i++ {
		id, err := readU64(r)
		if err != nil {
			return nil, err
		}
		numFields, err := readU16(r)
		if err != nil {
			return nil, err
		}
		m := make(metadata.Map, numFields)
		for j := uint16(0); j < numFields; j++ {
			key, err := readShortString(r)
			if err != nil {
				return nil, err
			}
			kind, err := readU8(r)
			if err != nil {
				return nil, err
			}
			switch kind {
			case metaKindString:
				s, err := readString(r)
				if err != nil {
					return nil, err
				}
				m[key] = metadata.String(s)
			case metaKindF64:
				f, err := readF64(r)
				if err != nil {
					return nil, err
				}
				m[key] = metadata.F64(f)
			case metaKindBool:
				b, err := readU8(r)
				if err != nil {
					return nil, err
				}
				m[key] = metadata.NewBool(b != 0)
			case metaKindStringList:
				n, err := readU32(r)
				if err != nil {
					return nil, err
				}
				list := make([]string, n)
				for k := uint32(0); k < n; k++ {
					list[k], err = readString(r)
					if err != nil {
						return nil, err
					}
				}
				m[key] = metadata.StringList(list)
			default:
				return nil, fmt.Errorf("snapshot: unknown metadata value kind %d", kind)
			}
		}
		out[vectorstore.VectorId(id)] = m
	}
	return out, nil
}

// encodeSparseVecs writes count u32, dim u32 once (the shared
// vocabulary size), then per vector: nnz u32, nnz*u32 indices, nnz*f32
// values.
func encodeSparseVecs(s *sparse.Storage) []byte {
	all := s.AllRaw()
	var out bytes.Buffer
	writeU32(&out, uint32(len(all)))
	writeU32(&out, s.Dim())
	for _, v := range all {
		writeU32(&out, uint32(len(v.Indices)))
		for _, idx := range v.Indices {
			writeU32(&out, idx)
		}
		for _, val := range v.Values {
			writeF32(&out, val)
		}
	}
	return out.Bytes()
}

func decodeSparseVecs(data []byte) ([]sparse.Vector, uint32, error) {
	r := bytes.NewReader(data)
	count, err := readU32(r)
	if err != nil {
		return nil, 0, err
	}
	dim, err := readU32(r)
	if err != nil {
		return nil, 0, err
	}
	out := make([]sparse.Vector, 0, count)
	for i := uint32(0); i < count; i++ {
		nnz, err := readU32(r)
		if err != nil {
			return nil, 0, err
		}
		indices := make([]uint32, nnz)
		for j := range indices {
			indices[j], err = readU32(r)
			if err != nil {
				return nil, 0, err
			}
		}
		values := make([]float32, nnz)
		for j := range values {
			values[j], err = readF32(r)
			if err != nil {
				return nil, 0, err
			}
		}
		out = append(out, sparse.Vector{Indices: indices, Values: values, Dim: dim})
	}
	return out, dim, nil
}
