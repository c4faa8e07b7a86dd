package store

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
)

// HNSW parameters for the graph.
const (
	graphM        = 16
	graphEfSearch = 64
	graphMl       = 0.25
)

// vectorGraph maps chunk ids onto a coder/hnsw graph. It is not safe for
// concurrent use; SQLiteCollection serialises access.
//
// Deletion is lazy: removed ids lose their key mapping but the node stays in
// the graph, since coder/hnsw misbehaves when the last node is deleted.
type vectorGraph struct {
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// graphMetadata is persisted next to the exported graph.
type graphMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Dims    int
}

type graphHit struct {
	ID       string
	Distance float32
}

func newVectorGraph() *vectorGraph {
	g := hnsw.NewGraph[uint64]()
	// Export only accepts registered distance functions.
	g.Distance = hnsw.CosineDistance
	g.M = graphM
	g.EfSearch = graphEfSearch
	g.Ml = graphMl

	return &vectorGraph{
		graph:  g,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// add inserts vectors, which must already be unit length. An existing id is
// orphaned and re-added under a new key.
func (v *vectorGraph) add(ids []string, vectors [][]float32) {
	for i, id := range ids {
		if old, ok := v.idMap[id]; ok {
			delete(v.keyMap, old)
			delete(v.idMap, id)
		}

		key := v.nextKey
		v.nextKey++
		v.graph.Add(hnsw.MakeNode(key, vectors[i]))
		v.idMap[id] = key
		v.keyMap[key] = id
	}
	if v.dims == 0 && len(vectors) > 0 {
		v.dims = len(vectors[0])
	}
}

// search returns up to k live ids nearest to query.
func (v *vectorGraph) search(query []float32, k int) []graphHit {
	if len(v.idMap) == 0 || k <= 0 {
		return nil
	}

	// Orphans can take result slots, so ask for enough to cover them.
	want := min(k+v.orphans(), v.graph.Len())
	nodes := v.graph.Search(query, want)

	hits := make([]graphHit, 0, k)
	for _, node := range nodes {
		id, ok := v.keyMap[node.Key]
		if !ok {
			continue
		}
		hits = append(hits, graphHit{ID: id, Distance: cosineDistance(query, node.Value)})
		if len(hits) == k {
			break
		}
	}
	return hits
}

func (v *vectorGraph) remove(ids []string) {
	for _, id := range ids {
		if key, ok := v.idMap[id]; ok {
			delete(v.keyMap, key)
			delete(v.idMap, id)
		}
	}
}

func (v *vectorGraph) len() int {
	return len(v.idMap)
}

func (v *vectorGraph) orphans() int {
	return v.graph.Len() - len(v.idMap)
}

// save writes the graph and its id mapping under dir, each through a temp
// file and rename.
func (v *vectorGraph) save(dir string) error {
	path := filepath.Join(dir, graphFileName)

	if err := writeAtomic(path, func(f *os.File) error {
		return v.graph.Export(f)
	}); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	meta := graphMetadata{IDMap: v.idMap, NextKey: v.nextKey, Dims: v.dims}
	if err := writeAtomic(path+".meta", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(meta)
	}); err != nil {
		return fmt.Errorf("save graph metadata: %w", err)
	}
	return nil
}

// loadVectorGraph reads a graph saved by save. A missing file is reported
// with os.ErrNotExist.
func loadVectorGraph(dir string) (*vectorGraph, error) {
	path := filepath.Join(dir, graphFileName)

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := metaFile.Close(); err != nil {
			slog.Warn("failed to close graph metadata", slog.String("error", err.Error()))
		}
	}()

	var meta graphMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode graph metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	v := newVectorGraph()
	// Import needs an io.ByteReader.
	if err := v.graph.Import(bufio.NewReader(file)); err != nil {
		return nil, fmt.Errorf("import graph: %w", err)
	}

	v.dims = meta.Dims
	v.nextKey = meta.NextKey
	if meta.IDMap != nil {
		v.idMap = meta.IDMap
	}
	for id, key := range v.idMap {
		v.keyMap[key] = id
	}
	return v, nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// cosineDistance is 1 - cosine similarity. A zero vector is at distance 1
// from everything.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// normalize returns a unit-length copy of v.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}
