// Product catalog with embedding retrieval.
//
// Information Hiding:
// - Vector encoding (little-endian float32 BLOB) hidden
// - Similarity ranking hidden behind Search
// - Connection leasing hidden behind Connect/Close

package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// ErrNotConnected is returned by ProductStore reads outside a Connect/Close lease.
var ErrNotConnected = errors.New("product store not connected")

// Document is one catalog entry. Content is the product's identifying text;
// Metadata holds every other field of the source record.
type Document struct {
	Content  string
	Metadata map[string]any
	Vector   []float32
}

// ScoredDocument is a search hit.
type ScoredDocument struct {
	Document
	Score float64
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProductStore is the catalog table of a DB. It is used as a scoped
// resource: callers Connect before a turn and Close after it, and reads are
// refused outside that window.
type ProductStore struct {
	db *DB

	mu     sync.Mutex
	leases int
}

// NewProductStore returns the product catalog backed by db.
func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

// Connect checks the database is reachable and opens a lease.
func (p *ProductStore) Connect(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("connect product store: %w", err)
	}
	p.mu.Lock()
	p.leases++
	p.mu.Unlock()
	return nil
}

// Close releases a lease. The underlying DB stays open.
func (p *ProductStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.leases == 0 {
		return ErrNotConnected
	}
	p.leases--
	return nil
}

func (p *ProductStore) connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leases > 0
}

// Upsert stores documents, replacing entries with the same content.
func (p *ProductStore) Upsert(ctx context.Context, docs []Document) error {
	tx, err := p.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, content, metadata, embedding, dims, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dims = excluded.dims,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, doc := range docs {
		if doc.Content == "" {
			return fmt.Errorf("product without content")
		}
		meta := doc.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %q: %w", doc.Content, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.Content, doc.Content, string(metaJSON),
			encodeVector(doc.Vector), len(doc.Vector), now); err != nil {
			return fmt.Errorf("failed to store product %q: %w", doc.Content, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of products.
func (p *ProductStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// Search returns the k products most similar to vector by cosine similarity,
// best first. Products without an embedding of the same dimension are skipped.
func (p *ProductStore) Search(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error) {
	if !p.connected() {
		return nil, ErrNotConnected
	}
	if k <= 0 {
		k = 4
	}

	rows, err := p.db.db.QueryContext(ctx,
		"SELECT content, metadata, embedding FROM products WHERE dims = ?", len(vector))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var hits []ScoredDocument
	for rows.Next() {
		var content, metaJSON string
		var blob []byte
		if err := rows.Scan(&content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		vec := decodeVector(blob)
		doc := Document{Content: content, Vector: vec}
		if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %q: %w", content, err)
		}
		hits = append(hits, ScoredDocument{Document: doc, Score: cosine(vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Import reads a JSON array of product records and stores them.
// The "_id" field becomes the document content, "contentVector" the
// embedding; all other fields are kept as metadata. Records without a
// vector are embedded with embedder when it is non-nil.
func (p *ProductStore) Import(ctx context.Context, r io.Reader, embedder Embedder) (int, error) {
	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("failed to decode products: %w", err)
	}

	docs := make([]Document, 0, len(records))
	for i, rec := range records {
		doc, err := documentFromRecord(rec)
		if err != nil {
			return 0, fmt.Errorf("product %d: %w", i, err)
		}
		if len(doc.Vector) == 0 && embedder != nil {
			vec, err := embedder.Embed(ctx, EmbeddingText(doc))
			if err != nil {
				return 0, fmt.Errorf("product %q: %w", doc.Content, err)
			}
			doc.Vector = vec
		}
		docs = append(docs, doc)
	}
	if err := p.Upsert(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func documentFromRecord(rec map[string]any) (Document, error) {
	doc := Document{Metadata: make(map[string]any, len(rec))}
	for key, value := range rec {
		switch key {
		case "_id":
			doc.Content = fmt.Sprint(value)
		case "contentVector":
			raw, ok := value.([]any)
			if !ok {
				return Document{}, fmt.Errorf("contentVector must be an array")
			}
			doc.Vector = make([]float32, len(raw))
			for i, v := range raw {
				f, ok := v.(float64)
				if !ok {
					return Document{}, fmt.Errorf("contentVector[%d] is not a number", i)
				}
				doc.Vector[i] = float32(f)
			}
		default:
			doc.Metadata[key] = value
		}
	}
	if doc.Content == "" {
		name, _ := rec["name"].(string)
		if name == "" {
			return Document{}, fmt.Errorf("missing _id and name")
		}
		doc.Content = name
	}
	return doc, nil
}

// EmbeddingText is the text embedded for a product: its formatted record.
func EmbeddingText(doc Document) string {
	return formatDocument(Document{Content: doc.Content, Metadata: doc.Metadata})
}

func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
