package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"productapi/internal/models"
)

// BM25 parameters, same defaults as Lucene.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type indexedField struct {
	terms  map[string]int
	length int
}

type document struct {
	product *models.Product
	fields  map[string]indexedField
}

// MemoryIndex is an in-process ProductIndex. It tokenizes name and
// description like a standard analyzer (lowercased letter/digit runs) and
// scores with BM25, taking the best field score per document the way an
// Elasticsearch best_fields multi_match does.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]*document
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]*document)}
}

// Tokenize splits text into lowercased letter and digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func analyze(text string) indexedField {
	tokens := Tokenize(text)
	f := indexedField{terms: make(map[string]int, len(tokens)), length: len(tokens)}
	for _, t := range tokens {
		f.terms[t]++
	}
	return f
}

// Index adds or replaces a product document.
func (m *MemoryIndex) Index(_ context.Context, product *models.Product) error {
	doc := &document{
		product: product.Clone(),
		fields: map[string]indexedField{
			FieldName:        analyze(product.Name),
			FieldDescription: analyze(product.Description),
		},
	}
	m.mu.Lock()
	m.docs[product.ID] = doc
	m.mu.Unlock()
	return nil
}

// Delete removes a product document.
func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
	return nil
}

// Len reports how many documents are indexed.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

type scoredDoc struct {
	doc   *document
	score float64
}

// MultiMatch scores every document against text over fields.
func (m *MemoryIndex) MultiMatch(_ context.Context, text string, fields []string, size int) (*Result, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	terms := Tokenize(text)

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.fieldStats(fields, terms)
	hits := make([]scoredDoc, 0)
	for _, doc := range m.docs {
		best := 0.0
		for _, field := range fields {
			if s := stats[field].score(doc.fields[field], terms); s > best {
				best = s
			}
		}
		if best > 0 {
			hits = append(hits, scoredDoc{doc: doc, score: best})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.product.ID < hits[j].doc.product.ID
	})

	res := &Result{Total: int64(len(hits))}
	if len(hits) > size {
		hits = hits[:size]
	}
	res.Products = make([]*models.Product, len(hits))
	for i, h := range hits {
		res.Products[i] = h.doc.product.Clone()
	}
	return res, nil
}

type fieldStat struct {
	docCount  int
	avgLength float64
	docFreq   map[string]int
}

// fieldStats must be called with m.mu held.
func (m *MemoryIndex) fieldStats(fields, terms []string) map[string]fieldStat {
	stats := make(map[string]fieldStat, len(fields))
	for _, field := range fields {
		st := fieldStat{docFreq: make(map[string]int, len(terms))}
		total := 0
		for _, doc := range m.docs {
			f, ok := doc.fields[field]
			if !ok {
				continue
			}
			st.docCount++
			total += f.length
			for _, t := range terms {
				if f.terms[t] > 0 {
					st.docFreq[t]++
				}
			}
		}
		if st.docCount > 0 {
			st.avgLength = float64(total) / float64(st.docCount)
		}
		stats[field] = st
	}
	return stats
}

func (st fieldStat) score(f indexedField, terms []string) float64 {
	if f.length == 0 || st.avgLength == 0 {
		return 0
	}
	score := 0.0
	for _, t := range terms {
		tf := float64(f.terms[t])
		if tf == 0 {
			continue
		}
		df := float64(st.docFreq[t])
		idf := math.Log(1 + (float64(st.docCount)-df+0.5)/(df+0.5))
		norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(f.length)/st.avgLength))
		score += idf * norm
	}
	return score
}
