// Package ranking holds the ordered score mappings the aggregator produces.
//
// A Board behaves like an insertion-ordered map from text key to integer
// score. It marshals to a plain JSON object whose key order is the board
// order, so the descending sort produced by the aggregator survives the
// round trip through Redis.
package ranking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one row of a leaderboard.
type Entry struct {
	Key   string
	Score int64
}

// Board is an ordered key→score mapping.
// Put on an existing key keeps its position and overwrites the score,
// the same way a dict insert would.
type Board struct {
	entries []Entry
	index   map[string]int
}

func New() *Board {
	return &Board{index: make(map[string]int)}
}

// Put inserts a key or overwrites the score of an existing one.
func (b *Board) Put(key string, score int64) {
	if i, ok := b.index[key]; ok {
		b.entries[i].Score = score
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, Entry{Key: key, Score: score})
}

// Get returns the score for a key.
func (b *Board) Get(key string) (int64, bool) {
	i, ok := b.index[key]
	if !ok {
		return 0, false
	}
	return b.entries[i].Score, true
}

func (b *Board) Len() int { return len(b.entries) }

// Entries returns the rows in board order. The slice is a copy.
func (b *Board) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// SortDesc orders the board by score descending. Ties break by key
// ascending so the output is deterministic across runs.
func (b *Board) SortDesc() {
	sort.SliceStable(b.entries, func(i, j int) bool {
		if b.entries[i].Score != b.entries[j].Score {
			return b.entries[i].Score > b.entries[j].Score
		}
		return b.entries[i].Key < b.entries[j].Key
	})
	for i, e := range b.entries {
		b.index[e.Key] = i
	}
}

// MarshalJSON encodes the board as a JSON object in board order.
func (b *Board) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range b.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", e.Score)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving its key order, which
// encoding/json's map type would lose.
func (b *Board) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ranking: expected object, got %v", tok)
	}

	b.entries = b.entries[:0]
	b.index = make(map[string]int)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ranking: expected string key, got %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("ranking: expected numeric score for %q, got %v", key, valTok)
		}
		score, err := num.Int64()
		if err != nil {
			return fmt.Errorf("ranking: score for %q: %w", key, err)
		}
		b.Put(key, score)
	}

	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
