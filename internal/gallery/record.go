package gallery

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Record is one successfully generated image plus its provenance. Records
// are immutable once created; they leave a session only through Clear or
// the retention cap.
type Record struct {
	ID        string
	PNG       []byte
	Prompt    string
	Food      string
	StyleKey  string
	Seed      int64
	CreatedAt time.Time
	Elapsed   time.Duration
}

// NewRecord encodes the decoded bitmap as PNG and derives a stable ID from
// the encoded bytes and the seed.
func NewRecord(img image.Image, prompt, food, styleKey string, seed int64, elapsed time.Duration) (*Record, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode record as PNG: %w", err)
	}
	id, err := recordID(buf.Bytes(), seed)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:        id,
		PNG:       buf.Bytes(),
		Prompt:    prompt,
		Food:      food,
		StyleKey:  styleKey,
		Seed:      seed,
		CreatedAt: time.Now(),
		Elapsed:   elapsed,
	}, nil
}

// FileName is the deterministic download name for the record.
func (r *Record) FileName() string {
	return fmt.Sprintf("meal_%d.png", r.Seed)
}

// recordID hashes the PNG bytes and the seed with BLAKE2b-128, giving a
// 32-char hex ID that is stable for identical content.
func recordID(pngBytes []byte, seed int64) (string, error) {
	h, err := blake2b.New(16, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create blake2b hasher: %w", err)
	}
	if _, err := h.Write(pngBytes); err != nil {
		return "", fmt.Errorf("failed to hash image bytes: %w", err)
	}
	var seedBuf [8]byte
	binary.BigEndian.PutUint64(seedBuf[:], uint64(seed))
	if _, err := h.Write(seedBuf[:]); err != nil {
		return "", fmt.Errorf("failed to hash seed: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
