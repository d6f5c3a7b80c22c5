// Package hashing implements an offline ai.Embedder based on signed feature
// hashing of a bag of words.
//
// Each lowercase word and the four-rune prefix of longer words are hashed into
// one of D buckets with a hash-derived sign, and the result is scaled to unit
// length. Texts sharing vocabulary ("pump", "pumps", "pumping") land near each
// other; texts with no words in common score close to zero. The embedder needs
// no credentials or network access, which makes it the default local provider.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

const prefixRunes = 4

// Embedder is a deterministic feature-hashing embedder.
type Embedder struct {
	dims int
}

// NewEmbedder creates an embedder producing vectors of length dims.
func NewEmbedder(dims int) (*Embedder, error) {
	if dims <= 0 {
		return nil, ai.ErrInvalidConfig
	}
	return &Embedder{dims: dims}, nil
}

// EmbedText hashes text into a unit vector. Text without any words yields the
// zero vector.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc := make([]float64, e.dims)
	for _, word := range Tokenize(text) {
		e.add(acc, "w:"+word)
		if r := []rune(word); len(r) > prefixRunes {
			e.add(acc, "p:"+string(r[:prefixRunes]))
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	out := make([]float32, e.dims)
	if sum == 0 {
		return out, nil
	}
	norm := math.Sqrt(sum)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedTexts embeds each text in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) add(acc []float64, feature string) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := sum % uint64(len(acc))
	if sum>>63 == 1 {
		acc[idx]--
	} else {
		acc[idx]++
	}
}

// Tokenize lowercases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
