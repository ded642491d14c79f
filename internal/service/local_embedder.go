package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
)

// DefaultLocalModel is the sentence-transformers model used by LocalEmbedder.
const DefaultLocalModel = "sentence-transformers/all-MiniLM-L6-v2"

// localScript reads the text from stdin so no quoting is needed, and prints
// the normalised vector as a JSON array.
const localScript = `
import json, sys
from sentence_transformers import SentenceTransformer
model = SentenceTransformer(sys.argv[1])
text = sys.stdin.read()
print(json.dumps(model.encode(text, normalize_embeddings=True).tolist()))
`

// LocalEmbedder runs a sentence-transformers model through python3.
type LocalEmbedder struct {
	model  string
	python string
	log    *slog.Logger
}

// NewLocalEmbedder checks that python3 is available and returns an embedder
// for model (DefaultLocalModel when empty).
func NewLocalEmbedder(model string) (*LocalEmbedder, error) {
	if model == "" {
		model = DefaultLocalModel
	}
	python, err := exec.LookPath("python3")
	if err != nil {
		return nil, fmt.Errorf("local embedder: python3 not found: %w", err)
	}
	return &LocalEmbedder{
		model:  model,
		python: python,
		log:    slog.Default().With("component", "local_embedder"),
	}, nil
}

// Embed generates an embedding for text.
func (l *LocalEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	cmd := exec.CommandContext(ctx, l.python, "-c", localScript, l.model)
	cmd.Stdin = bytes.NewBufferString(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		l.log.Error("python embedding failed", "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	var vec []float64
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &vec); err != nil {
		return nil, fmt.Errorf("failed to parse embedding output: %w", err)
	}
	if len(vec) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return vec, nil
}

// Model returns the sentence-transformers model name.
func (l *LocalEmbedder) Model() string { return l.model }
