package service

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// VertexConfig points the embedder at a Vertex AI publisher model.
type VertexConfig struct {
	ProjectID       string
	Location        string
	Model           string // e.g. "text-embedding-005"
	CredentialsFile string // empty uses application default credentials
	Dimensions      int    // 0 keeps the model default
	TaskType        string // defaults to SEMANTIC_SIMILARITY
}

// VertexEmbedder calls a Vertex AI text embedding model.
type VertexEmbedder struct {
	client    *aiplatform.PredictionClient
	endpoint  string
	model     string
	taskType  string
	dimension int
}

// NewVertexEmbedder creates a prediction client for cfg.
func NewVertexEmbedder(ctx context.Context, cfg VertexConfig) (*VertexEmbedder, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("vertex embedder: project id is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-005"
	}
	if cfg.TaskType == "" {
		// Duplicate detection compares documents with documents.
		cfg.TaskType = "SEMANTIC_SIMILARITY"
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.Location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := aiplatform.NewPredictionClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	return &VertexEmbedder{
		client:    client,
		endpoint:  fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.ProjectID, cfg.Location, cfg.Model),
		model:     cfg.Model,
		taskType:  cfg.TaskType,
		dimension: cfg.Dimensions,
	}, nil
}

// Embed returns the embedding of text.
func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	instance, err := structpb.NewStruct(map[string]interface{}{
		"content":   text,
		"task_type": v.taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	req := &aiplatformpb.PredictRequest{
		Endpoint:  v.endpoint,
		Instances: []*structpb.Value{structpb.NewStructValue(instance)},
	}
	if v.dimension > 0 {
		params, err := structpb.NewValue(map[string]interface{}{
			"outputDimensionality": v.dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create parameters: %w", err)
		}
		req.Parameters = params
	}

	resp, err := v.client.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions returned")
	}

	return vectorFromPrediction(resp.Predictions[0])
}

// vectorFromPrediction digs embeddings.values out of one prediction.
func vectorFromPrediction(p *structpb.Value) ([]float64, error) {
	embeddings := p.GetStructValue().GetFields()["embeddings"].GetStructValue()
	values := embeddings.GetFields()["values"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, ErrEmptyEmbedding
	}

	out := make([]float64, len(values))
	for i, val := range values {
		out[i] = val.GetNumberValue()
	}
	return out, nil
}

// Model returns the publisher model name.
func (v *VertexEmbedder) Model() string { return v.model }

// Close releases the Vertex AI client resources.
func (v *VertexEmbedder) Close() error {
	return v.client.Close()
}
