package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/internal/httputil"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

const apiKeyHeader = "api-key"

var _ models.VectorService = &Client{}

// Client speaks the Qdrant REST API. Collections are always created with cosine
// distance.
type Client struct {
	http *httputil.JSONClient
}

func NewClient(cfg config.QdrantConfig) *Client {
	c := httputil.NewJSONClient(
		cfg.URL,
		cfg.APIKey,
		0,
		time.Duration(cfg.RequestTimeoutS)*time.Second,
	)
	c.APIKeyHeader = apiKeyHeader
	return &Client{http: c}
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type listCollectionsResponse struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}

type collectionInfoResponse struct {
	Result struct {
		Status       string `json:"status"`
		PointsCount  *int64 `json:"points_count"`
		VectorsCount *int64 `json:"vectors_count"`
		Config       struct {
			Params struct {
				Vectors vectorParams `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload models.Payload `json:"payload"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload models.Payload `json:"payload"`
	} `json:"result"`
}

func (c *Client) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var resp listCollectionsResponse
	if err := c.http.Do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Collection, 0, len(resp.Result.Collections))
	for _, rc := range resp.Result.Collections {
		info, err := c.GetCollection(ctx, rc.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

func (c *Client) GetCollection(ctx context.Context, name string) (*models.Collection, error) {
	var resp collectionInfoResponse
	err := c.http.Do(ctx, http.MethodGet, collectionPath(name), nil, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("collection " + name)
		}
		return nil, err
	}

	count := int64(-1)
	switch {
	case resp.Result.PointsCount != nil:
		count = *resp.Result.PointsCount
	case resp.Result.VectorsCount != nil:
		count = *resp.Result.VectorsCount
	}

	return &models.Collection{
		Name:        name,
		VectorSize:  resp.Result.Config.Params.Vectors.Size,
		Distance:    resp.Result.Config.Params.Vectors.Distance,
		PointsCount: count,
	}, nil
}

func (c *Client) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	body := map[string]any{
		"vectors": vectorParams{Size: vectorSize, Distance: models.DistanceCosine},
	}
	return c.http.Do(ctx, http.MethodPut, collectionPath(name), body, nil)
}

func (c *Client) Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error {
	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}
	for i, p := range points {
		body.Points[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	err := c.http.Do(ctx, http.MethodPut, collectionPath(collection)+"/points?wait=true", body, nil)
	if isNotFound(err) {
		return models.NewNotFoundError("collection " + collection)
	}
	return err
}

func (c *Client) Search(
	ctx context.Context,
	collection string,
	vector models.Embedding,
	limit int,
) ([]models.ScoredHit, error) {
	req := searchRequest{Vector: vector, Limit: limit, WithPayload: true}
	var resp searchResponse
	err := c.http.Do(ctx, http.MethodPost, collectionPath(collection)+"/points/search", req, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("collection " + collection)
		}
		return nil, err
	}

	hits := make([]models.ScoredHit, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = models.ScoredHit{
			ID:       fmt.Sprint(r.ID),
			Content:  r.Payload.Content,
			Score:    r.Score,
			Metadata: r.Payload.Metadata,
		}
	}
	log.Debugf("qdrant search in %s returned %d hits", collection, len(hits))
	return hits, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.http.Do(ctx, http.MethodGet, "/collections", nil, nil)
}

func (c *Client) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func isNotFound(err error) bool {
	var statusErr *httputil.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
