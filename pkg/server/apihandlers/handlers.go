package apihandlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/rag"
	"github.com/chatrag/chatrag/pkg/server/handlertools"
)

var log = internal.GetLogger()

var validate = validator.New()

const (
	RootMessage   = "RAG Analysis API is running"
	UploadMessage = "Upload successful"
	uploadField   = "file"
)

// Pipeline is what the handlers need from the RAG pipeline.
type Pipeline interface {
	Index(ctx context.Context, collection, text string, meta models.PointMetadata) (*rag.IndexResult, error)
	Search(ctx context.Context, collection, text string, limit int) ([]models.ScoredHit, error)
	Ask(ctx context.Context, collection, question string, limit int) (*rag.Answer, error)
	ListCollections(ctx context.Context) ([]models.Collection, error)
	Ping(ctx context.Context) error
}

type SearchRequest struct {
	Text           string `json:"text"            validate:"required"`
	CollectionName string `json:"collection_name"`
	Limit          int    `json:"limit"           validate:"omitempty,min=1,max=20"`
}

type SearchResult struct {
	Content  string               `json:"text"`
	Score    float64              `json:"score"`
	Metadata models.PointMetadata `json:"metadata"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type RAGRequest struct {
	CollectionName string `json:"collection_name"`
	Limit          int    `json:"limit"           validate:"omitempty,min=1,max=10"`
	Question       string `json:"question,omitempty"`
}

type RAGResponse struct {
	Answer  string         `json:"answer"`
	Context string         `json:"context"`
	Sources []SearchResult `json:"sources"`
}

type CollectionStats struct {
	Name        string `json:"name"`
	VectorSize  int    `json:"vector_size"`
	PointsCount int64  `json:"vectors_count"`
}

type CollectionListResponse struct {
	Collections []CollectionStats `json:"collections"`
}

type UploadResponse struct {
	ChunksCount    int    `json:"chunks_count"`
	CollectionName string `json:"collection_name"`
	Message        string `json:"message"`
}

type StatusResponse struct {
	Status      string            `json:"status"`
	Message     string            `json:"message,omitempty"`
	Collections []CollectionStats `json:"collections,omitempty"`
}

// RootHandler reports that the API is up.
func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
	}
}

// StatusHandler pings the vector backend and lists its collections.
func StatusHandler(pipeline Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := pipeline.Ping(ctx); err != nil {
			log.Warnf("vector store ping failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "error", Message: err.Error()})
			return
		}

		collections, err := pipeline.ListCollections(ctx)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "error", Message: err.Error()})
			return
		}

		stats, err := toCollectionStats(collections)
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Collections: stats})
	}
}

// CollectionsHandler lists collections with their point counts.
func CollectionsHandler(pipeline Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collections, err := pipeline.ListCollections(r.Context())
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}

		stats, err := toCollectionStats(collections)
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}
		if stats == nil {
			stats = []CollectionStats{}
		}
		writeJSON(w, http.StatusOK, CollectionListResponse{Collections: stats})
	}
}

// UploadHandler indexes a transcript sent as the multipart "file" field into the
// collection named in the path. Optional form fields document_id and chat_id are
// stored with every chunk.
func UploadHandler(pipeline Pipeline, cfg *config.Config) http.HandlerFunc {
	maxBytes := int64(cfg.Server.MaxUploadMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		collection := strings.TrimSpace(chi.URLParam(r, "collectionName"))
		if collection == "" {
			handlertools.RenderError(w, fmt.Errorf("%w: collectionName is required", models.ErrBadRequest))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				handlertools.RenderError(w, err)
				return
			}
			handlertools.RenderError(w, fmt.Errorf("%w: invalid multipart form: %v", models.ErrBadRequest, err))
			return
		}

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			handlertools.RenderError(w, fmt.Errorf("%w: missing %q file: %v", models.ErrBadRequest, uploadField, err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			handlertools.RenderError(w, fmt.Errorf("failed to read upload: %w", err))
			return
		}

		meta := models.PointMetadata{
			Filename:   header.Filename,
			DocumentID: r.FormValue("document_id"),
			ChatID:     r.FormValue("chat_id"),
		}
		result, err := pipeline.Index(r.Context(), collection, string(data), meta)
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, UploadResponse{
			ChunksCount:    result.ChunksCount,
			CollectionName: result.Collection,
			Message:        UploadMessage,
		})
	}
}

// SearchHandler runs a single vector search.
func SearchHandler(pipeline Pipeline, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := decodeAndValidate(r, &req, &req.Limit); err != nil {
			handlertools.RenderError(w, err)
			return
		}
		if req.CollectionName == "" {
			req.CollectionName = cfg.Retrieval.DefaultCollection
		}
		if req.Limit == 0 {
			req.Limit = cfg.Retrieval.SearchLimit
		}

		hits, err := pipeline.Search(r.Context(), req.CollectionName, req.Text, req.Limit)
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}

		results, err := toSearchResults(hits)
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SearchResponse{Results: results})
	}
}

// RAGHandler answers a question, or the default analysis query, over a collection.
func RAGHandler(pipeline Pipeline, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RAGRequest
		if err := decodeAndValidate(r, &req, &req.Limit); err != nil {
			handlertools.RenderError(w, err)
			return
		}
		if req.CollectionName == "" {
			req.CollectionName = cfg.Retrieval.DefaultCollection
		}
		if req.Limit == 0 {
			req.Limit = cfg.Retrieval.RAGLimit
		}

		answer, err := pipeline.Ask(r.Context(), req.CollectionName, req.Question, req.Limit)
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}

		sources, err := toSearchResults(answer.Sources)
		if err != nil {
			handlertools.RenderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RAGResponse{
			Answer:  answer.Text,
			Context: answer.Context,
			Sources: sources,
		})
	}
}

// decodeAndValidate decodes an optional JSON body into v. When the body leaves
// the limit unset, the limit query parameter is used instead.
func decodeAndValidate(r *http.Request, v any, limit *int) error {
	if r.Body != nil && r.ContentLength != 0 {
		if err := handlertools.DecodeJSON(r, v); err != nil {
			return err
		}
	}
	if *limit == 0 {
		l, err := handlertools.IntFromQuery(r, "limit")
		if err != nil {
			return err
		}
		*limit = l
	}
	return validateRequest(v)
}

func validateRequest(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}
	return nil
}

func toSearchResults(hits []models.ScoredHit) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(hits))
	if err := copier.Copy(&results, &hits); err != nil {
		return nil, fmt.Errorf("failed to map search results: %w", err)
	}
	return results, nil
}

func toCollectionStats(collections []models.Collection) ([]CollectionStats, error) {
	var stats []CollectionStats
	if err := copier.Copy(&stats, &collections); err != nil {
		return nil, fmt.Errorf("failed to map collections: %w", err)
	}
	return stats, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if err := handlertools.EncodeJSON(w, status, v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}
