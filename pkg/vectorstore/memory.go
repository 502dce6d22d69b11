package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/chatrag/chatrag/pkg/models"
)

var _ models.VectorService = &MemoryService{}

type memoryCollection struct {
	info   models.Collection
	order  []string
	points map[string]models.IndexedPoint
}

// MemoryService keeps collections in process. Upserting an existing ID replaces
// the point in place.
type MemoryService struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryService() *MemoryService {
	return &MemoryService{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryService) ListCollections(_ context.Context) ([]models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Collection, 0, len(m.collections))
	for _, c := range m.collections {
		info := c.info
		info.PointsCount = int64(len(c.points))
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryService) GetCollection(_ context.Context, name string) (*models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[name]
	if !ok {
		return nil, models.NewNotFoundError("collection " + name)
	}
	info := c.info
	info.PointsCount = int64(len(c.points))
	return &info, nil
}

func (m *MemoryService) CreateCollection(_ context.Context, name string, vectorSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[name]; ok {
		return nil
	}
	m.collections[name] = &memoryCollection{
		info:   models.Collection{Name: name, VectorSize: vectorSize, Distance: models.DistanceCosine},
		points: make(map[string]models.IndexedPoint),
	}
	return nil
}

func (m *MemoryService) Upsert(_ context.Context, collection string, points []models.IndexedPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return models.NewNotFoundError("collection " + collection)
	}
	for _, p := range points {
		if len(p.Vector) != c.info.VectorSize {
			return models.NewDimensionMismatchError(collection, c.info.VectorSize, len(p.Vector))
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = p
	}
	return nil
}

func (m *MemoryService) Search(
	_ context.Context,
	collection string,
	vector models.Embedding,
	limit int,
) ([]models.ScoredHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, models.NewNotFoundError("collection " + collection)
	}

	points := make([]models.IndexedPoint, 0, len(c.order))
	for _, id := range c.order {
		points = append(points, c.points[id])
	}
	return RankByCosine(points, vector, limit), nil
}

func (m *MemoryService) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryService) Close() error {
	return nil
}
