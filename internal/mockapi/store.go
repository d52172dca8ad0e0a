package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jogardn/orders-client/pkg/models"
)

var ErrOrderNotFound = errors.New("order not found")

// Store persists orders. Returns are kept inside their order.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	// ListOrders returns every order, newest first.
	ListOrders(ctx context.Context) ([]*models.Order, error)
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore keeps orders in memory. Stored orders are copies so callers
// cannot change them behind the store's back.
type MemoryStore struct {
	orders map[string][]byte
	mutex  sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string][]byte)}
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := order.GetID()
	if _, exists := s.orders[id]; exists {
		return fmt.Errorf("order %s already exists", id)
	}
	s.orders[id] = data
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mutex.RLock()
	data, exists := s.orders[id]
	s.mutex.RUnlock()

	if !exists {
		return nil, ErrOrderNotFound
	}
	return decodeOrder(data)
}

func (s *MemoryStore) UpdateOrder(_ context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := order.GetID()
	if _, exists := s.orders[id]; !exists {
		return ErrOrderNotFound
	}
	s.orders[id] = data
	return nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]*models.Order, error) {
	s.mutex.RLock()
	orders := make([]*models.Order, 0, len(s.orders))
	for _, data := range s.orders {
		order, err := decodeOrder(data)
		if err != nil {
			s.mutex.RUnlock()
			return nil, err
		}
		orders = append(orders, order)
	}
	s.mutex.RUnlock()

	sortNewestFirst(orders)
	return orders, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func decodeOrder(data []byte) (*models.Order, error) {
	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to decode stored order: %w", err)
	}
	return &order, nil
}

// sortNewestFirst orders by creation time, then by id, both descending.
func sortNewestFirst(orders []*models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		ci, cj := models.Int64Value(orders[i].Created), models.Int64Value(orders[j].Created)
		if ci != cj {
			return ci > cj
		}
		return orders[i].GetID() > orders[j].GetID()
	})
}
