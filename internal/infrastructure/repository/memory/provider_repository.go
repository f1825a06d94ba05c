package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/riskibarqy/odds-sync/internal/domain/provider"
)

type ProviderRepository struct {
	mu     sync.RWMutex
	byCode map[string]provider.Provider
}

func NewProviderRepository(items []provider.Provider) *ProviderRepository {
	byCode := make(map[string]provider.Provider, len(items))
	for _, item := range items {
		byCode[strings.TrimSpace(item.Code)] = item
	}
	return &ProviderRepository{byCode: byCode}
}

func (r *ProviderRepository) GetByCode(_ context.Context, code string) (provider.Provider, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byCode[strings.TrimSpace(code)]
	return item, ok, nil
}
