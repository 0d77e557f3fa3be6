package ingest

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/svanherk/bunqynab/internal/mlops"
	"github.com/svanherk/bunqynab/internal/serving"
)

// PortResolver resolves budgets to the model servers registered in the port
// map, caching one client per budget.
type PortResolver struct {
	ports *mlops.Ports

	mu      sync.Mutex
	clients map[string]*serving.Client
}

// NewPortResolver creates a resolver over the persisted port map.
func NewPortResolver(ports *mlops.Ports) *PortResolver {
	return &PortResolver{ports: ports, clients: make(map[string]*serving.Client)}
}

// Resolve returns the prediction client for the budget's model server.
func (r *PortResolver) Resolve(budgetID string) (Predictor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[budgetID]; ok {
		return client, nil
	}

	port, ok, err := r.ports.Lookup(budgetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("ingest: no model server registered for budget %s", budgetID)
	}

	client := serving.NewClientForPort(port)
	r.clients[budgetID] = client
	return client, nil
}
