package mlops

import (
	"os"
	"path/filepath"
	"sort"
)

// Ports is the budget-to-port assignment the webhook gateway uses to route
// predictions to the right model server. It is persisted as a JSON file so
// gateway and servers agree across restarts.
type Ports struct {
	path string
}

// NewPorts creates the port map store under dir.
func NewPorts(dir string) *Ports {
	return &Ports{path: filepath.Join(dir, "ports.json")}
}

// Assign gives every budget a stable port starting at basePort, ordered by
// budget id, and persists the map.
func (p *Ports) Assign(budgetIDs []string, basePort int) (map[string]int, error) {
	sorted := append([]string(nil), budgetIDs...)
	sort.Strings(sorted)

	assigned := make(map[string]int, len(sorted))
	for i, id := range sorted {
		assigned[id] = basePort + i
	}
	if err := writeJSON(p.path, assigned); err != nil {
		return nil, err
	}
	return assigned, nil
}

// Load reads the persisted port map. A missing file yields an empty map.
func (p *Ports) Load() (map[string]int, error) {
	if _, err := os.Stat(p.path); os.IsNotExist(err) {
		return map[string]int{}, nil
	}
	var assigned map[string]int
	if err := readJSON(p.path, &assigned); err != nil {
		return nil, err
	}
	return assigned, nil
}

// Lookup returns the port assigned to a budget.
func (p *Ports) Lookup(budgetID string) (int, bool, error) {
	assigned, err := p.Load()
	if err != nil {
		return 0, false, err
	}
	port, ok := assigned[budgetID]
	return port, ok, nil
}
