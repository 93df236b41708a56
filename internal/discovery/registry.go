package discovery

import (
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDown      Status = "down"
)

// ServiceInfo describes one registered backend service and its last
// observed health.
type ServiceInfo struct {
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	Replicas        int       `json:"replicas"`
	Description     string    `json:"description"`
	Status          Status    `json:"status"`
	LastHealthCheck time.Time `json:"last_health_check"`
}

// Registry tracks the set of known services and their health status. It is
// populated once from configuration at startup and updated by the health
// monitor.
type Registry struct {
	mutex    sync.RWMutex
	services map[string]ServiceInfo
}

func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]ServiceInfo),
	}
}

// Register adds a service. New services start healthy until a check says
// otherwise.
func (r *Registry) Register(info ServiceInfo) {
	if info.Status == "" {
		info.Status = StatusHealthy
	}

	r.mutex.Lock()
	r.services[info.Name] = info
	r.mutex.Unlock()
}

// SetStatus records a health observation for a known service. It returns
// whether the status changed; unknown services are ignored.
func (r *Registry) SetStatus(name string, status Status) (changed bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	info, ok := r.services[name]
	if !ok {
		return false
	}

	changed = info.Status != status
	info.Status = status
	info.LastHealthCheck = time.Now()
	r.services[name] = info

	return changed
}

// Snapshot returns all registered services sorted by name.
func (r *Registry) Snapshot() []ServiceInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	services := make([]ServiceInfo, 0, len(r.services))
	for _, info := range r.services {
		services = append(services, info)
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	return services
}

// Endpoints returns the route paths of currently healthy services.
func (r *Registry) Endpoints() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	paths := make([]string, 0, len(r.services))
	for _, info := range r.services {
		if info.Status == StatusHealthy {
			paths = append(paths, info.Path)
		}
	}
	sort.Strings(paths)

	return paths
}
