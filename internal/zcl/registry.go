package zcl

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"xbee-go-home/internal/syncutil"
)

// Registry holds the known ZCL cluster names.
type Registry struct {
	mu       syncutil.RWMutex
	clusters map[uint16]*ClusterDef
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		clusters: make(map[uint16]*ClusterDef),
		logger:   logger,
	}
}

// NewStandardRegistry creates a registry holding the built-in clusters.
func NewStandardRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	for _, c := range standardClusters {
		r.Register(c)
	}
	return r
}

// Register adds a cluster definition, merging into an existing one with the same ID.
func (r *Registry) Register(c ClusterDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clusters[c.ID]; ok {
		existing.Merge(&c)
		r.logger.Debug("cluster merged", "id", fmt.Sprintf("0x%04X", c.ID), "name", existing.Name)
	} else {
		r.clusters[c.ID] = c.DeepCopy()
		r.logger.Debug("cluster registered", "id", fmt.Sprintf("0x%04X", c.ID), "name", c.Name)
	}
}

// Get returns a cluster definition by ID, or nil if not found.
// The returned value is a deep copy; callers may modify it safely.
func (r *Registry) Get(id uint16) *ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.clusters[id]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// ClusterName returns the registered name, or the hex ID for unknown clusters.
func (r *Registry) ClusterName(id uint16) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.clusters[id]; c != nil && c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("0x%04X", id)
}

// CommandName names cmd: general commands by the foundation table,
// cluster commands by the cluster definition.
func (r *Registry) CommandName(cluster uint16, cmd *Command) string {
	if !cmd.IsClusterCommand() {
		return GeneralCommandName(cmd.Command)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.clusters[cluster]; c != nil {
		if d := c.FindCommand(cmd.Command, cmd.Direction()); d != nil {
			return d.Name
		}
	}
	return fmt.Sprintf("0x%02X", cmd.Command)
}

// All returns all registered cluster definitions ordered by ID.
// Each entry is a deep copy; callers may modify them safely.
func (r *Registry) All() []ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClusterDef, 0, len(r.clusters))
	for _, c := range r.clusters {
		result = append(result, *c.DeepCopy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
