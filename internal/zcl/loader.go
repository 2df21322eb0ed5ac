package zcl

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// clusterFile is the layout of a cluster definition file.
type clusterFile struct {
	Clusters []ClusterDef `json:"clusters" yaml:"clusters"`
}

// LoadClusterDir registers the clusters of every *.json, *.yaml and *.yml
// file in dir, merging into clusters already known. A missing or empty
// directory is not an error. It returns the number of definitions read.
func LoadClusterDir(dir string, r *Registry, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Info("no cluster definition dir", "dir", dir)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read clusters dir: %w", err)
	}

	total := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("read %s: %w", path, err)
		}

		var f clusterFile
		if ext == ".json" {
			err = json.Unmarshal(data, &f)
		} else {
			err = yaml.Unmarshal(data, &f)
		}
		if err != nil {
			return total, fmt.Errorf("parse %s: %w", path, err)
		}

		for _, c := range f.Clusters {
			if c.Name == "" {
				return total, fmt.Errorf("%s: cluster 0x%04X has no name", path, c.ID)
			}
			r.Register(c)
		}
		total += len(f.Clusters)
		logger.Info("loaded cluster file", "path", e.Name(), "clusters", len(f.Clusters))
	}
	return total, nil
}
