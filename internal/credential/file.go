package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/evanofslack/cf-ddns/internal/metrics"
	"gopkg.in/yaml.v3"
)

const backendFile = "file"

// fileDoc is the on-disk layout, for example
//
//	hosts:
//	  home: secret
//
// or the TOML equivalent under a [hosts] table.
type fileDoc struct {
	Hosts map[string]string `yaml:"hosts" toml:"hosts"`
}

// FileStore is a read-only store loaded once at startup.
type FileStore struct {
	hosts   map[string]string
	metrics *metrics.Metrics
}

func NewFile(path string, metrics *metrics.Metrics) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, storageError(backendFile, fmt.Errorf("read %s: %w", path, err))
	}

	var doc fileDoc
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		err = errors.New("unsupported credentials file extension, use .yaml, .yml or .toml")
	}
	if err != nil {
		return nil, storageError(backendFile, fmt.Errorf("parse %s: %w", path, err))
	}
	if doc.Hosts == nil {
		doc.Hosts = make(map[string]string)
	}
	return &FileStore{hosts: doc.Hosts, metrics: metrics}, nil
}

func (s *FileStore) Lookup(ctx context.Context, hostname string) (string, bool, error) {
	password, ok := s.hosts[hostname]
	s.metrics.IncCredentialRequest(backendFile, true)
	return password, ok, nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	hosts := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts, nil
}

func (s *FileStore) Close() error {
	return nil
}
