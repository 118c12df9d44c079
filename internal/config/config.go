// Package config defines the necessary types to configure the client.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	API        API        `yaml:"api"`
	Storage    Storage    `yaml:"storage"`
	Navigation Navigation `yaml:"navigation"`
	Watch      Watch      `yaml:"watch"`
}

// API points the client at the marketplace backend.
type API struct {
	BaseURL string        `yaml:"baseURL" default:"http://localhost:3000/api"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`
}

type StorageType string

const (
	StorageTypeFile   StorageType = "file"
	StorageTypeBolt   StorageType = "bolt"
	StorageTypeValKey StorageType = "valkey"
)

// Storage selects where the session is persisted.
type Storage struct {
	Type     StorageType   `yaml:"type" default:"file"`
	Key      string        `yaml:"key" default:"oko-auth"`
	CacheTTL time.Duration `yaml:"cacheTTL" default:"2s"`

	File   FileStorage `yaml:"file"`
	Bolt   BoltStorage `yaml:"bolt"`
	ValKey ValKey      `yaml:"valkey"`
}

type FileStorage struct {
	Dir string `yaml:"dir" default:"$HOME/.oko"`
}

type BoltStorage struct {
	Path   string `yaml:"path" default:"$HOME/.oko/session.db"`
	Bucket string `yaml:"bucket" default:"oko"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix" default:"oko"`
}

// Navigation describes where the client is and where logins live.
type Navigation struct {
	CurrentPath     string `yaml:"currentPath" default:"/dashboard"`
	AdminPrefix     string `yaml:"adminPrefix" default:"/oko-admin"`
	AdminLoginRoute string `yaml:"adminLoginRoute" default:"/oko-admin"`
	LoginRoute      string `yaml:"loginRoute" default:"/login"`
}

type Watch struct {
	Interval time.Duration `yaml:"interval" default:"30s"`
}
