// Package config provides XML-based configuration management for the site back end.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Fetch modes.
const (
	FetchModeDirect  = "direct"
	FetchModeNetwork = "network"
)

// Blob backends.
const (
	BlobBackendLocal  = "local"
	BlobBackendGridFS = "gridfs"
	BlobBackendS3     = "s3"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"SiteBackend"`

	Server   ServerConfig   `xml:"Server"`
	Mongo    MongoConfig    `xml:"Mongo"`
	Storage  StorageConfig  `xml:"Storage"`
	Cache    CacheConfig    `xml:"Cache"`
	Fetch    FetchConfig    `xml:"Fetch"`
	Scanner  ScannerConfig  `xml:"Scanner"`
	Security SecurityConfig `xml:"Security"`
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// MongoConfig contains document store settings
type MongoConfig struct {
	URI                   string `xml:"URI"`
	Database              string `xml:"Database"`
	SiteContentCollection string `xml:"SiteContentCollection"`
	EventDataCollection   string `xml:"EventDataCollection"`
	FilesCollection       string `xml:"FilesCollection"`
	ConnectTimeoutSeconds int    `xml:"ConnectTimeoutSeconds"`
}

// StorageConfig contains asset payload storage settings
type StorageConfig struct {
	Backend          string `xml:"Backend"`
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
	GridFSBucket     string `xml:"GridFSBucket"`
	S3Bucket         string `xml:"S3Bucket"`
	S3Region         string `xml:"S3Region"`
	S3Endpoint       string `xml:"S3Endpoint"`
	S3Prefix         string `xml:"S3Prefix"`
}

// CacheConfig contains content cache settings
type CacheConfig struct {
	EventDataTTLSeconds      int `xml:"EventDataTTLSeconds"`
	EventFetchTimeoutSeconds int `xml:"EventFetchTimeoutSeconds"`
}

// FetchConfig selects how cached resources are loaded
type FetchConfig struct {
	Mode    string `xml:"Mode"`
	BaseURL string `xml:"BaseURL"`
}

// ScannerConfig bounds the unused file scan
type ScannerConfig struct {
	MaxDocuments       int    `xml:"MaxDocuments"`
	MaxDurationSeconds int    `xml:"MaxDurationSeconds"`
	RulesFile          string `xml:"RulesFile"`
	ExcludeCollections string `xml:"ExcludeCollections"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowFileDeletion bool  `xml:"AllowFileDeletion"`
	AllowUploads      bool  `xml:"AllowUploads"`
	MaxUploadSizeMB   int64 `xml:"MaxUploadSizeMB"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	Development          bool   `xml:"Development"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8080,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "50M",
		},
		Mongo: MongoConfig{
			URI:                   "mongodb://localhost:27017",
			Database:              "techelons",
			SiteContentCollection: "sitecontents",
			EventDataCollection:   "techelonsdatas",
			FilesCollection:       "files",
			ConnectTimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Backend:          BlobBackendGridFS,
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			GridFSBucket:     "uploads",
			S3Region:         "us-east-1",
		},
		Cache: CacheConfig{
			EventDataTTLSeconds:      300,
			EventFetchTimeoutSeconds: 5,
		},
		Fetch: FetchConfig{
			Mode:    FetchModeDirect,
			BaseURL: "http://localhost:8080",
		},
		Scanner: ScannerConfig{
			MaxDocuments:       100000,
			MaxDurationSeconds: 60,
		},
		Security: SecurityConfig{
			AllowFileDeletion: true,
			AllowUploads:      true,
			MaxUploadSizeMB:   25,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Site Backend Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks enumerated settings.
func (c *AppConfig) Validate() error {
	switch c.Fetch.Mode {
	case FetchModeDirect, FetchModeNetwork:
	default:
		return fmt.Errorf("invalid fetch mode %q (want %q or %q)", c.Fetch.Mode, FetchModeDirect, FetchModeNetwork)
	}
	switch c.Storage.Backend {
	case BlobBackendLocal, BlobBackendGridFS:
	case BlobBackendS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage backend s3 requires S3Bucket")
		}
	default:
		return fmt.Errorf("invalid storage backend %q", c.Storage.Backend)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		c.Mongo.URI = uri
	}
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		c.Mongo.Database = db
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}
	if backend := os.Getenv("BLOB_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		c.Storage.S3Bucket = bucket
	}
	if mode := os.Getenv("FETCH_MODE"); mode != "" {
		c.Fetch.Mode = strings.ToLower(mode)
	}
	if baseURL := os.Getenv("SITE_BASE_URL"); baseURL != "" {
		c.Fetch.BaseURL = baseURL
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
	if c.Scanner.RulesFile != "" && !filepath.IsAbs(c.Scanner.RulesFile) {
		c.Scanner.RulesFile = filepath.Join(configDir, c.Scanner.RulesFile)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EventDataTTL returns the event data validity window.
func (c *AppConfig) EventDataTTL() time.Duration {
	return time.Duration(c.Cache.EventDataTTLSeconds) * time.Second
}

// EventFetchTimeout returns the network timeout for event data.
func (c *AppConfig) EventFetchTimeout() time.Duration {
	return time.Duration(c.Cache.EventFetchTimeoutSeconds) * time.Second
}

// ScanMaxDuration returns the scan deadline, zero meaning unbounded.
func (c *AppConfig) ScanMaxDuration() time.Duration {
	return time.Duration(c.Scanner.MaxDurationSeconds) * time.Second
}

// ExcludedCollections returns the configured collections the scanner skips.
func (c *AppConfig) ExcludedCollections() []string {
	var out []string
	for _, name := range strings.Split(c.Scanner.ExcludeCollections, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *AppConfig) MaxUploadBytes() int64 {
	return c.Security.MaxUploadSizeMB * 1024 * 1024
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.Storage.Backend == BlobBackendLocal {
		dirs = append(dirs, c.Storage.UploadsDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
