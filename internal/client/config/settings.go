// Package config holds the client's persisted settings: connection details,
// sync options, feed cursors, and the per-path metadata caches.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openvault/vaultsync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".vaultsync", "settings.json")
	DefaultServerURL  = "http://localhost:8080"
)

const (
	DefaultSyncInterval = 60 // seconds
	DefaultVaultID      = "default"
)

// DocMeta is the last-synced state of one document path.
type DocMeta struct {
	Path         string `json:"path"`
	Rev          string `json:"rev"`
	LastModified int64  `json:"lastModified"` // unix millis of the synced disk mtime
}

// AttachmentMeta is the last-synced state of one attachment path.
type AttachmentMeta struct {
	Path         string `json:"path"`
	Hash         string `json:"hash"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
	LastModified int64  `json:"lastModified"`
	AttachmentID string `json:"attachmentId"`
}

// Settings is the JSON settings file. It is the durability boundary for
// cursors and metadata: a cursor advance only counts once this is saved.
type Settings struct {
	ServerURL         string                    `json:"serverUrl"`
	APIKey            string                    `json:"apiKey"`
	VaultID           string                    `json:"vaultId"`
	VaultDir          string                    `json:"vaultDir"`
	AutoSync          bool                      `json:"autoSync"`
	SyncInterval      int                       `json:"syncInterval"`
	SyncOnStartup     bool                      `json:"syncOnStartup"`
	SyncOnSave        bool                      `json:"syncOnSave"`
	SyncAttachments   bool                      `json:"syncAttachments"`
	LastSync          int64                     `json:"lastSync"`
	LastSeq           int64                     `json:"lastSeq"`
	LastAttachmentSeq int64                     `json:"lastAttachmentSeq"`
	MetadataCache     map[string]DocMeta        `json:"metadataCache"`
	AttachmentCache   map[string]AttachmentMeta `json:"attachmentCache"`

	Path string `json:"-"`
}

func Default() *Settings {
	return &Settings{
		ServerURL:       DefaultServerURL,
		VaultID:         DefaultVaultID,
		SyncInterval:    DefaultSyncInterval,
		AutoSync:        true,
		SyncOnStartup:   true,
		SyncAttachments: true,
		MetadataCache:   map[string]DocMeta{},
		AttachmentCache: map[string]AttachmentMeta{},
		Path:            DefaultConfigPath,
	}
}

func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	s.Path = path
	if s.VaultID == "" {
		s.VaultID = DefaultVaultID
	}
	if s.SyncInterval <= 0 {
		s.SyncInterval = DefaultSyncInterval
	}
	if s.MetadataCache == nil {
		s.MetadataCache = map[string]DocMeta{}
	}
	if s.AttachmentCache == nil {
		s.AttachmentCache = map[string]AttachmentMeta{}
	}
	return &s, nil
}

func (s *Settings) Save() error {
	if err := utils.EnsureParent(s.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return utils.WriteFileAtomic(s.Path, data, 0o600)
}

func (s *Settings) Validate() error {
	if s.ServerURL == "" {
		return fmt.Errorf("serverUrl required")
	}
	if s.APIKey == "" {
		return fmt.Errorf("apiKey required")
	}
	if s.VaultDir == "" {
		return fmt.Errorf("vaultDir required")
	}
	return nil
}
