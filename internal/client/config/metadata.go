package config

import (
	"maps"
	"sync"
)

// MetadataCache is the fast path over the settings' metadata maps. It is
// rehydrated from Settings at construction; Persist writes the maps and
// cursors back to disk. Settings remain the source of truth for cursors.
type MetadataCache struct {
	mu          sync.RWMutex
	settings    *Settings
	docs        map[string]DocMeta
	attachments map[string]AttachmentMeta
}

func NewMetadataCache(settings *Settings) *MetadataCache {
	return &MetadataCache{
		settings:    settings,
		docs:        maps.Clone(settings.MetadataCache),
		attachments: maps.Clone(settings.AttachmentCache),
	}
}

func (m *MetadataCache) GetDoc(path string) (DocMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.docs[path]
	return meta, ok
}

func (m *MetadataCache) SetDoc(meta DocMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[meta.Path] = meta
}

func (m *MetadataCache) DeleteDoc(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
}

// Docs returns a snapshot of the document metadata map.
func (m *MetadataCache) Docs() map[string]DocMeta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.docs)
}

func (m *MetadataCache) GetAttachment(path string) (AttachmentMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.attachments[path]
	return meta, ok
}

func (m *MetadataCache) SetAttachment(meta AttachmentMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachments[meta.Path] = meta
}

func (m *MetadataCache) DeleteAttachment(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attachments, path)
}

func (m *MetadataCache) Attachments() map[string]AttachmentMeta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.attachments)
}

// ClearAll drops both maps, e.g. on a full reset.
func (m *MetadataCache) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = map[string]DocMeta{}
	m.attachments = map[string]AttachmentMeta{}
}

// Persist copies the maps back into settings and saves the file. Call at
// phase boundaries, not per item.
func (m *MetadataCache) Persist() error {
	m.mu.RLock()
	m.settings.MetadataCache = maps.Clone(m.docs)
	m.settings.AttachmentCache = maps.Clone(m.attachments)
	m.mu.RUnlock()
	return m.settings.Save()
}
