// Package vault reads and writes the local note directory. Documents are
// markdown files addressed by a slash-separated doc id without the ".md"
// extension; attachments are binary files matched by extension.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openvault/vaultsync/internal/utils"
)

// Attachment extensions worth syncing. Conservative: anything else is
// ignored rather than uploaded by accident.
var attachmentExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".pdf":  true,
	".mp3":  true,
	".wav":  true,
	".mp4":  true,
	".webm": true,
	".zip":  true,
}

type FileInfo struct {
	Path    string // vault-relative, forward slashes
	Size    int64
	ModTime time.Time
}

type Vault struct {
	root string
}

func New(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault dir: %w", err)
	}
	if err := utils.EnsureDir(abs); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	return &Vault{root: abs}, nil
}

func (v *Vault) Root() string { return v.root }

func (v *Vault) abs(relPath string) (string, error) {
	if !utils.IsValidVaultPath(relPath) {
		return "", fmt.Errorf("invalid vault path %q", relPath)
	}
	return filepath.Join(v.root, filepath.FromSlash(relPath)), nil
}

// ListDocs walks the vault for markdown files, returning vault-relative
// paths. Dot directories (.obsidian, .git) are skipped.
func (v *Vault) ListDocs() ([]FileInfo, error) {
	return v.list(func(path string) bool {
		return strings.HasSuffix(path, ".md")
	})
}

// ListAttachments walks the vault for files on the attachment allow-list.
func (v *Vault) ListAttachments() ([]FileInfo, error) {
	return v.list(func(path string) bool {
		return attachmentExts[strings.ToLower(filepath.Ext(path))]
	})
}

func (v *Vault) list(match func(string) bool) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !match(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{Path: rel, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vault files: %w", err)
	}
	return files, nil
}

func (v *Vault) Read(relPath string) ([]byte, error) {
	abs, err := v.abs(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (v *Vault) Write(relPath string, data []byte) error {
	abs, err := v.abs(relPath)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(abs, data, 0o644)
}

func (v *Vault) Delete(relPath string) error {
	abs, err := v.abs(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (v *Vault) Exists(relPath string) bool {
	abs, err := v.abs(relPath)
	if err != nil {
		return false
	}
	return utils.FileExists(abs)
}

// ModTime returns the current disk mtime, or zero when the file is gone.
func (v *Vault) ModTime(relPath string) (time.Time, error) {
	abs, err := v.abs(relPath)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// DocPath maps a document id to its vault-relative file path.
func DocPath(docID string) string {
	return utils.DocIDToPath(docID)
}

// DocID maps a vault-relative markdown path to its document id.
func DocID(relPath string) string {
	return utils.NormalizeDocID(relPath)
}
