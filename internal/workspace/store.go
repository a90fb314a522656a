package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Store is the workspace persistence collaborator. Load and Save each move
// the whole document; there are no partial updates. Implementations are
// assumed to have a single local writer.
type Store interface {
	// Load returns the persisted workspace, or os.ErrNotExist (wrapped)
	// when none has been written yet.
	Load() (*Workspace, error)
	Save(w *Workspace) error
	// Reset removes the persisted document, returning the store to the
	// never-written state. Used to roll back a lazy creation.
	Reset() error
}

// workspaceSchema validates the document shape on load so a corrupted or
// hand-edited file fails before any session operation touches it.
const workspaceSchema = `{
  "type": "object",
  "required": ["name", "sessions", "profiles"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "defaultRegion": {"type": "string"},
    "defaultLocation": {"type": "string"},
    "profiles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1}
        }
      }
    },
    "sessions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "profile", "account"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "profile": {"type": "string"},
          "active": {"type": "boolean"},
          "loading": {"type": "boolean"},
          "account": {
            "type": "object",
            "required": ["type", "accountName"],
            "properties": {
              "type": {
                "type": "string",
                "enum": ["AWS", "AWS_PLAIN_USER", "AWS_TRUSTER", "AWS_SSO", "AZURE"]
              },
              "accountName": {"type": "string", "minLength": 1}
            }
          }
        }
      }
    }
  }
}`

// FileStore persists the workspace as a YAML document at a fixed path.
type FileStore struct {
	Path string
}

// NewFileStore creates a store rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// DefaultPath returns the per-user workspace location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cloudwarden", "workspace.yaml"), nil
}

// Load reads, validates and parses the workspace document.
func (s *FileStore) Load() (*Workspace, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workspace %s: %w", s.Path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}

	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var w Workspace
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	return &w, nil
}

// Save writes the whole document atomically: marshal, write to a temp file
// in the same directory, rename over the target.
func (s *FileStore) Save(w *Workspace) error {
	data, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".workspace-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp workspace file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set workspace permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace workspace: %w", err)
	}
	return nil
}

// Reset removes the persisted document.
func (s *FileStore) Reset() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	return nil
}

// validateDocument checks the raw YAML against the workspace schema.
func validateDocument(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse workspace: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(workspaceSchema),
		gojsonschema.NewGoLoader(normalize(doc)),
	)
	if err != nil {
		return fmt.Errorf("workspace validation failed: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("invalid workspace document: %s: %s", first.Field(), first.Description())
	}
	return nil
}

// normalize converts YAML-decoded values into JSON-compatible ones. yaml.v3
// decodes timestamps as time.Time, which the schema loader rejects.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}
