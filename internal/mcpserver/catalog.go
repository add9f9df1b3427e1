// Package mcpserver manages the on-disk catalog of named MCP-server
// definitions: JSON files under namespaced subdirectories, so a CLI
// invocation can reference a server by "{namespace}.{name}" instead of
// spelling out its command and arguments every time. Laid out
// identically to guardprofile.Catalog.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcp-guardian/guardian/internal/guardprofile"
)

// Document describes how to launch an MCP server subprocess.
type Document struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// NamedDocument pairs a Document with the namespace/name it was loaded
// from or will be saved under.
type NamedDocument struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"server_name"`
	Document  Document `json:"mcp_server"`
}

// Catalog manages the on-disk namespaced server-definition catalog
// rooted at Dir. Unlike guardprofile.Catalog there are no built-in
// server definitions -- mcp-guardian.* ships no servers -- so
// CoreNamespace is reserved but never populated.
type Catalog struct {
	Dir string
}

// NewCatalog creates a Catalog rooted at dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{Dir: dir}
}

// Load returns the document for namespace.name, or (Document{}, false,
// nil) if it does not exist.
func (c *Catalog) Load(namespace, name string) (Document, bool, error) {
	path := filepath.Join(c.Dir, namespace, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("mcpserver: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, false, fmt.Errorf("mcpserver: parse %s: %w", path, err)
	}
	return doc, true, nil
}

// Save writes doc to namespace.name. Saving into the reserved
// mcp-guardian namespace is rejected, matching guardprofile.Catalog.Save.
func (c *Catalog) Save(namespace, name string, doc Document) error {
	if namespace == guardprofile.CoreNamespace {
		return fmt.Errorf("mcpserver: namespace %q is reserved", guardprofile.CoreNamespace)
	}

	dir := filepath.Join(c.Dir, namespace)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mcpserver: create namespace dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("mcpserver: marshal document: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, name+".json"), data, 0o600)
}

// Delete removes namespace.name from disk.
func (c *Catalog) Delete(namespace, name string) error {
	if namespace == guardprofile.CoreNamespace {
		return fmt.Errorf("mcpserver: namespace %q is reserved", guardprofile.CoreNamespace)
	}
	path := filepath.Join(c.Dir, namespace, name+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("mcpserver: server %s.%s not found", namespace, name)
	}
	return os.Remove(path)
}

// List returns every server definition in the catalog.
func (c *Catalog) List() ([]NamedDocument, error) {
	var out []NamedDocument

	namespaceDirs, err := os.ReadDir(c.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("mcpserver: read catalog dir: %w", err)
	}

	for _, nsEntry := range namespaceDirs {
		if !nsEntry.IsDir() {
			continue
		}
		namespace := nsEntry.Name()

		files, err := os.ReadDir(filepath.Join(c.Dir, namespace))
		if err != nil {
			return nil, fmt.Errorf("mcpserver: read namespace %s: %w", namespace, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			name := strings.TrimSuffix(f.Name(), ".json")
			doc, ok, err := c.Load(namespace, name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			out = append(out, NamedDocument{Namespace: namespace, Name: name, Document: doc})
		}
	}

	return out, nil
}
