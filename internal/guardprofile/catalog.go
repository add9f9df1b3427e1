package guardprofile

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed profiles/*.json
var builtinFS embed.FS

// builtinProfiles caches the decoded built-in catalog (namespace
// mcp-guardian), loaded once from the embedded FS.
var builtinProfiles = mustLoadBuiltins()

func mustLoadBuiltins() map[string]Document {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		panic(fmt.Sprintf("guardprofile: read embedded profiles: %v", err))
	}

	out := make(map[string]Document, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := builtinFS.ReadFile(filepath.Join("profiles", entry.Name()))
		if err != nil {
			panic(fmt.Sprintf("guardprofile: read embedded profile %s: %v", entry.Name(), err))
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			panic(fmt.Sprintf("guardprofile: parse embedded profile %s: %v", entry.Name(), err))
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		out[name] = doc
	}
	return out
}

// Catalog manages the on-disk namespaced profile catalog rooted at Dir,
// layering the embedded built-ins under CoreNamespace on top: built-in
// profiles are shipped in the binary, while user profiles live under
// other namespaces on disk.
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
	if namespace == CoreNamespace {
		doc, ok := builtinProfiles[name]
		return doc, ok, nil
	}

	path := filepath.Join(c.Dir, namespace, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("guardprofile: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, false, fmt.Errorf("guardprofile: parse %s: %w", path, err)
	}
	return doc, true, nil
}

// Save writes doc to namespace.name. Saving into CoreNamespace is
// rejected: it is a reserved namespace for built-in profiles.
func (c *Catalog) Save(namespace, name string, doc Document) error {
	if namespace == CoreNamespace {
		return fmt.Errorf("guardprofile: namespace %q is reserved for built-in profiles", CoreNamespace)
	}

	dir := filepath.Join(c.Dir, namespace)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("guardprofile: create namespace dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("guardprofile: marshal document: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, name+".json"), data, 0o600)
}

// Delete removes namespace.name from disk. Deleting a built-in is
// rejected.
func (c *Catalog) Delete(namespace, name string) error {
	if namespace == CoreNamespace {
		return fmt.Errorf("guardprofile: unable to delete built-in guard profiles")
	}

	path := filepath.Join(c.Dir, namespace, name+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("guardprofile: profile %s.%s not found", namespace, name)
	}
	return os.Remove(path)
}

// List returns every profile in the catalog: built-ins first, then
// every on-disk namespace directory's contents.
func (c *Catalog) List() ([]NamedDocument, error) {
	var out []NamedDocument

	for name, doc := range builtinProfiles {
		out = append(out, NamedDocument{Namespace: CoreNamespace, Name: name, Document: doc})
	}

	namespaceDirs, err := os.ReadDir(c.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("guardprofile: read catalog dir: %w", err)
	}

	for _, nsEntry := range namespaceDirs {
		if !nsEntry.IsDir() {
			continue
		}
		namespace := nsEntry.Name()

		files, err := os.ReadDir(filepath.Join(c.Dir, namespace))
		if err != nil {
			return nil, fmt.Errorf("guardprofile: read namespace %s: %w", namespace, err)
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
