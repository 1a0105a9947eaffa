package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File is a Registry backed by a YAML document:
//
//	devices:
//	  'CLSID\{5C2CD55C-92AD-4999-8666-912BD3E70010}': Unity Video Capture
//
// It stands in for the system registry on hosts that have none.
type File struct {
	Path string
}

type fileDoc struct {
	Devices map[string]string `yaml:"devices"`
}

// DefaultFilePath returns ~/.shmcam/devices.yaml.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".shmcam", "devices.yaml")
	}
	return filepath.Join(home, ".shmcam", "devices.yaml")
}

func (f File) load() (fileDoc, error) {
	var doc fileDoc
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("registry: parse %s: %w", f.Path, err)
	}
	return doc, nil
}

// Lookup implements Registry. A missing file holds no devices.
func (f File) Lookup(key string) (string, bool, error) {
	doc, err := f.load()
	if err != nil {
		return "", false, err
	}
	name, ok := doc.Devices[key]
	return name, ok, nil
}

// Register writes name for channel id, creating the file if needed.
func (f File) Register(id int, name string) error {
	doc, err := f.load()
	if err != nil {
		return err
	}
	if doc.Devices == nil {
		doc.Devices = make(map[string]string)
	}
	doc.Devices[Key(id)] = name

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o644)
}
