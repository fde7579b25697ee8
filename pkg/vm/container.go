package vm

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ContainerVersion is recorded in every manifest this package writes.
const ContainerVersion = "stackcc/1"

const (
	entryProgram  = "program.bin"
	entryManifest = "manifest.json"
	entryListing  = "listing.sasm"
)

// Manifest is the human-readable description stored next to the program.
type Manifest struct {
	Name      string    `json:"name"`
	Entry     string    `json:"entry"`
	Functions []string  `json:"functions"`
	Globals   int       `json:"globals"`
	CodeSize  int       `json:"code_size"`
	Created   time.Time `json:"created"`
	Compiler  string    `json:"compiler"`
}

// Container is a program packaged for distribution: the image, its
// manifest and optionally the listing it was assembled from.
type Container struct {
	Manifest Manifest
	Image    *Image
	Listing  string
}

// NewContainer describes img under name.
func NewContainer(name string, img *Image, listing string) *Container {
	m := Manifest{
		Name:     name,
		Entry:    img.Funcs[img.Entry].Name,
		Globals:  len(img.Globals),
		CodeSize: len(img.Code),
		Created:  time.Now().UTC(),
		Compiler: ContainerVersion,
	}
	for _, f := range img.Funcs {
		if !f.Builtin {
			m.Functions = append(m.Functions, f.Name)
		}
	}
	return &Container{Manifest: m, Image: img, Listing: listing}
}

// Bytes serialises the container into an in-memory ZIP archive.
func (c *Container) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	code, err := c.Image.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, entryProgram, code); err != nil {
		return nil, err
	}

	jsonData, err := json.MarshalIndent(c.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeZipEntry(zw, entryManifest, jsonData); err != nil {
		return nil, err
	}

	if c.Listing != "" {
		if err := writeZipEntry(zw, entryListing, []byte(c.Listing)); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadContainer parses an archive produced by Bytes.
func ReadContainer(data []byte) (*Container, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	c := &Container{Image: &Image{}}
	code, err := readZipEntry(fileMap, entryProgram)
	if err != nil {
		return nil, err
	}
	if err := c.Image.UnmarshalBinary(code); err != nil {
		return nil, err
	}

	jsonData, err := readZipEntry(fileMap, entryManifest)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(jsonData, &c.Manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if listing, err := readZipEntry(fileMap, entryListing); err == nil {
		c.Listing = string(listing)
	}
	return c, nil
}

// WriteFile writes the container archive to path.
func (c *Container) WriteFile(path string) error {
	data, err := c.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadContainerFile reads a container archive from path.
func ReadContainerFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadContainer(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
