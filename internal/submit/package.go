package submit

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// buildZip packages pdf and metadataXML into a single in-memory zip archive
// containing "form.pdf" and "metadata.xml".
func buildZip(pdf, metadataXML []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	if err := writeZipEntry(w, "form.pdf", pdf); err != nil {
		return nil, err
	}
	if err := writeZipEntry(w, "metadata.xml", metadataXML); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("submit: close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipEntry(w *zip.Writer, name string, data []byte) error {
	entry, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("submit: create zip entry %s: %w", name, err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("submit: write zip entry %s: %w", name, err)
	}
	return nil
}
