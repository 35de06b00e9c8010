package extract

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/xml"
	"fmt"

	"github.com/djherbis/times"
	"github.com/gen2brain/go-fitz"

	"github.com/docmill/docmill/internal/models"
)

// Describe assembles metadata for a processed file. It never fails the
// extraction: anything it cannot determine stays zero and comes back as a
// warning instead.
func Describe(path string, format Format, raw []byte) (models.Metadata, []string) {
	meta := models.Metadata{
		Format:    string(format),
		SizeBytes: int64(len(raw)),
		SHA256:    fmt.Sprintf("%x", sha256.Sum256(raw)),
	}
	var warnings []string

	if ts, err := times.Stat(path); err != nil {
		warnings = append(warnings, "file times: "+err.Error())
	} else {
		meta.Modified = ts.ModTime()
		if ts.HasBirthTime() {
			meta.Created = ts.BirthTime()
		}
	}

	switch format {
	case FormatPDF:
		if err := describePDF(path, &meta); err != nil {
			warnings = append(warnings, "pdf metadata: "+err.Error())
		}
	case FormatDOCX:
		if err := describeDocx(path, &meta); err != nil {
			warnings = append(warnings, "docx metadata: "+err.Error())
		}
	}
	return meta, warnings
}

func describePDF(path string, meta *models.Metadata) error {
	doc, err := fitz.New(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	meta.Pages = doc.NumPage()
	info := doc.Metadata()
	meta.Author = info["author"]
	meta.Title = info["title"]
	return nil
}

// coreProps is the Dublin Core slice of a DOCX container's
// docProps/core.xml part.
type coreProps struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

// describeDocx reads author and title straight from the container's core
// properties part, without re-running the body decoder. A container with no
// core properties is fine; there is just nothing to add.
func describeDocx(path string, meta *models.Metadata) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		var props coreProps
		err = xml.NewDecoder(rc).Decode(&props)
		rc.Close()
		if err != nil {
			return err
		}
		meta.Author = props.Creator
		meta.Title = props.Title
		return nil
	}
	return nil
}
