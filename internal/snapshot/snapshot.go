// Package snapshot renders the filled-PDF artifact for a completed report
// and stores it on disk keyed by report id.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/pairworks/tpsflow/internal/formdata"
	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/types"
)

// Renderer produces the snapshot PDF: a title block, the committed form
// values, the approval block with both parties' initials, and a
// verification QR encoding the report id.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (Renderer) Render(r *models.Report, creator, receiver *models.User, data formdata.Map) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	title := data.GetString(formdata.KeyDisplayTitle)
	if title == "" {
		title = "TPS Report"
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Report #%d  -  %s", r.ID, data.GetString(formdata.KeyDate)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Form values in stable key order.
	names := make([]string, 0, len(data))
	for name := range data {
		if name == formdata.KeyDisplayTitle || name == formdata.KeyDate {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(55, 7, name, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 7, data.GetString(name), "", "L", false)
	}
	pdf.Ln(6)

	// Approval block.
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Approvals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Creator: %s  (initials: %s)", creator.DisplayName, r.CreatorInitials), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Receiver: %s  (initials: %s)", receiver.DisplayName, r.ReceiverInitials), "", 1, "L", false, 0, "")

	// Verification QR in the bottom-right corner.
	qrPng, err := qrcode.Encode(fmt.Sprintf("tpsflow:report:%d", r.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, types.Unavailable("qr encode failed: %v", err)
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verify_qr", imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions("verify_qr", 165, 250, 25, 25, false, imgOptions, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, types.Unavailable("snapshot render failed: %v", err)
	}
	return buf.Bytes(), nil
}

// DiskStore persists snapshots under one directory as report-<id>.pdf.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) path(reportID uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("report-%d.pdf", reportID))
}

func (s *DiskStore) Save(reportID uint64, b []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", types.Unavailable("snapshot dir unavailable: %v", err)
	}
	p := s.path(reportID)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", types.Unavailable("snapshot write failed: %v", err)
	}
	return p, nil
}

func (s *DiskStore) Retrieve(reportID uint64) ([]byte, error) {
	b, err := os.ReadFile(s.path(reportID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.NotFound("no snapshot for report %d", reportID)
		}
		return nil, types.Unavailable("snapshot read failed: %v", err)
	}
	return b, nil
}
