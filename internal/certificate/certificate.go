// Package certificate renders the printable transfer certificate for a
// ledger entry.
package certificate

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/erazemk/custody/internal/model"
	webembed "github.com/erazemk/custody/web"
)

const recordedLayout = "2006/01/02 15:04:05"

// Renderer holds the parsed certificate template.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"japaneseDate": func(t time.Time) string {
			return fmt.Sprintf("%d年 %d月 %d日", t.Year(), int(t.Month()), t.Day())
		},
	}
}

// NewRenderer parses the embedded certificate template. Times are shown in loc.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	src, err := fs.ReadFile(webembed.TemplatesFS(), "certificate.html")
	if err != nil {
		return nil, fmt.Errorf("reading certificate template: %w", err)
	}
	tmpl, err := template.New("certificate").Funcs(FuncMap()).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing certificate template: %w", err)
	}
	return &Renderer{tmpl: tmpl, loc: loc}, nil
}

type view struct {
	Number     string
	RecordedAt string
	IssuedAt   time.Time
	Record     *model.TransferRecord
	Equipment  *model.EquipmentUnit
}

// Render writes the certificate for rec. eq may be nil; its type and serial
// rows are then left out. issuedAt is the date printed in the footer.
func (r *Renderer) Render(w io.Writer, rec *model.TransferRecord, eq *model.EquipmentUnit, issuedAt time.Time) error {
	v := view{
		Number:     rec.Certificate(),
		RecordedAt: rec.RecordedAt.In(r.loc).Format(recordedLayout),
		IssuedAt:   issuedAt.In(r.loc),
		Record:     rec,
		Equipment:  eq,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return fmt.Errorf("rendering certificate %s: %w", v.Number, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// FileName is the download name for rec's certificate.
func FileName(rec *model.TransferRecord) string {
	return fmt.Sprintf("証明書_%s_%s.html", rec.Certificate(), rec.EquipmentID)
}
