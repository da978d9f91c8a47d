package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransferRecord is an immutable ledger entry for one custody transfer.
type TransferRecord struct {
	CertificateNo int64     `json:"certificate_no"`
	RecordedAt    time.Time `json:"recorded_at"`
	EquipmentID   string    `json:"equipment_id"`
	IssuingUnit   string    `json:"issuing_unit"`
	ReceivingUnit string    `json:"receiving_unit"`
	Details       string    `json:"details"`
	RecorderName  string    `json:"recorder_name"`
	RecordedBy    *int64    `json:"recorded_by,omitempty"`
}

// Certificate returns the zero-padded display form of the certificate number.
func (t *TransferRecord) Certificate() string {
	return FormatCertificateNo(t.CertificateNo)
}

// FormatCertificateNo pads a certificate number to four digits ("0007").
// Numbers beyond 9999 are printed in full.
func FormatCertificateNo(n int64) string {
	return fmt.Sprintf("%04d", n)
}

// ParseCertificateNo accepts either the padded or the plain form.
func ParseCertificateNo(s string) (int64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid certificate number %q", s)
	}
	return n, nil
}
