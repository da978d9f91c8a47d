package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCertificateNo(t *testing.T) {
	assert.Equal(t, "0001", FormatCertificateNo(1))
	assert.Equal(t, "0007", FormatCertificateNo(7))
	assert.Equal(t, "0420", FormatCertificateNo(420))
	assert.Equal(t, "9999", FormatCertificateNo(9999))
	assert.Equal(t, "10000", FormatCertificateNo(10000))

	rec := TransferRecord{CertificateNo: 12}
	assert.Equal(t, "0012", rec.Certificate())
}

func TestParseCertificateNo(t *testing.T) {
	for _, in := range []string{"7", "0007", " 0007 "} {
		n, err := ParseCertificateNo(in)
		require.NoError(t, err, in)
		assert.EqualValues(t, 7, n)
	}

	for _, in := range []string{"", "0", "0000", "-1", "abc", "1.5"} {
		_, err := ParseCertificateNo(in)
		assert.Error(t, err, in)
	}
}
