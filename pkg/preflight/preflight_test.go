package preflight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExtension(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantOK   bool
	}{
		{"csv", "data.csv", true},
		{"uppercase", "DATA.CSV", true},
		{"path", "/tmp/in/data.csv", true},
		{"xlsx", "data.xlsx", false},
		{"no extension", "data", false},
		{"csv in name only", "data.csv.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := CheckExtension(tt.filename)
			if tt.wantOK {
				assert.Nil(t, rej)
				return
			}
			require.NotNil(t, rej)
			assert.Equal(t, "Invalid file type", rej.Error)
			assert.Contains(t, rej.Reason, "is not a CSV file")
			assert.NotEmpty(t, rej.HowToFix)
		})
	}
}

func TestCheckSize(t *testing.T) {
	opts := Options{MaxSizeBytes: 1024 * 1024}

	assert.Nil(t, CheckSize(1024*1024, opts))

	rej := CheckSize(1024*1024+1, opts)
	require.NotNil(t, rej)
	assert.Equal(t, "File too large", rej.Error)
	assert.Equal(t, "File size exceeds 1MB limit", rej.Reason)
}

func TestCheckSize_DefaultLimit(t *testing.T) {
	assert.Nil(t, CheckSize(50*1024*1024, Options{}))
	assert.NotNil(t, CheckSize(101*1024*1024, Options{}))
}

func TestCheckStructure(t *testing.T) {
	ok := CheckStructure([]byte("a,b\n1,2\n3,4\n"))
	assert.True(t, ok.Valid)
	assert.Equal(t, 2, ok.Columns)
	assert.Equal(t, 2, ok.Rows)

	headerOnly := CheckStructure([]byte("a,b\n\n"))
	assert.False(t, headerOnly.Valid)
	assert.Equal(t, "CSV must have at least a header and one data row", headerOnly.Reason)

	wide := CheckStructure([]byte(strings.Repeat("c,", MaxColumns) + "c\n" + "1\n"))
	assert.False(t, wide.Valid)
	assert.Contains(t, wide.Reason, "Too many columns")
}

func TestIsDangerous(t *testing.T) {
	dangerous := []string{
		"=SUM(A1:A2)",
		"=cmd(",
		"+cmd|'/C calc'",
		"@SUM(1)",
		"javascript:alert(1)",
		"JavaScript:void(0)",
		"<script>alert(1)</script>",
		`<img src=x onerror=alert(1)>`,
	}
	for _, cell := range dangerous {
		assert.True(t, IsDangerous(cell), cell)
	}

	safe := []string{
		"-5",
		"+7",
		"=",
		"alice@example.com",
		"a < b",
		"plain text",
		"42.5",
	}
	for _, cell := range safe {
		assert.False(t, IsDangerous(cell), cell)
	}
}

func TestScanContent(t *testing.T) {
	content := "name,formula\nalice,=SUM(A1:A2)\n\"=HYPERLINK(x)\",ok\nbob,fine\n"

	scan := ScanContent([]byte(content))
	assert.False(t, scan.Safe)
	require.Len(t, scan.Issues, 2)
	assert.Equal(t, 2, scan.Issues[0].Line)
	assert.Equal(t, 2, scan.Issues[0].Cell)
	assert.Equal(t, "=SUM(A1:A2)", scan.Issues[0].Value)
	assert.Equal(t, 3, scan.Issues[1].Line)
	assert.Equal(t, 1, scan.Issues[1].Cell)
	assert.Equal(t, "Found 2 suspicious patterns", scan.Message)
}

func TestScanContent_HeaderIgnored(t *testing.T) {
	scan := ScanContent([]byte("=SUM(A1),b\n1,2\n"))
	assert.True(t, scan.Safe)
	assert.Equal(t, "File is safe", scan.Message)
}

func TestScanContent_ReportsAtMostTen(t *testing.T) {
	var b strings.Builder
	b.WriteString("a\n")
	for i := 0; i < 20; i++ {
		b.WriteString("=SUM(1)\n")
	}

	scan := ScanContent([]byte(b.String()))
	assert.Len(t, scan.Issues, 10)
	assert.Equal(t, "Found 20 suspicious patterns", scan.Message)
}

func TestCheck_Order(t *testing.T) {
	opts := Options{ScanContent: true}

	rej := Check("data.txt", []byte("=SUM(1)"), opts)
	require.NotNil(t, rej)
	assert.Equal(t, "Invalid file type", rej.Error)

	rej = Check("data.csv", []byte("only,header\n"), opts)
	require.NotNil(t, rej)
	assert.Equal(t, "Invalid CSV structure", rej.Error)

	rej = Check("data.csv", []byte("a,b\n=SUM(1),2\n"), opts)
	require.NotNil(t, rej)
	assert.Equal(t, "Security check failed", rej.Error)
	require.Len(t, rej.FoundIssues, 1)
	assert.Contains(t, rej.FoundIssues[0], "Row 2, column 1")

	assert.Nil(t, Check("data.csv", []byte("a,b\n1,2\n"), opts))
}

func TestCheck_ScanDisabled(t *testing.T) {
	assert.Nil(t, Check("data.csv", []byte("a,b\n=SUM(1),2\n"), Options{}))
}

func TestInspect(t *testing.T) {
	report := Inspect("../evil/da$ta.csv", []byte("a,b\n1,2\n"), Options{ScanContent: true})

	assert.Equal(t, "data.csv", report.Filename)
	assert.True(t, report.ExtensionOK)
	assert.True(t, report.SizeOK)
	assert.True(t, report.Structure.Valid)
	assert.True(t, report.SecurityScan.Safe)
	assert.Len(t, report.FileHash, 64)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "report 2024.csv", SanitizeFilename(`C:\Users\me\report 2024.csv`))
	assert.Equal(t, "ab.csv", SanitizeFilename("a<>b.csv"))

	long := strings.Repeat("x", 150) + ".csv"
	assert.Equal(t, strings.Repeat("x", 100)+".csv", SanitizeFilename(long))
}
