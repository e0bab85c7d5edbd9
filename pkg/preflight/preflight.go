// Package preflight checks CSV files locally before they are uploaded.
package preflight

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

// Limits mirrored from the service.
const (
	DefaultMaxSizeMB = 100
	MaxColumns       = 500
	MaxRows          = 1_000_000

	// scanLines bounds how many lines the content scan reads, header included.
	scanLines = 100
	// maxReported bounds the suspicious cells reported.
	maxReported = 10
	// maxValueLen bounds the echoed cell value.
	maxValueLen = 50
)

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^=\w+\(`),          // =SUM( =CMD(
	regexp.MustCompile(`^\+cmd\|`),         // +cmd|'/C calc'
	regexp.MustCompile(`^@\w+\(`),          // @SUM(
	regexp.MustCompile(`(?i)^javascript:`), // javascript:
	regexp.MustCompile(`(?i)^<script`),     // <script
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s\-.]`)

// Options controls which checks run.
type Options struct {
	MaxSizeBytes int64 // zero means DefaultMaxSizeMB
	ScanContent  bool
}

func (o Options) maxSize() int64 {
	if o.MaxSizeBytes > 0 {
		return o.MaxSizeBytes
	}
	return DefaultMaxSizeMB * 1024 * 1024
}

// Rejection explains why a file was refused. Its fields match the
// diagnostic object the service sends for a refused upload.
type Rejection struct {
	Error       string
	Reason      string
	Explanation string
	FoundIssues []string
	HowToFix    string
}

// HasExtension reports whether filename ends in .csv, case-insensitively.
func HasExtension(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

// CheckExtension rejects anything but a .csv file. It never reads the file.
func CheckExtension(filename string) *Rejection {
	if HasExtension(filename) {
		return nil
	}
	return &Rejection{
		Error:       "Invalid file type",
		Reason:      fmt.Sprintf("File '%s' is not a CSV file", filepath.Base(filename)),
		Explanation: "Only .csv files are supported",
		HowToFix:    "Save your file as CSV format and try again",
	}
}

// CheckSize rejects files larger than the configured limit.
func CheckSize(size int64, opts Options) *Rejection {
	if size <= opts.maxSize() {
		return nil
	}
	limitMB := opts.maxSize() / (1024 * 1024)
	return &Rejection{
		Error:       "File too large",
		Reason:      fmt.Sprintf("File size exceeds %dMB limit", limitMB),
		Explanation: fmt.Sprintf("Maximum allowed file size is %dMB", limitMB),
		HowToFix:    "Split your file into smaller parts and upload separately",
	}
}

// Inspect runs every check against content and returns the same report the
// service's security-check endpoint produces.
func Inspect(filename string, content []byte, opts Options) models.SecurityReport {
	sum := sha256.Sum256(content)

	report := models.SecurityReport{
		Filename:    SanitizeFilename(filename),
		SizeMB:      math.Round(float64(len(content))/1024/1024*1000) / 1000,
		SizeOK:      int64(len(content)) <= opts.maxSize(),
		ExtensionOK: HasExtension(filename),
		Structure:   CheckStructure(content),
		FileHash:    hex.EncodeToString(sum[:]),
	}
	if opts.ScanContent {
		report.SecurityScan = ScanContent(content)
	} else {
		report.SecurityScan = models.ContentScan{Safe: true, Message: "Content scan disabled"}
	}
	return report
}

// Check runs the checks in the order the service applies them and returns
// the first rejection, or nil when the file may be uploaded.
func Check(filename string, content []byte, opts Options) *Rejection {
	if rej := CheckExtension(filename); rej != nil {
		return rej
	}
	if rej := CheckSize(int64(len(content)), opts); rej != nil {
		return rej
	}

	if structure := CheckStructure(content); !structure.Valid {
		return &Rejection{
			Error:       "Invalid CSV structure",
			Reason:      structure.Reason,
			Explanation: "The file does not appear to be a valid CSV",
			HowToFix: "Make sure your file: " +
				"1) Has a header row, " +
				"2) Has at least one data row, " +
				"3) Uses comma as separator, " +
				"4) Is saved in UTF-8 encoding",
		}
	}

	if !opts.ScanContent {
		return nil
	}

	scan := ScanContent(content)
	if scan.Safe {
		return nil
	}

	found := make([]string, 0, len(scan.Issues))
	for _, cell := range scan.Issues {
		found = append(found, fmt.Sprintf("Row %d, column %d: '%s' looks like a dangerous formula or script",
			cell.Line, cell.Cell, cell.Value))
	}
	return &Rejection{
		Error:  "Security check failed",
		Reason: "Your CSV file contains potentially dangerous content",
		Explanation: "CSV files can contain formula injections (e.g. =SUM(), +cmd) " +
			"or scripts (<script>, javascript:) that could be harmful. " +
			"Please remove these values and try again.",
		FoundIssues: found,
		HowToFix: "Remove or replace values starting with =FORMULA(), " +
			"+cmd|, @FORMULA(), <script>, or javascript:",
	}
}

// CheckStructure verifies there is a header and at least one data row.
func CheckStructure(content []byte) models.StructureCheck {
	var lines []string
	for _, line := range strings.Split(string(bytes.ToValidUTF8(content, []byte("�"))), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 2 {
		return models.StructureCheck{Valid: false, Reason: "CSV must have at least a header and one data row"}
	}

	header := strings.Split(lines[0], ",")
	if len(header) > MaxColumns {
		return models.StructureCheck{Valid: false, Reason: fmt.Sprintf("Too many columns (max %d)", MaxColumns)}
	}
	if len(lines)-1 > MaxRows {
		return models.StructureCheck{Valid: false, Reason: "Too many rows (max 1,000,000)"}
	}

	return models.StructureCheck{Valid: true, Columns: len(header), Rows: len(lines) - 1}
}

// ScanContent looks for formula and script injection in the first lines of
// the file, skipping the header.
func ScanContent(content []byte) models.ContentScan {
	text := string(bytes.ToValidUTF8(content, []byte("�")))
	lines := strings.Split(text, "\n")
	if len(lines) > scanLines {
		lines = lines[:scanLines]
	}

	var issues []models.SuspiciousCell
	for i, line := range lines {
		if i == 0 {
			continue
		}
		for j, cell := range strings.Split(line, ",") {
			cell = strings.Trim(strings.TrimSpace(cell), `"'`)
			if cell == "" || !IsDangerous(cell) {
				continue
			}
			issues = append(issues, models.SuspiciousCell{
				Line:  i + 1,
				Cell:  j + 1,
				Value: truncate(cell, maxValueLen),
			})
		}
	}

	scan := models.ContentScan{Safe: len(issues) == 0, Message: "File is safe"}
	if !scan.Safe {
		scan.Message = fmt.Sprintf("Found %d suspicious patterns", len(issues))
	}
	if len(issues) > maxReported {
		issues = issues[:maxReported]
	}
	scan.Issues = issues
	return scan
}

// IsDangerous reports whether a single cell value looks like a spreadsheet
// formula injection or an embedded script.
func IsDangerous(cell string) bool {
	for _, p := range dangerousPatterns {
		if p.MatchString(cell) {
			return true
		}
	}
	// libinjection only sees cells containing markup.
	if strings.ContainsAny(cell, "<>") && libinjection.IsXSS(cell) {
		return true
	}
	return false
}

// SanitizeFilename strips directories and unsafe characters from filename.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "..", "")

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if len(stem) > 100 {
		stem = stem[:100]
	}
	return stem + ext
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
