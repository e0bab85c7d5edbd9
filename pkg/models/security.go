package models

// StructureCheck is the CSV structure verdict.
type StructureCheck struct {
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
	Columns int    `json:"columns,omitempty"`
	Rows    int    `json:"rows,omitempty"`
}

// SuspiciousCell is a cell flagged by the content scan.
type SuspiciousCell struct {
	Line  int    `json:"line"`
	Cell  int    `json:"cell"`
	Value string `json:"value"`
}

// ContentScan is the formula/script injection verdict.
type ContentScan struct {
	Safe    bool             `json:"safe"`
	Issues  []SuspiciousCell `json:"issues"`
	Message string           `json:"message"`
}

// SecurityReport is returned by POST /datasets/security-check.
type SecurityReport struct {
	Filename     string         `json:"filename"`
	SizeMB       float64        `json:"size_mb"`
	SizeOK       bool           `json:"size_ok"`
	ExtensionOK  bool           `json:"extension_ok"`
	Structure    StructureCheck `json:"structure"`
	SecurityScan ContentScan    `json:"security_scan"`
	FileHash     string         `json:"file_hash"`
}
