package models

import "strconv"

// Dataset is the client's read-only projection of a CSV-derived dataset
// tracked by the quality service.
type Dataset struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Version      int    `json:"version"`
	UploadDate   string `json:"upload_date,omitempty"` // service emits naive timestamps; kept verbatim
	TotalRows    int    `json:"total_rows"`
	TotalColumns int    `json:"total_columns"`
}

// Key returns the identity used to tag cached panel state.
func (d *Dataset) Key() string {
	if d == nil {
		return ""
	}
	return strconv.FormatInt(d.ID, 10)
}

// VersionList is one lineage: the root dataset and every version derived from it,
// ordered by version number.
type VersionList struct {
	DatasetID int64     `json:"dataset_id"`
	RootID    int64     `json:"root_id"`
	Versions  []Dataset `json:"versions"`
}

// Find returns the version with the given dataset id.
func (l *VersionList) Find(id int64) (*Dataset, bool) {
	if l == nil {
		return nil, false
	}
	for i := range l.Versions {
		if l.Versions[i].ID == id {
			return &l.Versions[i], true
		}
	}
	return nil, false
}

// NewVersionResponse is returned by POST /datasets/{id}/new-version.
type NewVersionResponse struct {
	Message    string  `json:"message"`
	RootID     int64   `json:"root_id"`
	NewDataset Dataset `json:"new_dataset"`
}

// DeleteResponse is returned by DELETE /datasets/{id}.
type DeleteResponse struct {
	Message   string `json:"message"`
	DeletedID int64  `json:"deleted_id"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status string `json:"status"`
}
