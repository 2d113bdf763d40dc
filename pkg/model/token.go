package model

import "time"

// PreviewToken is a short-lived bearer credential scoped to exactly one data
// set version. A token never authorizes access to any other version, even
// within the same data set.
type PreviewToken struct {
	ID               string    `json:"id"`
	DataSetVersionID string    `json:"data_set_version_id"`
	Label            string    `json:"label"`
	Created          time.Time `json:"created"`
	Expiry           time.Time `json:"expiry"`
}

// Active reports whether the token is still usable at the given instant.
// Expiry is exclusive: a token presented at exactly its expiry time is inert.
func (t *PreviewToken) Active(now time.Time) bool {
	return now.Before(t.Expiry)
}
