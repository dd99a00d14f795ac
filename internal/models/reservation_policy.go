/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ReservationPolicy is one stored reservation document for a node. Only the
// canonical rule text is persisted; the parsed schedule is always re-derived
// from Format after load and is never written back.
type ReservationPolicy struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	NodeName string `gorm:"type:varchar(255);index:idx_reservation_policies_node;not null" json:"node_name"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Format   string `gorm:"type:text;not null" json:"format"`
	// No column default here: gorm omits zero-value fields that carry a
	// default tag on insert, which would turn a deliberately inactive
	// policy into an active one.
	Active bool `gorm:"not null" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ReservationPolicy) TableName() string {
	return "reservation_policies"
}
