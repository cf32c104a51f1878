/*
The incident journal requires the following table:

CREATE TABLE `incident` (
	`id` INT UNSIGNED NOT NULL AUTO_INCREMENT,
	`kind` VARCHAR(64) NOT NULL,
	`asset_id` VARCHAR(128) NOT NULL,
	`seller` VARCHAR(128) NOT NULL,
	`buyer` VARCHAR(128) NOT NULL DEFAULT '',
	`amount` BIGINT UNSIGNED NOT NULL DEFAULT 0,
	`receipt` VARCHAR(256) NOT NULL DEFAULT '',
	`unconfirmed` TINYINT(1) NOT NULL DEFAULT 0,
	`attempts` INT UNSIGNED NOT NULL DEFAULT 0,
	`resolved` TINYINT(1) NOT NULL DEFAULT 0,
	`created_at` BIGINT UNSIGNED NOT NULL,
	`resolved_at` BIGINT UNSIGNED NOT NULL DEFAULT 0,
	PRIMARY KEY (`id`),
	KEY `idx_resolved` (`resolved`)
) ENGINE=InnoDB DEFAULT CHARSET=utf8;
*/

package db

import (
	"database/sql"
	"time"
)

// Incident kinds.
const (
	IncidentTransferFailed   = "transfer_failed_after_listing"
	IncidentPaidNotDelivered = "paid_not_delivered"
)

// Incident db model. One row per partial-effect failure: a workflow
// step failed after an earlier step already took effect remotely.
type Incident struct {
	ID      uint
	Kind    string
	AssetID string
	Seller  string
	Buyer   string
	Amount  uint64
	Receipt string
	// Unconfirmed marks incidents whose payment outcome is unknown
	// (transfer timed out). Those must not be replayed automatically.
	Unconfirmed bool
	Attempts    uint
	Resolved    bool
	CreatedAt   uint64
	ResolvedAt  uint64
}

// InsertIncident journals a new partial-effect incident.
func InsertIncident(inc *Incident) error {
	query := `INSERT INTO incident
		(kind, asset_id, seller, buyer, amount, receipt, unconfirmed, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return transact(func(tx *sql.Tx) error {
		result, err := tx.Exec(query,
			inc.Kind,
			inc.AssetID,
			inc.Seller,
			inc.Buyer,
			inc.Amount,
			inc.Receipt,
			inc.Unconfirmed,
			inc.Attempts,
			uint64(time.Now().Unix()),
		)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		inc.ID = uint(id)
		return nil
	})
}

// GetOpenIncidents returns all unresolved incidents, oldest first.
func GetOpenIncidents() ([]*Incident, error) {
	query := `SELECT id, kind, asset_id, seller, buyer, amount, receipt,
		unconfirmed, attempts, resolved, created_at, resolved_at
		FROM incident WHERE resolved = 0 ORDER BY id ASC`

	rows, err := wrappedQuery(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incidents := []*Incident{}

	for rows.Next() {
		inc := Incident{}
		err := rows.Scan(
			&inc.ID,
			&inc.Kind,
			&inc.AssetID,
			&inc.Seller,
			&inc.Buyer,
			&inc.Amount,
			&inc.Receipt,
			&inc.Unconfirmed,
			&inc.Attempts,
			&inc.Resolved,
			&inc.CreatedAt,
			&inc.ResolvedAt,
		)
		if err != nil {
			return nil, err
		}

		incidents = append(incidents, &inc)
	}

	return incidents, rows.Err()
}

// ResolveIncident marks an incident as reconciled.
func ResolveIncident(id uint) error {
	query := `UPDATE incident SET resolved = 1, resolved_at = ? WHERE id = ?`

	_, err := wrappedExec(query, uint64(time.Now().Unix()), id)
	return err
}

// BumpIncidentAttempts records one more failed replay pass.
func BumpIncidentAttempts(id uint) (uint, error) {
	query := `UPDATE incident SET attempts = attempts + 1 WHERE id = ?`

	if _, err := wrappedExec(query, id); err != nil {
		return 0, err
	}

	attempts := uint(0)
	rows, err := wrappedQuery(`SELECT attempts FROM incident WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&attempts); err != nil {
			return 0, err
		}
	}

	return attempts, rows.Err()
}

// Journal is the db backed incident sink handed to the workflow layer.
type Journal struct{}

// Record journals an incident.
func (Journal) Record(inc *Incident) error {
	return InsertIncident(inc)
}
