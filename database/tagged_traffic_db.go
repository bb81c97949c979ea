package database

import (
	"fmt"
	"vanisher/models"
)

// InsertTaggedTraffic records one tagged response in the tagged_traffic table.
func InsertTaggedTraffic(entry models.TaggedTraffic) error {
	stmt, err := DB.Prepare(`INSERT INTO tagged_traffic
        (id, timestamp, host, path, matched_rule, status_code, original_content_type, is_https)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert tagged traffic statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(entry.ID, entry.Timestamp, entry.Host, entry.Path,
		entry.MatchedRule, entry.StatusCode, entry.OriginalContentType, entry.IsHTTPS)
	if err != nil {
		return fmt.Errorf("executing insert tagged traffic statement: %w", err)
	}
	return nil
}

// GetTaggedTrafficPaginated returns tagged traffic entries newest first,
// along with the total record count for the UI pager.
func GetTaggedTrafficPaginated(limit, offset int) ([]models.TaggedTraffic, int64, error) {
	var totalRecords int64
	if err := DB.QueryRow("SELECT COUNT(*) FROM tagged_traffic").Scan(&totalRecords); err != nil {
		return nil, 0, fmt.Errorf("counting tagged traffic entries: %w", err)
	}

	var entries []models.TaggedTraffic
	if totalRecords == 0 {
		return entries, 0, nil
	}

	rows, err := DB.Query(`SELECT id, timestamp, host, path, matched_rule, status_code, original_content_type, is_https
                           FROM tagged_traffic ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, totalRecords, fmt.Errorf("querying tagged traffic: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.TaggedTraffic
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Host, &e.Path, &e.MatchedRule,
			&e.StatusCode, &e.OriginalContentType, &e.IsHTTPS); err != nil {
			return nil, totalRecords, fmt.Errorf("scanning tagged traffic row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, totalRecords, rows.Err()
}

// ClearTaggedTraffic empties the tagged_traffic table.
func ClearTaggedTraffic() (int64, error) {
	res, err := DB.Exec("DELETE FROM tagged_traffic")
	if err != nil {
		return 0, fmt.Errorf("clearing tagged traffic: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
