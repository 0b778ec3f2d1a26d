package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// jsonRawOrString passes a stored JSONB text through as raw JSON when it
// parses, otherwise as a plain string.
func jsonRawOrString(s string) any {
	if s == "" {
		return s
	}
	var tmp any
	if err := json.Unmarshal([]byte(s), &tmp); err == nil {
		return json.RawMessage([]byte(s))
	}
	return s
}

func nullJSON(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return jsonRawOrString(v.String)
}

func nullString(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullDate(v sql.NullTime) any {
	if !v.Valid {
		return nil
	}
	return v.Time.Format("2006-01-02")
}

func nullTimestamp(v sql.NullTime) any {
	if !v.Valid {
		return nil
	}
	return v.Time.Format(time.RFC3339)
}
