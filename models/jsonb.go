package models

import (
	"database/sql/driver"
	"encoding/json"
)

// scanJSONB decodes a JSONB column into dest. pgx hands JSONB back as
// []byte or string depending on the query path; SQLite stores it as a blob
func scanJSONB(value interface{}, dest interface{}) (bool, error) {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return false, nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return false, nil
	}

	if len(bytes) == 0 {
		return false, nil
	}

	return true, json.Unmarshal(bytes, dest)
}

// StringList is a list of strings stored as a JSONB array
type StringList []string

// Value implements driver.Valuer for JSONB
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner for JSONB
func (l *StringList) Scan(value interface{}) error {
	var out []string
	ok, err := scanJSONB(value, &out)
	if err != nil {
		return err
	}
	if !ok || out == nil {
		*l = make(StringList, 0)
		return nil
	}
	*l = out
	return nil
}
