package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// StringArray stores a []string as JSON text on every driver. Rows written by
// postgres tooling as TEXT[] literals ({a,b}) are still readable.
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return errors.New("StringArray: unsupported scan type")
	}

	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		*a = StringArray{}
		return nil
	case strings.HasPrefix(raw, "["):
		return json.Unmarshal([]byte(raw), (*[]string)(a))
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		*a = splitPostgresArray(raw[1 : len(raw)-1])
		return nil
	default:
		*a = StringArray{raw}
		return nil
	}
}

// splitPostgresArray handles the unquoted and double-quoted element forms.
func splitPostgresArray(body string) StringArray {
	out := StringArray{}
	if body == "" {
		return out
	}
	for _, part := range strings.Split(body, ",") {
		out = append(out, strings.Trim(part, `"`))
	}
	return out
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}
