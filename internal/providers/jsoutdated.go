package providers

import (
	"encoding/json"
	"strings"
)

// outdatedEntry is one value in an `outdated --json` object.
type outdatedEntry struct {
	Current string `json:"current"`
	Wanted  string `json:"wanted"`
	Latest  string `json:"latest"`
}

// parseOutdatedJSON parses the JSON object emitted by npm and pnpm
// outdated commands: package name keys, current/wanted/latest values.
// The decoder walks the token stream so records come out in the order
// the manager printed them. Anything that fails to decode yields an
// empty list; a broken payload and an empty one are indistinguishable
// here.
func parseOutdatedJSON(raw, source string) []UpdateRecord {
	dec := json.NewDecoder(strings.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var records []UpdateRecord
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil
		}

		var entry outdatedEntry
		if err := dec.Decode(&entry); err != nil {
			return nil
		}

		if entry.Current == "" || entry.Latest == "" {
			continue
		}
		if strings.EqualFold(entry.Current, entry.Latest) {
			continue
		}

		records = append(records, UpdateRecord{
			ID:             name,
			Name:           name,
			CurrentVersion: entry.Current,
			NewVersion:     entry.Latest,
			Status:         StatusAvailable,
			Source:         source,
		})
	}
	return records
}
