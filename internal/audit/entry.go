package audit

// TimestampFormat is the wall-clock format used in audit entries.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Entry is one line in the hash-chained JSONL admission audit log.
// All fields are scalars to guarantee deterministic json.Marshal field
// order for reproducible hashing.
type Entry struct {
	Timestamp  string `json:"ts"`
	Client     string `json:"client"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Decision   string `json:"decision"`
	Reason     string `json:"reason,omitempty"`
	Tag        string `json:"tag,omitempty"`
	ConfigHash string `json:"config_hash"`
	PrevHash   string `json:"prev_hash"`
}
