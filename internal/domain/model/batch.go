package model

// TrailPath is the collection path trail batches are posted to.
const TrailPath = "/trail"

// TrailBatch is the wire body of POST /trail. Trail is owned by the
// batch; nothing else holds a reference to it after construction.
type TrailBatch struct {
	SessionID string   `json:"session_id"`
	Timestamp string   `json:"timestamp"`
	Trail     []Sample `json:"trail"`
	URL       string   `json:"url"`
}
