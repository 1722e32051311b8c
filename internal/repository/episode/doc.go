// Package episode persists finished alert episodes.
//
// The FileJournal appends one protojson-encoded record per line and can read
// the whole journal back for reporting. Monitor state itself is never stored.
package episode
