package meeting

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Document is a loosely typed meeting document, as decoded from JSON.
type Document map[string]interface{}

// field aliases, canonical name first
var (
	idKeys       = []string{"id", "_id"}
	studentKeys  = []string{"studentId", "student"}
	facultyKeys  = []string{"facultyId", "faculty", "guideId", "guide"}
	projectKeys  = []string{"projectId", "project"}
	numberKeys   = []string{"meetingNumber", "number"}
	dateKeys     = []string{"scheduledDate", "date"}
	summaryKeys  = []string{"meetingSummary", "summary", "notes"}
	pointsKeys   = []string{"studentPoints", "points"}
	remarksKeys  = []string{"guideRemarks", "remarks"}
	typeKeys     = []string{"meetingType", "type"}
	durationKeys = []string{"duration"}

	timeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
)

// DecodeDocuments decodes a JSON array of meeting documents.
// A JSON object carrying the array under "meetings" or "data" is accepted as well.
func DecodeDocuments(data []byte) ([]Document, error) {
	var docs []Document
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"meetings", "data"} {
		if raw, ok := wrapped[key]; ok {
			if err := json.Unmarshal(raw, &docs); err != nil {
				return nil, err
			}
			return docs, nil
		}
	}
	return nil, nil
}

// Normalize maps a document to the canonical Meeting.
// ok is false when the document has neither a student nor a date: such records are dropped.
func Normalize(doc Document) (m Meeting, ok bool) {
	if doc == nil {
		return Meeting{}, false
	}

	var studentName, facultyName string
	m.ID, _ = refOf(first(doc, idKeys))
	m.StudentID, studentName = refOf(first(doc, studentKeys))
	m.FacultyID, facultyName = refOf(first(doc, facultyKeys))
	m.ProjectID, _ = refOf(first(doc, projectKeys))

	date, hasDate := timeOf(first(doc, dateKeys))
	if m.StudentID == "" && !hasDate {
		return Meeting{}, false
	}
	m.ScheduledDate = date

	m.Title = stringOf(doc["title"])
	m.StudentName = firstNonEmpty(stringOf(doc["studentName"]), studentName)
	m.FacultyName = firstNonEmpty(stringOf(doc["facultyName"]), stringOf(doc["guideName"]), facultyName)

	if n, ok := intOf(first(doc, numberKeys)); ok {
		m.MeetingNumber = n
	}
	if d, ok := intOf(first(doc, durationKeys)); ok && d > 0 {
		m.Duration = d
	} else {
		m.Duration = DefaultDuration
	}

	m.MeetingType = Type(strings.ToLower(stringOf(first(doc, typeKeys))))
	if !m.MeetingType.valid() {
		m.MeetingType = TypeProgressReview
	}
	m.Status = Status(strings.ToLower(stringOf(doc["status"])))
	if !m.Status.persisted() {
		m.Status = StatusScheduled
	}

	m.MeetingSummary = stringOf(first(doc, summaryKeys))
	m.StudentPoints = stringOf(first(doc, pointsKeys))
	m.GuideRemarks = stringOf(first(doc, remarksKeys))

	m.CreatedAt, _ = timeOf(doc["createdAt"])
	m.UpdatedAt, _ = timeOf(doc["updatedAt"])
	return m, true
}

// NormalizeAll normalizes docs, dropping invalid ones.
func NormalizeAll(docs []Document) []Meeting {
	meetings := make([]Meeting, 0, len(docs))
	for _, doc := range docs {
		if m, ok := Normalize(doc); ok {
			meetings = append(meetings, m)
		}
	}
	return meetings
}

func first(doc Document, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// refOf resolves a reference that is either a bare id or an embedded object.
// Embedded objects carry their id under "_id", "id" or "$oid", and optionally a "name".
func refOf(v interface{}) (id, name string) {
	switch val := v.(type) {
	case map[string]interface{}:
		for _, k := range []string{"_id", "id", "$oid"} {
			if inner, ok := val[k]; ok && inner != nil {
				id, _ = refOf(inner)
				if id != "" {
					break
				}
			}
		}
		return id, stringOf(val["name"])
	case Document:
		return refOf(map[string]interface{}(val))
	default:
		return stringOf(v), ""
	}
}

func stringOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func intOf(v interface{}) (int, bool) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case int:
		return val, true
	case json.Number:
		n, err := val.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	default:
		return 0, false
	}
}

// timeOf parses RFC 3339 like strings and unix timestamps in milliseconds.
func timeOf(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), !t.IsZero()
			}
		}
	case float64:
		if val > 0 {
			return time.UnixMilli(int64(val)).UTC(), true
		}
	case time.Time:
		return val.UTC(), !val.IsZero()
	case map[string]interface{}: // {"$date": ...}
		return timeOf(val["$date"])
	}
	return time.Time{}, false
}
