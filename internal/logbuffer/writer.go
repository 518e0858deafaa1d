package logbuffer

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Writer turns zerolog JSON lines into buffer entries. It is meant to sit
// next to the console writer in a zerolog.MultiLevelWriter.
type Writer struct {
	Buffer *RingBuffer
}

func (w Writer) Write(p []byte) (int, error) {
	w.Buffer.Add(parse(strings.TrimSuffix(string(p), "\n")))
	return len(p), nil
}

func parse(line string) LogEntry {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		return LogEntry{Time: time.Now(), Message: line}
	}

	entry := LogEntry{Time: time.Now()}
	if ts, ok := parsed[zerolog.TimestampFieldName].(string); ok {
		if t, err := time.Parse(zerolog.TimeFieldFormat, ts); err == nil {
			entry.Time = t
		}
	}
	entry.Level, _ = parsed[zerolog.LevelFieldName].(string)
	entry.Message, _ = parsed[zerolog.MessageFieldName].(string)
	entry.Error, _ = parsed[zerolog.ErrorFieldName].(string)

	for k, v := range parsed {
		switch k {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.ErrorFieldName:
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]any)
		}
		entry.Fields[k] = v
	}
	return entry
}
