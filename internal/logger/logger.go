package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// Info logs informational messages. Trailing arguments may be either
// printf-style values or alternating key/value pairs.
func Info(format string, args ...interface{}) {
	emit("INFO", format, args...)
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	emit("WARN", format, args...)
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	emit("ERROR", format, args...)
}

// Debug logs debug messages when LOG_LEVEL=debug
func Debug(format string, args ...interface{}) {
	if os.Getenv("LOG_LEVEL") != "debug" {
		return
	}
	emit("DEBUG", format, args...)
}

func emit(level, format string, args ...interface{}) {
	// printf-style call when the format carries verbs
	if strings.Contains(format, "%") {
		log.Printf(level+": "+format, args...)
		return
	}

	fields := pairsToFields(args)
	if os.Getenv("LOG_FORMAT") == "json" {
		entry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"level":     level,
			"message":   format,
		}
		for _, f := range fields {
			entry[f.Key] = f.Value
		}
		data, _ := json.Marshal(entry)
		log.Println(string(data))
		return
	}

	var b strings.Builder
	b.WriteString(level)
	b.WriteString(": ")
	b.WriteString(format)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	log.Println(b.String())
}

// pairsToFields interprets trailing arguments as alternating key/value pairs.
// An odd trailing argument is kept under the "extra" key rather than dropped.
func pairsToFields(args []interface{}) []Field {
	fields := make([]Field, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		fields = append(fields, Field{Key: key, Value: args[i+1]})
	}
	if len(args)%2 == 1 {
		fields = append(fields, Field{Key: "extra", Value: args[len(args)-1]})
	}
	return fields
}

// Helper functions for common field types
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Err(key string, err error) Field {
	if err == nil {
		return Field{Key: key, Value: nil}
	}
	return Field{Key: key, Value: err.Error()}
}
