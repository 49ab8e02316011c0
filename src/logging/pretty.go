package logging

import (
	"encoding/json"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ansiReset    = "\033[0m"
	ansiBold     = "\033[1m"
	ansiRed      = "\033[31m"
	ansiBlue     = "\033[34m"
	ansiGray     = "\033[37m"
	ansiBgRed    = "\033[41m"
	ansiBgYellow = "\033[43m"
	ansiBgBlue   = "\033[44m"
)

func init() {
	if runtime.GOOS == "windows" {
		ansiReset, ansiBold, ansiRed, ansiBlue, ansiGray = "", "", "", "", ""
		ansiBgRed, ansiBgYellow, ansiBgBlue = "", "", ""
	}
}

// PrettyZerologWriter turns zerolog's JSON lines into something readable in a
// terminal. Used in dev only.
type PrettyZerologWriter struct {
	Out io.Writer

	wd                  string
	wasLastLogMultiline bool
}

type prettyLogEntry struct {
	Timestamp  string
	Level      string
	Message    string
	Error      string
	StackTrace []interface{}

	OtherFields []prettyField
}

type prettyField struct {
	Name  string
	Value interface{}
}

func levelColor(level string) string {
	switch level {
	case "trace", "debug":
		return ansiGray
	case "info":
		return ansiBgBlue
	case "warn":
		return ansiBgYellow
	default:
		return ansiBgRed
	}
}

func NewPrettyZerologWriter() *PrettyZerologWriter {
	wd, _ := os.Getwd()
	return &PrettyZerologWriter{
		Out: os.Stderr,
		wd:  wd,
	}
}

func (w *PrettyZerologWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	err := json.Unmarshal(p, &fields)
	if err != nil {
		return w.Out.Write(p)
	}

	var entry prettyLogEntry
	for name, val := range fields {
		switch name {
		case zerolog.TimestampFieldName:
			entry.Timestamp, _ = val.(string)
		case zerolog.LevelFieldName:
			entry.Level, _ = val.(string)
		case zerolog.MessageFieldName:
			entry.Message, _ = val.(string)
		case zerolog.ErrorFieldName:
			entry.Error, _ = val.(string)
		case zerolog.ErrorStackFieldName:
			entry.StackTrace, _ = val.([]interface{})
		default:
			entry.OtherFields = append(entry.OtherFields, prettyField{Name: name, Value: val})
		}
	}

	sort.Slice(entry.OtherFields, func(i, j int) bool {
		return entry.OtherFields[i].Name < entry.OtherFields[j].Name
	})

	isMultiline := entry.Error != "" || entry.StackTrace != nil || entry.OtherFields != nil

	var b strings.Builder
	if isMultiline || w.wasLastLogMultiline {
		b.WriteString("---------------------------------------\n")
	}
	b.WriteString(entry.Timestamp)
	b.WriteString(" ")
	if entry.Level != "" {
		b.WriteString(levelColor(entry.Level) + ansiBold + strings.ToUpper(entry.Level) + ansiReset + ": ")
	}
	b.WriteString(entry.Message)
	b.WriteString("\n")
	if entry.Error != "" {
		b.WriteString("  " + ansiBold + ansiRed + "ERROR:" + ansiReset + " " + entry.Error + "\n")
	}
	if len(entry.OtherFields) > 0 {
		b.WriteString("  " + ansiBold + ansiBlue + "Fields:" + ansiReset + "\n")
		for _, field := range entry.OtherFields {
			valuePretty, _ := json.MarshalIndent(field.Value, "    ", "  ")
			b.WriteString("    " + field.Name + ": " + string(valuePretty) + "\n")
		}
	}
	if entry.StackTrace != nil {
		b.WriteString("  " + ansiBold + ansiBlue + "Stack trace:" + ansiReset + "\n")
		for _, frame := range entry.StackTrace {
			frameMap, ok := frame.(map[string]interface{})
			if !ok {
				continue
			}
			file, _ := frameMap["file"].(string)
			function, _ := frameMap["function"].(string)
			line, _ := frameMap["line"].(float64)
			file = strings.Replace(file, w.wd, ".", 1)

			b.WriteString("    " + function + " (" + file + ":" + strconv.Itoa(int(line)) + ")\n")
		}
	}

	w.wasLastLogMultiline = isMultiline

	if _, err := io.WriteString(w.Out, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}
