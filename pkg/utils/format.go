package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"remoteops/internal/models"
)

func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// WriteJSON writes data to w as indented JSON followed by a newline.
func WriteJSON(w io.Writer, data interface{}) error {
	jsonOutput, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(jsonOutput))
	return err
}

func PrintJSON(data interface{}) error {
	return WriteJSON(os.Stdout, data)
}

// PrintError writes an ErrorResponse for command to w.
func PrintError(w io.Writer, err error, command string) {
	errorResp := models.ErrorResponse{
		Error:     err.Error(),
		Timestamp: FormatTime(time.Now()),
		Command:   command,
	}
	if err := WriteJSON(w, errorResp); err != nil {
		log.WithError(err).Error("Failed to print error in JSON format")
		fmt.Fprintln(w, "Error: ", errorResp)
	}
}

func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// FormatDuration rounds d to milliseconds for display.
func FormatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
