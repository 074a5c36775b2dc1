package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, original_file_name, original_file_size, conversion_type, status, progress, options, converted_files, compressed_file_name, compressed_file_size, audio_removed, audio_removed_file, poster_file_name, poster_file_size, error_message, worker_id, created_at, start_time, end_time, expires_at, last_heartbeat, updated_at"

// timeLayout is fixed width so lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type artifactRecord struct {
	Format   string `json:"format,omitempty"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// resultColumns is the per-kind column form of a StepResult list.
type resultColumns struct {
	convertedFiles   any
	compressedName   any
	compressedSize   any
	audioRemoved     int
	audioRemovedFile any
	posterName       any
	posterSize       any
}

func splitResults(results []StepResult) (resultColumns, error) {
	var cols resultColumns
	var converted []artifactRecord
	for _, r := range results {
		switch r.Kind {
		case KindAudioRemoved:
			payload, err := json.Marshal(artifactRecord{FileName: r.FileName, FileSize: r.Size})
			if err != nil {
				return cols, fmt.Errorf("encode audio removed file: %w", err)
			}
			cols.audioRemoved = 1
			cols.audioRemovedFile = string(payload)
		case KindCompressed:
			cols.compressedName = r.FileName
			cols.compressedSize = r.Size
		case KindConverted:
			converted = append(converted, artifactRecord{Format: r.Format, FileName: r.FileName, FileSize: r.Size})
		case KindPoster:
			cols.posterName = r.FileName
			cols.posterSize = r.Size
		default:
			return cols, fmt.Errorf("unknown step kind %q", r.Kind)
		}
	}
	if len(converted) > 0 {
		payload, err := json.Marshal(converted)
		if err != nil {
			return cols, fmt.Errorf("encode converted files: %w", err)
		}
		cols.convertedFiles = string(payload)
	}
	return cols, nil
}

// assembleResults rebuilds results in pipeline order.
func assembleResults(convertedJSON, compressedName sql.NullString, compressedSize sql.NullInt64,
	audioRemoved sql.NullInt64, audioRemovedJSON, posterName sql.NullString, posterSize sql.NullInt64,
) ([]StepResult, error) {
	var results []StepResult
	if audioRemoved.Int64 != 0 && audioRemovedJSON.String != "" {
		var rec artifactRecord
		if err := json.Unmarshal([]byte(audioRemovedJSON.String), &rec); err != nil {
			return nil, fmt.Errorf("decode audio removed file: %w", err)
		}
		results = append(results, StepResult{Kind: KindAudioRemoved, FileName: rec.FileName, Size: rec.FileSize})
	}
	if compressedName.String != "" {
		results = append(results, StepResult{Kind: KindCompressed, FileName: compressedName.String, Size: compressedSize.Int64})
	}
	if convertedJSON.String != "" {
		var recs []artifactRecord
		if err := json.Unmarshal([]byte(convertedJSON.String), &recs); err != nil {
			return nil, fmt.Errorf("decode converted files: %w", err)
		}
		for _, rec := range recs {
			results = append(results, StepResult{Kind: KindConverted, Format: rec.Format, FileName: rec.FileName, Size: rec.FileSize})
		}
	}
	if posterName.String != "" {
		results = append(results, StepResult{Kind: KindPoster, FileName: posterName.String, Size: posterSize.Int64})
	}
	return results, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job              Job
		statusStr        string
		optionsJSON      string
		convertedJSON    sql.NullString
		compressedName   sql.NullString
		compressedSize   sql.NullInt64
		audioRemoved     sql.NullInt64
		audioRemovedJSON sql.NullString
		posterName       sql.NullString
		posterSize       sql.NullInt64
		errorMessage     sql.NullString
		workerID         sql.NullString
		createdRaw       string
		startRaw         sql.NullString
		endRaw           sql.NullString
		expiresRaw       string
		heartbeatRaw     sql.NullString
		updatedRaw       string
	)

	if err := scanner.Scan(
		&job.ID,
		&job.OriginalFileName,
		&job.OriginalFileSize,
		&job.ConversionType,
		&statusStr,
		&job.Progress,
		&optionsJSON,
		&convertedJSON,
		&compressedName,
		&compressedSize,
		&audioRemoved,
		&audioRemovedJSON,
		&posterName,
		&posterSize,
		&errorMessage,
		&workerID,
		&createdRaw,
		&startRaw,
		&endRaw,
		&expiresRaw,
		&heartbeatRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(statusStr)
	job.ErrorMessage = errorMessage.String
	job.WorkerID = workerID.String
	if err := json.Unmarshal([]byte(optionsJSON), &job.Options); err != nil {
		return nil, fmt.Errorf("decode options for job %s: %w", job.ID, err)
	}
	results, err := assembleResults(convertedJSON, compressedName, compressedSize, audioRemoved, audioRemovedJSON, posterName, posterSize)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	job.Results = results

	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(expiresRaw); err == nil {
		job.ExpiresAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	job.StartedAt = parseNullableTime(startRaw)
	job.EndedAt = parseNullableTime(endRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return &job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}
