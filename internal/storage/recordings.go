package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/errs"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/model"
)

// RecordingIndex lists and resolves finished recordings by scanning the
// upload directory and joining against token records for participant
// metadata.
type RecordingIndex struct {
	dir    string
	tokens *TokenStore
}

// NewRecordingIndex creates the upload directory if needed.
func NewRecordingIndex(dir string, tokens *TokenStore) (*RecordingIndex, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recordings: mkdir %s: %w", dir, err)
	}
	return &RecordingIndex{dir: dir, tokens: tokens}, nil
}

// Dir returns the upload directory path.
func (r *RecordingIndex) Dir() string { return r.dir }

// List returns all *.wav files in the upload directory, newest first,
// with participant info looked up from completed token records.
func (r *RecordingIndex) List() ([]model.Recording, error) {
	tokens, err := r.tokens.List()
	if err != nil {
		return nil, err
	}
	byFile := make(map[string]*model.Token, len(tokens))
	for i := range tokens {
		if tokens[i].RecordingFile != "" {
			byFile[tokens[i].RecordingFile] = &tokens[i]
		}
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("recordings: read dir: %w", err)
	}
	recordings := make([]model.Recording, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		rec := model.Recording{
			Filename:        e.Name(),
			SizeBytes:       fi.Size(),
			Created:         fi.ModTime().UTC(),
			ParticipantName: "Unknown",
		}
		if tok := byFile[e.Name()]; tok != nil {
			rec.ParticipantName = tok.Name
			rec.ParticipantEmail = tok.Email
			rec.SessionName = tok.SessionName
			rec.DurationSec = tok.RecordingDuration
		}
		recordings = append(recordings, rec)
	}
	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].Created.After(recordings[j].Created)
	})
	return recordings, nil
}

// Resolve maps a recording filename to its path on disk. Anything that
// is not a plain *.wav name inside the upload directory is rejected.
func (r *RecordingIndex) Resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".wav") {
		return "", errs.ErrRecordingNotFound
	}
	path := filepath.Join(r.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", errs.ErrRecordingNotFound
	}
	return path, nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeName(s string) string {
	s = unsafeNameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	if len(s) > 30 {
		s = s[:30]
	}
	if s == "" {
		s = "unnamed"
	}
	return s
}

// RecordingFilename builds the deterministic output filename for one
// participant session: <session>_<participant>_<YYYYMMDD_HHMMSS>.wav.
func RecordingFilename(sessionName, participantName string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s.wav",
		safeName(sessionName), safeName(participantName), t.UTC().Format("20060102_150405"))
}
