// Package reference loads and writes the trainer datasets: recorded pose
// frames keyed frame_<n> and segment lengths keyed by segment name.
package reference

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
	"github.com/khaledhikmat/fit-coach/service/config"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// Load reads the trainer frames, their precomputed lengths and the optional
// calibration guide named by the configuration.
func Load(cfgsvc config.IService) (coach.Reference, error) {
	trainer, err := LoadFrameSet(cfgsvc.GetReferenceFile())
	if err != nil {
		return coach.Reference{}, err
	}
	if len(trainer) == 0 {
		return coach.Reference{}, xerrors.Errorf("reference dataset %s has no frames", cfgsvc.GetReferenceFile())
	}

	lengths, err := LoadLengths(cfgsvc.GetReferenceLengthsFile())
	if err != nil {
		return coach.Reference{}, err
	}

	guide, err := LoadGuide(cfgsvc.GetGuideFile())
	if err != nil {
		return coach.Reference{}, err
	}

	return coach.Reference{
		Frames:  trainer.Ordered(),
		Lengths: lengths,
		Guide:   guide,
	}, nil
}

func LoadFrameSet(path string) (model.FrameSet, error) {
	var set model.FrameSet
	if err := readJSON(path, &set); err != nil {
		return nil, err
	}
	return set, nil
}

func LoadLengths(path string) (model.Lengths, error) {
	var lengths model.Lengths
	if err := readJSON(path, &lengths); err != nil {
		return nil, err
	}
	return lengths, nil
}

// LoadGuide returns the first frame of the guide dataset. An empty path or
// a missing file yields no guide.
func LoadGuide(path string) (model.Frame, error) {
	if path == "" {
		return nil, nil
	}
	set, err := LoadFrameSet(path)
	if errors.Is(err, fs.ErrNotExist) {
		lgr.Logger.Warn("calibration guide not found", slog.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	frames := set.Ordered()
	if len(frames) == 0 {
		return nil, nil
	}
	return frames[0], nil
}

func SaveFrameSet(path string, set model.FrameSet) error {
	return writeJSON(path, set)
}

func SaveLengths(path string, lengths model.Lengths) error {
	return writeJSON(path, lengths)
}

// BuildLengths computes the segment lengths of a dataset the way the coach
// does for its calibration buffer.
func BuildLengths(set model.FrameSet) model.Lengths {
	return pose.FrameSetLengths(set)
}

// FromRecording turns a pose log into a dataset. Records of other sessions
// are skipped unless session is empty. Lines that do not parse are counted
// and skipped.
func FromRecording(r io.Reader, session string) (model.FrameSet, int, error) {
	out := model.FrameSet{}
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.PoseRecord
		if err := json.Unmarshal(line, &rec); err != nil || len(rec.Keypoints) == 0 {
			skipped++
			continue
		}
		if session != "" && rec.Session != session {
			continue
		}
		out[model.FrameID(len(out))] = rec.Keypoints
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, xerrors.Errorf("reading pose log: %w", err)
	}
	return out, skipped, nil
}

// FromRecordingFile is FromRecording on a file.
func FromRecordingFile(path, session string) (model.FrameSet, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, xerrors.Errorf("opening pose log: %w", err)
	}
	defer f.Close()
	return FromRecording(f, session)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return xerrors.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
