package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cognitron/cognitron/cerr"
)

// record mirrors the persistence schema of spec.md §6 exactly.
type record struct {
	Segment          string  `json:"segment"`
	Frequency        int     `json:"frequency"`
	Length           int     `json:"length"`
	Confidence       float64 `json:"confidence"`
	Entropy          float64 `json:"entropy"`
	ContextStability float64 `json:"context_stability"`
	CreatedAt        int64   `json:"created_at"`
	LastAccessed     int64   `json:"last_accessed"`
	LastModified     int64   `json:"last_modified"`
	AccessCount      int     `json:"access_count"`
	IsArchived       bool    `json:"is_archived"`
	FormedFrom       *struct {
		Left  string `json:"left"`
		Right string `json:"right"`
	} `json:"formed_from,omitempty"`
	MergeStep *int `json:"merge_step,omitempty"`
}

type contextMatrixFile struct {
	Counts            map[string]int `json:"counts"`
	TotalObservations int            `json:"total_observations"`
}

func toRecord(st *Stats) record {
	r := record{
		Segment:          st.Segment,
		Frequency:        st.Frequency,
		Length:           st.Length,
		Confidence:       st.Confidence,
		Entropy:          st.Entropy,
		ContextStability: st.ContextStability,
		CreatedAt:        st.CreatedAt.Unix(),
		LastAccessed:     st.LastAccessed.Unix(),
		LastModified:     st.LastModified.Unix(),
		AccessCount:      st.AccessCount,
		IsArchived:       st.IsArchived,
	}
	if st.FormedFrom != nil {
		r.FormedFrom = &struct {
			Left  string `json:"left"`
			Right string `json:"right"`
		}{Left: st.FormedFrom.Left, Right: st.FormedFrom.Right}
		step := st.MergeStep
		r.MergeStep = &step
	}
	return r
}

func fromRecord(r record) *Stats {
	st := &Stats{
		Segment:          r.Segment,
		Frequency:        r.Frequency,
		Length:           r.Length,
		Confidence:       r.Confidence,
		Entropy:          r.Entropy,
		ContextStability: r.ContextStability,
		CreatedAt:        time.Unix(r.CreatedAt, 0),
		LastAccessed:     time.Unix(r.LastAccessed, 0),
		LastModified:     time.Unix(r.LastModified, 0),
		AccessCount:      r.AccessCount,
		IsArchived:       r.IsArchived,
	}
	if r.FormedFrom != nil {
		st.FormedFrom = &Pair{Left: r.FormedFrom.Left, Right: r.FormedFrom.Right}
	}
	if r.MergeStep != nil {
		st.MergeStep = *r.MergeStep
	}
	return st
}

// Save writes active segments, archive, and context matrix to three files
// derived from path, rotating a timestamped backup of any prior active
// file and retaining at most MaxBackups.
func (e *Engine) Save(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(path)
}

func (e *Engine) saveLocked(path string) error {
	activePath := path + ".active.json"
	archivePath := path + ".archive.json"
	matrixPath := path + ".context.json"

	if _, err := os.Stat(activePath); err == nil {
		if err := e.backupLocked(activePath); err != nil {
			return cerr.Wrap("segment", cerr.Persistence, "backup rotation failed", err)
		}
	}

	if err := writeJSON(activePath, recordsOf(e.active)); err != nil {
		return cerr.Wrap("segment", cerr.Persistence, "write active segments failed", err)
	}
	if err := writeJSON(archivePath, recordsOf(e.archive)); err != nil {
		return cerr.Wrap("segment", cerr.Persistence, "write archive failed", err)
	}
	if err := writeJSON(matrixPath, contextMatrixFile{
		Counts:            e.matrix.counts,
		TotalObservations: e.matrix.totalObservations,
	}); err != nil {
		return cerr.Wrap("segment", cerr.Persistence, "write context matrix failed", err)
	}

	e.lastSave = time.Now()
	return nil
}

func recordsOf(m map[string]*Stats) []record {
	out := make([]record, 0, len(m))
	for _, st := range m {
		out = append(out, toRecord(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (e *Engine) backupLocked(activePath string) error {
	data, err := os.ReadFile(activePath)
	if err != nil {
		return err
	}
	backupPath := fmt.Sprintf("%s.backup.%d", activePath, time.Now().Unix())
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return err
	}
	return e.cleanupOldBackupsLocked(activePath)
}

func (e *Engine) cleanupOldBackupsLocked(activePath string) error {
	dir := "."
	if idx := strings.LastIndexByte(activePath, '/'); idx >= 0 {
		dir = activePath[:idx]
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	prefix := activePath + ".backup."
	if dir != "." {
		prefix = prefix[len(dir)+1:]
	}

	type backup struct {
		name string
		ts   int64
	}
	var backups []backup
	for _, ent := range entries {
		name := ent.Name()
		full := name
		if dir != "." {
			full = dir + "/" + name
		}
		if !strings.HasPrefix(full, activePath+".backup.") {
			continue
		}
		tsStr := full[len(activePath+".backup."):]
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		backups = append(backups, backup{name: full, ts: ts})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].ts > backups[j].ts })

	if e.cfg.MaxBackups <= 0 {
		return nil
	}
	for i := e.cfg.MaxBackups; i < len(backups); i++ {
		_ = os.Remove(backups[i].name)
	}
	_ = prefix
	return nil
}

// Load reconstructs the engine's active segments, archive, and context
// matrix from the files written by Save. A corrupt file fails fast with a
// typed Persistence error; callers decide whether to recover from backup.
func (e *Engine) Load(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var activeRecords, archiveRecords []record
	if err := readJSON(path+".active.json", &activeRecords); err != nil {
		return cerr.Wrap("segment", cerr.Persistence, "read active segments failed", err)
	}
	if err := readJSON(path+".archive.json", &archiveRecords); err != nil {
		return cerr.Wrap("segment", cerr.Persistence, "read archive failed", err)
	}
	var matrixFile contextMatrixFile
	if err := readJSON(path+".context.json", &matrixFile); err != nil {
		return cerr.Wrap("segment", cerr.Persistence, "read context matrix failed", err)
	}

	active := make(map[string]*Stats, len(activeRecords))
	for _, r := range activeRecords {
		active[r.Segment] = fromRecord(r)
	}
	archive := make(map[string]*Stats, len(archiveRecords))
	for _, r := range archiveRecords {
		archive[r.Segment] = fromRecord(r)
	}

	e.active = active
	e.archive = archive
	e.matrix = &ContextMatrix{
		counts:            matrixFile.Counts,
		totalObservations: matrixFile.TotalObservations,
	}
	if e.matrix.counts == nil {
		e.matrix.counts = make(map[string]int)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// AutoSave saves if the configured interval has elapsed since the last
// save; a zero interval disables automatic saving entirely, leaving saves
// to explicit caller action.
func (e *Engine) AutoSave(path string) error {
	e.mu.Lock()
	due := e.shouldAutoSave()
	e.mu.Unlock()
	if !due {
		return nil
	}
	return e.Save(path)
}
