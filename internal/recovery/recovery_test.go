package recovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lexisearch/internal/commit"
	"lexisearch/internal/index"
	"lexisearch/internal/storage"
)

func newRecoveryFixture(t *testing.T) *index.IndexDir {
	t.Helper()
	dir := index.NewIndexDir(t.TempDir())
	if err := dir.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	return dir
}

// commitOnce runs one commit against dir, layering onto prev (nil for the
// first generation), and returns the commit result.
func commitOnce(t *testing.T, dir *index.IndexDir, prev *index.Manifest) *commit.CommitResult {
	t.Helper()
	c := commit.NewCommitter(dir, commit.DefaultOptions())
	data := &commit.SegmentData{
		Files: map[string][]byte{
			"fst.bin":      []byte("fst-data"),
			"postings.bin": []byte("postings-data"),
		},
		DocCount:      10,
		DocCountAlive: 10,
	}
	result, err := c.Commit(context.Background(), prev, data)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestRecover_NeverCommittedIndex(t *testing.T) {
	dir := newRecoveryFixture(t)

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 0 {
		t.Errorf("generation = %d, want 0", result.Generation)
	}
	if result.Manifest != nil {
		t.Error("manifest should be nil for a never-committed index")
	}
	if result.FellBack {
		t.Error("nothing to fall back from")
	}
}

func TestRecover_HealthyIndexIsUntouched(t *testing.T) {
	dir := newRecoveryFixture(t)
	commitOnce(t, dir, nil)

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 1 {
		t.Errorf("generation = %d, want 1", result.Generation)
	}
	if result.Manifest == nil {
		t.Fatal("manifest should not be nil")
	}
	if len(result.Manifest.Segments) != 1 {
		t.Errorf("segments = %d, want 1", len(result.Manifest.Segments))
	}
	if result.FellBack {
		t.Error("healthy index must not trigger fallback")
	}
}

func TestRecover_PicksNewestGeneration(t *testing.T) {
	dir := newRecoveryFixture(t)

	first := commitOnce(t, dir, nil)
	m1, _ := index.LoadManifest(dir, first.Generation)
	commitOnce(t, dir, m1)

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 2 {
		t.Errorf("generation = %d, want 2", result.Generation)
	}
	if len(result.Manifest.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(result.Manifest.Segments))
	}
}

func TestRecover_SweepsTmp(t *testing.T) {
	dir := newRecoveryFixture(t)
	commitOnce(t, dir, nil)

	// Strand an interrupted commit's leavings in tmp/.
	if err := os.WriteFile(filepath.Join(dir.TmpDir(), "half-written.tmp"), []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir.TmpDir(), "half-built-segment"), 0755); err != nil {
		t.Fatal(err)
	}

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.TmpFilesRemoved) != 2 {
		t.Errorf("TmpFilesRemoved = %d, want 2", len(result.TmpFilesRemoved))
	}

	entries, _ := os.ReadDir(dir.TmpDir())
	if len(entries) != 0 {
		t.Errorf("tmp/ has %d entries after recovery, want 0", len(entries))
	}
}

func TestRecover_DeletesUnreferencedSegment(t *testing.T) {
	dir := newRecoveryFixture(t)
	commitOnce(t, dir, nil)

	// A segment directory no manifest knows about.
	strayDir := dir.SegmentDir("seg_gen_99_deadbeef")
	if err := os.MkdirAll(strayDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(strayDir, "fst.bin"), []byte("stray"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.OrphansRemoved) != 1 {
		t.Errorf("OrphansRemoved = %d, want 1", len(result.OrphansRemoved))
	}
	if result.OrphansRemoved[0] != "seg_gen_99_deadbeef" {
		t.Errorf("orphan = %s, want seg_gen_99_deadbeef", result.OrphansRemoved[0])
	}

	if storage.DirExists(strayDir) {
		t.Error("unreferenced segment should have been deleted")
	}
}

func TestRecover_UnreadableManifestFallsBack(t *testing.T) {
	dir := newRecoveryFixture(t)

	first := commitOnce(t, dir, nil)
	m1, _ := index.LoadManifest(dir, first.Generation)
	commitOnce(t, dir, m1)

	// Clobber the newest manifest.
	if err := os.WriteFile(dir.ManifestPath(2), []byte(`{"corrupt":true}`), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 1 {
		t.Errorf("generation = %d, want 1 after fallback", result.Generation)
	}
	if !result.FellBack {
		t.Error("expected fallback")
	}
	if result.FellBackFrom != 2 {
		t.Errorf("FellBackFrom = %d, want 2", result.FellBackFrom)
	}
}

func TestRecover_ChecksumMismatchFallsBack(t *testing.T) {
	dir := newRecoveryFixture(t)

	first := commitOnce(t, dir, nil)
	m1, _ := index.LoadManifest(dir, first.Generation)
	second := commitOnce(t, dir, m1)

	// Flip bytes in the newest generation's segment.
	fstPath := dir.SegmentFile(second.SegmentID, "fst.bin")
	if err := os.WriteFile(fstPath, []byte("corrupted!"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 1 {
		t.Errorf("generation = %d, want 1 after corrupt-segment fallback", result.Generation)
	}
	if !result.FellBack {
		t.Error("expected fallback")
	}
}

func TestRecover_NoSurvivingGeneration(t *testing.T) {
	dir := newRecoveryFixture(t)

	first := commitOnce(t, dir, nil)

	// The only segment there is gets corrupted.
	fstPath := dir.SegmentFile(first.SegmentID, "fst.bin")
	if err := os.WriteFile(fstPath, []byte("corrupted!"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Recover(dir, DefaultOptions())
	if err == nil {
		t.Error("expected an error when every generation is corrupt")
	}
	if !errors.Is(err, ErrRecoveryImpossible) {
		t.Errorf("expected ErrRecoveryImpossible, got: %v", err)
	}
}

func TestRecover_PrunesManifestsPastRetention(t *testing.T) {
	dir := newRecoveryFixture(t)

	var m *index.Manifest
	for i := 0; i < 5; i++ {
		r := commitOnce(t, dir, m)
		m, _ = index.LoadManifest(dir, r.Generation)
	}

	// Default retention keeps the current manifest plus two predecessors:
	// generations 5, 4, 3 survive; 1 and 2 go.
	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if result.Generation != 5 {
		t.Errorf("generation = %d, want 5", result.Generation)
	}
	if len(result.ManifestsRemoved) != 2 {
		t.Errorf("ManifestsRemoved = %d, want 2", len(result.ManifestsRemoved))
	}

	for _, gen := range []uint64{1, 2} {
		if storage.FileExists(dir.ManifestPath(gen)) {
			t.Errorf("manifest gen %d should have been pruned", gen)
		}
	}
	for _, gen := range []uint64{3, 4, 5} {
		if !storage.FileExists(dir.ManifestPath(gen)) {
			t.Errorf("manifest gen %d should have survived", gen)
		}
	}
}

func TestRecover_ChecksumVerificationCanBeDisabled(t *testing.T) {
	dir := newRecoveryFixture(t)

	r := commitOnce(t, dir, nil)

	fstPath := dir.SegmentFile(r.SegmentID, "fst.bin")
	if err := os.WriteFile(fstPath, []byte("corrupted!"), 0644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.VerifySegmentChecksums = false

	result, err := Recover(dir, opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 1 {
		t.Errorf("generation = %d, want 1", result.Generation)
	}
	if result.FellBack {
		t.Error("with checksums off, the corruption goes unnoticed and no fallback happens")
	}
}

func TestRecover_MissingSegmentDirIsFatalWithOneGeneration(t *testing.T) {
	dir := newRecoveryFixture(t)

	r := commitOnce(t, dir, nil)
	os.RemoveAll(dir.SegmentDir(r.SegmentID))

	if _, err := Recover(dir, DefaultOptions()); err == nil {
		t.Error("expected an error when the only segment directory is gone")
	}
}

func TestManifestGeneration(t *testing.T) {
	tests := []struct {
		filename string
		gen      uint64
		ok       bool
	}{
		{"manifest_gen_1.json", 1, true},
		{"manifest_gen_42.json", 42, true},
		{"manifest_gen_0.json", 0, true},
		{"manifest_gen_100.json", 100, true},
		{"other_file.json", 0, false},
		{"manifest_gen_.json", 0, false},
		{"manifest_gen_abc.json", 0, false},
	}

	for _, tt := range tests {
		gen, ok := manifestGeneration(tt.filename)
		if ok != tt.ok {
			t.Errorf("manifestGeneration(%q) ok = %v, want %v", tt.filename, ok, tt.ok)
		}
		if ok && gen != tt.gen {
			t.Errorf("manifestGeneration(%q) gen = %d, want %d", tt.filename, gen, tt.gen)
		}
	}
}

func TestRecover_NeverCommittedIndexStillSweepsTmp(t *testing.T) {
	dir := newRecoveryFixture(t)

	if err := os.WriteFile(filepath.Join(dir.TmpDir(), "leftover"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := Recover(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 0 {
		t.Errorf("generation = %d, want 0", result.Generation)
	}
	if len(result.TmpFilesRemoved) != 1 {
		t.Errorf("TmpFilesRemoved = %d, want 1", len(result.TmpFilesRemoved))
	}
}
