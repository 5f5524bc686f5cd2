package scene

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"slicersynthseg/internal/models"
	"slicersynthseg/pkg/volumes"
)

// writeNifti builds a minimal single-file uint8 image from raw bytes, at the
// field offsets the file format fixes, and writes it gzipped to path.
func writeNifti(t *testing.T, path string, nx, ny, nz int, voxels []byte) {
	t.Helper()

	raw := make([]byte, 352)
	le := binary.LittleEndian
	le.PutUint32(raw[0:], 348)                     // sizeof_hdr
	le.PutUint16(raw[40:], 3)                      // dim[0]
	le.PutUint16(raw[42:], uint16(nx))             // dim[1]
	le.PutUint16(raw[44:], uint16(ny))             // dim[2]
	le.PutUint16(raw[46:], uint16(nz))             // dim[3]
	le.PutUint16(raw[70:], 2)                      // datatype: uint8
	le.PutUint16(raw[72:], 8)                      // bitpix
	le.PutUint32(raw[80:], math.Float32bits(1))    // pixdim[1]
	le.PutUint32(raw[84:], math.Float32bits(1))    // pixdim[2]
	le.PutUint32(raw[88:], math.Float32bits(1))    // pixdim[3]
	le.PutUint32(raw[108:], math.Float32bits(352)) // vox_offset
	copy(raw[344:], "n+1\x00")
	raw = append(raw, voxels...)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(raw)
	gz.Close()
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	segPath := filepath.Join(dir, "T1_seg.nii.gz")
	volPath := filepath.Join(dir, "T1_vol.csv")

	// Two distinct nonzero labels across eight voxels.
	writeNifti(t, segPath, 2, 2, 2, []byte{0, 2, 2, 3, 0, 0, 3, 3})
	writeCSV(t, volPath, "subject,left cerebral white matter,left cerebral cortex\nT1,3.0,4.0\n")

	sc := NewScene()
	summary, err := NewImporter(sc).Import(segPath, volPath)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if summary.StructureCount != 2 {
		t.Errorf("StructureCount = %d, want 2", summary.StructureCount)
	}
	if summary.TotalVolumeMM3 != 7.0 {
		t.Errorf("TotalVolumeMM3 = %v, want 7.0", summary.TotalVolumeMM3)
	}

	if got := len(sc.Nodes()); got != 2 {
		t.Fatalf("Scene holds %d nodes, want 2", got)
	}
	if len(sc.LabelVolumes()) != 1 || len(sc.Tables()) != 1 {
		t.Errorf("Got %d label volumes and %d tables, want 1 and 1",
			len(sc.LabelVolumes()), len(sc.Tables()))
	}

	node, ok := sc.NodeByName("T1_seg")
	if !ok {
		t.Fatal("Expected a node named T1_seg")
	}
	if node.Kind != KindLabelVolume || node.LabelVolume == nil {
		t.Errorf("T1_seg node = %+v, want a label volume", node)
	}
	if node.LabelVolume.VoxelCount(3) != 3 {
		t.Errorf("VoxelCount(3) = %d, want 3", node.LabelVolume.VoxelCount(3))
	}

	table, ok := sc.NodeByName("T1_vol")
	if !ok {
		t.Fatal("Expected a node named T1_vol")
	}
	if table.Kind != KindTable || table.Table == nil {
		t.Errorf("T1_vol node = %+v, want a table", table)
	}
}

func TestImportMissingLabelVolume(t *testing.T) {
	dir := t.TempDir()
	volPath := filepath.Join(dir, "T1_vol.csv")
	writeCSV(t, volPath, "subject,a\nT1,1.0\n")

	sc := NewScene()
	_, err := NewImporter(sc).Import(filepath.Join(dir, "absent_seg.nii.gz"), volPath)
	if err == nil {
		t.Fatal("Expected an error for a missing label volume")
	}
	if len(sc.Nodes()) != 0 {
		t.Error("A failed import must leave the scene untouched")
	}
}

func TestImportMissingTable(t *testing.T) {
	dir := t.TempDir()
	segPath := filepath.Join(dir, "T1_seg.nii.gz")
	writeNifti(t, segPath, 1, 1, 1, []byte{2})

	sc := NewScene()
	_, err := NewImporter(sc).Import(segPath, filepath.Join(dir, "absent_vol.csv"))
	if err == nil {
		t.Fatal("Expected an error for a missing volumes table")
	}
	if len(sc.Nodes()) != 0 {
		t.Error("A failed import must leave the scene untouched")
	}
}

func TestNodeByNameMiss(t *testing.T) {
	sc := NewScene()
	if _, ok := sc.NodeByName("nothing"); ok {
		t.Error("NodeByName on an empty scene should report not found")
	}
}

func TestAddNode(t *testing.T) {
	sc := NewScene()
	sc.AddNode(Node{Name: "v", Kind: KindLabelVolume, LabelVolume: &models.LabelVolume{}})
	sc.AddNode(Node{Name: "t", Kind: KindTable, Table: &volumes.Table{}})

	if len(sc.Nodes()) != 2 {
		t.Fatalf("Got %d nodes, want 2", len(sc.Nodes()))
	}
	if sc.Nodes()[0].Name != "v" || sc.Nodes()[1].Name != "t" {
		t.Error("Nodes must keep attachment order")
	}
}
