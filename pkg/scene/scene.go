// Package scene provides a small stand-in for a host application's scene
// graph: a container of named nodes that segmentation results are imported
// into. Once imported, nodes are owned by the scene; the workflow keeps no
// long-lived reference to them.
package scene

import (
	"fmt"
	"path/filepath"
	"strings"

	"slicersynthseg/internal/models"
	"slicersynthseg/pkg/nifti"
	"slicersynthseg/pkg/synthseg"
	"slicersynthseg/pkg/volumes"
)

// NodeKind identifies what a scene node holds.
type NodeKind int

const (
	// KindLabelVolume marks a node holding a segmentation label volume.
	KindLabelVolume NodeKind = iota

	// KindTable marks a node holding a structure-volumes table.
	KindTable
)

// Node is a named object attached to the scene.
type Node struct {
	// Name identifies the node, derived from the file it was loaded from.
	Name string

	// Kind says which of the payload fields is set.
	Kind NodeKind

	// LabelVolume is set for KindLabelVolume nodes.
	LabelVolume *models.LabelVolume

	// Table is set for KindTable nodes.
	Table *volumes.Table
}

// Scene holds the nodes produced by imports. Not safe for concurrent use;
// the workflow is single-run-at-a-time by design.
type Scene struct {
	nodes []Node
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// AddNode attaches a node to the scene.
func (s *Scene) AddNode(n Node) {
	s.nodes = append(s.nodes, n)
}

// Nodes returns all nodes currently attached, in attachment order.
func (s *Scene) Nodes() []Node {
	return s.nodes
}

// NodeByName returns the first node with the given name.
func (s *Scene) NodeByName(name string) (Node, bool) {
	for _, n := range s.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// LabelVolumes returns every label volume attached to the scene.
func (s *Scene) LabelVolumes() []*models.LabelVolume {
	var vols []*models.LabelVolume
	for _, n := range s.nodes {
		if n.Kind == KindLabelVolume {
			vols = append(vols, n.LabelVolume)
		}
	}
	return vols
}

// Tables returns every volumes table attached to the scene.
func (s *Scene) Tables() []*volumes.Table {
	var tables []*volumes.Table
	for _, n := range s.nodes {
		if n.Kind == KindTable {
			tables = append(tables, n.Table)
		}
	}
	return tables
}

// Importer loads the segmentation tool's output files into a scene. It
// implements the workflow's Importer interface.
type Importer struct {
	// Scene receives the imported nodes and takes ownership of them.
	Scene *Scene
}

// NewImporter returns an importer that attaches results to the given scene.
func NewImporter(s *Scene) *Importer {
	return &Importer{Scene: s}
}

// Import loads the label volume and the volumes table and attaches both to
// the scene. The returned summary reports the structure count from the label
// volume and the total volume from the table.
func (im *Importer) Import(segPath, volPath string) (synthseg.ImportSummary, error) {
	vol, err := nifti.ReadFile(segPath)
	if err != nil {
		return synthseg.ImportSummary{}, fmt.Errorf("label volume: %w", err)
	}

	table, err := volumes.ReadFile(volPath)
	if err != nil {
		return synthseg.ImportSummary{}, fmt.Errorf("volumes table: %w", err)
	}

	im.Scene.AddNode(Node{
		Name:        nodeName(segPath),
		Kind:        KindLabelVolume,
		LabelVolume: vol,
	})
	im.Scene.AddNode(Node{
		Name:  nodeName(volPath),
		Kind:  KindTable,
		Table: table,
	})

	return synthseg.ImportSummary{
		StructureCount: len(vol.Labels()),
		TotalVolumeMM3: table.Total(),
	}, nil
}

// nodeName derives a node name from an output file path.
func nodeName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	for _, ext := range []string{".nii", ".csv"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
