package models

import (
	"path/filepath"
	"testing"

	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/volume"
)

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestGLTFLoaderCreation(t *testing.T) {
	loader := NewGLTFLoader()
	if loader == nil {
		t.Fatal("NewGLTFLoader returned nil")
	}
	if !loader.CalculateNormals {
		t.Error("CalculateNormals should default to true")
	}
}

func TestSaveGLBRoundTrip(t *testing.T) {
	field := volume.SingleVoxel(volume.Dims{X: 32, Y: 32, Z: 32}, 3, 20, 9, 1)
	mesh := OccupancyMesh(volume.BuildOccupancy(field), field.Dims)

	path := filepath.Join(t.TempDir(), "occupancy.glb")
	if err := SaveGLB(mesh, path); err != nil {
		t.Fatalf("SaveGLB: %v", err)
	}
	got, err := LoadGLB(path)
	if err != nil {
		t.Fatalf("LoadGLB: %v", err)
	}

	if got.VertexCount() != mesh.VertexCount() || got.TriangleCount() != mesh.TriangleCount() {
		t.Fatalf("loaded %d vertices / %d faces, want %d / %d",
			got.VertexCount(), got.TriangleCount(), mesh.VertexCount(), mesh.TriangleCount())
	}
	for i, f := range got.Faces {
		if f != mesh.Faces[i] {
			t.Fatalf("face %d = %v, want %v", i, f, mesh.Faces[i])
		}
	}
	for i, v := range got.Vertices {
		if !v.Position.ApproxEqual(mesh.Vertices[i].Position, 1e-6) {
			t.Fatalf("vertex %d at %v, want %v", i, v.Position, mesh.Vertices[i].Position)
		}
		if !v.Normal.ApproxEqual(mesh.Vertices[i].Normal, 1e-6) {
			t.Fatalf("vertex %d normal %v, want %v", i, v.Normal, mesh.Vertices[i].Normal)
		}
	}
	if !got.BoundsMin.ApproxEqual(mesh.BoundsMin, 1e-6) || !got.BoundsMax.ApproxEqual(mesh.BoundsMax, 1e-6) {
		t.Errorf("bounds %v-%v, want %v-%v", got.BoundsMin, got.BoundsMax, mesh.BoundsMin, mesh.BoundsMax)
	}
}

func TestSaveGLBEmptyMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.glb")
	if err := SaveGLB(NewMesh("empty"), path); err == nil {
		t.Error("expected an error for a mesh without faces")
	}
}

func TestLoadComputesMissingNormals(t *testing.T) {
	mesh := UnitCube()
	for i := range mesh.Vertices {
		mesh.Vertices[i].Normal = math3d.Vec3{}
	}
	path := filepath.Join(t.TempDir(), "cube.glb")
	if err := SaveGLB(mesh, path); err != nil {
		t.Fatalf("SaveGLB: %v", err)
	}
	got, err := LoadGLB(path)
	if err != nil {
		t.Fatalf("LoadGLB: %v", err)
	}
	want := UnitCube()
	for i, v := range got.Vertices {
		if !v.Normal.ApproxEqual(want.Vertices[i].Normal, 1e-6) {
			t.Fatalf("vertex %d normal %v, want %v", i, v.Normal, want.Vertices[i].Normal)
		}
	}
}
