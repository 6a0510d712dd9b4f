package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/client"
	"github.com/taigrr/voxlab/pkg/models"
	"github.com/taigrr/voxlab/pkg/render"
	"github.com/taigrr/voxlab/pkg/viewer"
	"github.com/taigrr/voxlab/pkg/volume"
)

// fetchVolume fetches volume id, or the first listed when id is empty.
func fetchVolume(ctx context.Context, c *client.Client, id string, res int) (api.VolumeInfo, *volume.Field, error) {
	vols, err := c.Volumes(ctx)
	if err != nil {
		return api.VolumeInfo{}, nil, err
	}
	info, err := pickVolume(vols, id)
	if err != nil {
		return info, nil, err
	}
	f, err := c.Fetch(ctx, info, res)
	return info, f, err
}

// exportOccupancy builds the occupancy grid of a volume and writes one box
// per occupied cell to path as GLB.
func exportOccupancy(ctx context.Context, c *client.Client, id string, res int, path string) error {
	info, f, err := fetchVolume(ctx, c, id, res)
	if err != nil {
		return err
	}
	grid := volume.BuildOccupancy(f)
	mesh := models.OccupancyMesh(grid, f.Dims)
	if err := models.SaveGLB(mesh, path); err != nil {
		return err
	}

	// Read it back so a broken file fails here rather than in whatever
	// opens it next.
	check, err := models.LoadGLB(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	fmt.Printf("wrote %s: %s at %s, %d of %d cells occupied, %s triangles\n",
		path, info.ID, f.Dims, grid.Count(), volume.GridDims().Len(),
		humanize.Comma(int64(check.TriangleCount())))
	return nil
}

// snapshot renders a volume from the default viewpoint on the CPU device
// and saves it as PNG.
func snapshot(ctx context.Context, c *client.Client, id string, res int, path string, w, h int) error {
	info, f, err := fetchVolume(ctx, c, id, res)
	if err != nil {
		return err
	}

	cam := render.NewCamera()
	aspect := float64(w) / float64(h)
	cam.SetAspectRatio(aspect)
	p := render.DefaultRenderParams()
	p.CameraPosition = cam.Position()
	p.ViewProj = cam.ViewProjectionMatrix()
	p.Aspect = aspect
	p.StepSize = render.StepSizeForQuality(viewer.DefaultQuality)
	p.ValueRange = f.Range
	p.HasVolume = true

	x := render.NewExchange()
	x.Publish(p)
	x.Offer(f)

	dev := render.NewSoftDevice(w, h)
	dev.Clear(render.ColorBackground)
	engine := render.NewEngine()
	if err := engine.Initialize(dev); err != nil {
		return err
	}
	defer engine.Destroy()
	if err := engine.DrawFrame(x); err != nil {
		return err
	}
	if err := dev.Framebuffer().SavePNG(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	fmt.Printf("wrote %s: %s at %s, %dx%d\n", path, info.ID, f.Dims, w, h)
	return nil
}

func pickVolume(vols []api.VolumeInfo, id string) (api.VolumeInfo, error) {
	if len(vols) == 0 {
		return api.VolumeInfo{}, fmt.Errorf("server has no volumes")
	}
	if id == "" {
		return vols[0], nil
	}
	for _, v := range vols {
		if v.ID == id {
			return v, nil
		}
	}
	return api.VolumeInfo{}, fmt.Errorf("unknown volume %q", id)
}
